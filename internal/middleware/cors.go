package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS answers preflight requests and decorates every response with the
// headers the browser client needs. An empty origin list means "*".
func CORS(allowOrigins []string) fiber.Handler {
	origins := "*"
	if len(allowOrigins) > 0 {
		origins = strings.Join(allowOrigins, ",")
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders: "authorization, x-client-info, apikey, content-type",
	})
}
