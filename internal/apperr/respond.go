package apperr

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Respond writes err as a flat {error, needsWhatsApp?} JSON body. Errors that
// are not *Error are reported as KindInternal with the fallback message.
func Respond(c *fiber.Ctx, err error, fallback string) error {
	ae := As(err, fallback)
	if ae.Kind == KindRateLimited && ae.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(ae.RetryAfter.Seconds()))))
	}
	return c.Status(ae.HTTPStatus()).JSON(ae.Body())
}
