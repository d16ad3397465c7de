package routes

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/moovi-app/moovi_auth/internal/auth"
	"github.com/moovi-app/moovi_auth/internal/channel"
	"github.com/moovi-app/moovi_auth/internal/config"
	"github.com/moovi-app/moovi_auth/internal/credential"
	"github.com/moovi-app/moovi_auth/internal/dashboard"
	"github.com/moovi-app/moovi_auth/internal/identity"
	"github.com/moovi-app/moovi_auth/internal/middleware"
	"github.com/moovi-app/moovi_auth/internal/password"
	"github.com/moovi-app/moovi_auth/internal/ratelimit"
)

// FunctionsPrefix keeps the paths the web client already calls.
const FunctionsPrefix = "/functions/v1"

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() && d.DB == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.CORS(d.Cfg.CORSAllowOrigins))
	app.Use(func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	})

	RegisterHealthRoutes(app, d)

	ch, err := buildChannel(d)
	if err != nil {
		return err
	}
	ids, err := buildIdentity(d)
	if err != nil {
		return err
	}
	hasher, err := password.NewHasher(d.Cfg.BcryptCost)
	if err != nil {
		return err
	}

	var creds credential.CredentialStore
	var profiles credential.ProfileStore
	if d.DB != nil {
		creds = credential.NewPostgresCredentialStore(d.DB)
		profiles = credential.NewPostgresProfileStore(d.DB)
	} else {
		creds = credential.NewMemoryCredentialStore()
		profiles = credential.NewMemoryProfileStore()
	}

	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if d.Cfg.RateLimitStore == config.RateLimitStoreRedis {
		if d.Cache == nil {
			return fmt.Errorf("redis is required when RATE_LIMIT_STORE=redis")
		}
		store = ratelimit.NewRedisStore(d.Cache)
	}
	limiter := ratelimit.NewLimiter(store, d.Logger)

	authSvc := auth.NewService(auth.Deps{
		Channel:     ch,
		Identity:    ids,
		Credentials: creds,
		Profiles:    profiles,
		Hasher:      hasher,
		Logger:      d.Logger,
	})

	fn := app.Group(FunctionsPrefix)
	RegisterAuthRoutes(fn, auth.NewHandler(authSvc), limiter, d.Logger)
	RegisterDashboardRoutes(fn, dashboard.NewHandler(ch, d.Logger), ids, limiter, d.Logger)
	return nil
}

func buildChannel(d Deps) (channel.Channel, error) {
	if d.Cfg.ChannelBaseURL == "" {
		if !d.Cfg.IsDev() {
			return nil, fmt.Errorf("CHANNEL_BASE_URL is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		d.Logger.Warn("CHANNEL_BASE_URL not set, verification codes are logged", "code", channel.DevCode)
		return channel.NewDevChannel(d.Logger), nil
	}
	return channel.NewWebhookChannel(d.Cfg.ChannelBaseURL, d.Cfg.ChannelAPIKey, d.Cfg.ChannelTimeout, d.Logger), nil
}

func buildIdentity(d Deps) (*identity.Service, error) {
	var backend identity.Backend
	switch d.Cfg.IdentityBackend {
	case config.IdentityBackendGoTrue:
		backend = identity.NewGoTrueBackend(d.Cfg.IdentityBaseURL, d.Cfg.IdentityServiceKey, d.Cfg.IdentityAnonKey, d.Cfg.ChannelTimeout)
	default:
		var repo identity.AccountRepository
		if d.DB != nil {
			repo = identity.NewPostgresAccountRepository(d.DB)
		} else {
			repo = identity.NewMemoryAccountRepository()
		}
		secret := d.Cfg.LocalJWTSecret
		if secret == "" {
			if !d.Cfg.IsDev() {
				return nil, fmt.Errorf("LOCAL_JWT_SECRET is required when APP_ENV=%s", d.Cfg.AppEnv)
			}
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				return nil, fmt.Errorf("generate dev jwt secret: %w", err)
			}
			secret = hex.EncodeToString(buf)
			d.Logger.Warn("LOCAL_JWT_SECRET not set, sessions will not survive a restart")
		}
		local, err := identity.NewLocalBackend(repo, secret, d.Cfg.AccessTokenTTL, d.Cfg.RefreshTokenTTL)
		if err != nil {
			return nil, err
		}
		backend = local
	}
	return identity.NewService(backend, d.Cfg.IdentityEmailDomain), nil
}
