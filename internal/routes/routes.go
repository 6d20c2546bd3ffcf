package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/pointledger/internal/config"
	"github.com/congo-pay/pointledger/internal/metrics"
	"github.com/congo-pay/pointledger/internal/middleware"
	"github.com/congo-pay/pointledger/internal/notification"
	"github.com/congo-pay/pointledger/internal/point"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	ledger, err := NewLedger(d)
	if err != nil {
		return err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Replays are answered before the rate limiter counts them.
	RegisterPointRoutes(api, point.NewHandler(ledger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		middleware.MutationRateLimit(d.Cache, d.Cfg.MutationRatePerMin),
	)
	return nil
}

// NewLedger builds the point ledger over the store selected by STORE_BACKEND.
func NewLedger(d Deps) (*point.Ledger, error) {
	opts := []point.Option{
		point.WithMaxBalance(d.Cfg.MaxBalance),
		point.WithLogger(d.Logger),
		point.WithNotifier(notification.NewLoggerNotifier(d.Logger)),
	}

	switch d.Cfg.StoreBackend {
	case config.BackendPostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when STORE_BACKEND=%s", d.Cfg.StoreBackend)
		}
		store := point.NewPostgresStore(d.DB)
		return point.NewLedger(store, store, append(opts, point.WithAtomicStore(store))...), nil
	case config.BackendRedis:
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when STORE_BACKEND=%s", d.Cfg.StoreBackend)
		}
		store := point.NewRedisStore(d.Cache)
		return point.NewLedger(store, store, append(opts, point.WithAtomicStore(store))...), nil
	case config.BackendMemory, "":
		store := point.NewMemoryStore()
		return point.NewLedger(store, store, opts...), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", d.Cfg.StoreBackend)
	}
}
