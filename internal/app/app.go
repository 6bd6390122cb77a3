// Package app wires the NileCart API server together.
package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/nilecart/internal/domain/auth"
	"github.com/xenking/nilecart/internal/domain/checkout"
	"github.com/xenking/nilecart/internal/domain/money"
	"github.com/xenking/nilecart/internal/domain/product"
	"github.com/xenking/nilecart/internal/events"
	"github.com/xenking/nilecart/internal/handler"
	"github.com/xenking/nilecart/internal/session"
	"github.com/xenking/nilecart/internal/storage/postgres"
	"github.com/xenking/nilecart/internal/whatsapp"
	"github.com/xenking/nilecart/pkg/health"
	"github.com/xenking/nilecart/pkg/httpmiddleware"
)

const serviceName = "nilecart-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	carts, closeCarts, err := newSessionStore(ctx, lg, cfg, healthSvc)
	if err != nil {
		return errors.Wrap(err, "create session store")
	}
	defer closeCarts()

	publisher, closePublisher, err := newPublisher(lg, cfg.AMQP)
	if err != nil {
		return errors.Wrap(err, "create event publisher")
	}
	defer closePublisher()

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	rate, err := cfg.Currency.Rate()
	if err != nil {
		return err
	}

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	checkoutRepo := postgres.NewCheckoutRepository(pool)

	// Domain services.
	checkoutSvc, err := checkout.NewService(carts, whatsapp.NewLinker(cfg.Checkout.WhatsAppNumber), checkoutRepo, publisher,
		checkout.Options{
			TracerProvider: m.TracerProvider(),
			MeterProvider:  m.MeterProvider(),
		},
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	h, err := handler.New(
		handler.Config{
			ImageBaseURL: cfg.ImageBaseURL,
			Session: httpmiddleware.SessionConfig{
				TTL:    cfg.Session.TTL,
				Secure: cfg.Session.CookieSecure,
			},
			MeterProvider: m.MeterProvider(),
		},
		productRepo,
		product.NewService(productRepo),
		carts,
		checkoutSvc,
		auth.NewAuthenticator(userRepo, []byte(cfg.APIKeyPepper)),
		money.NewConverter(rate),
	)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	// Route-aware middleware runs inside the router so the matched pattern
	// is known once the handler returns.
	router := h.Router(healthSvc.LiveEndpoint, healthSvc.ReadyEndpoint,
		httpmiddleware.Instrument(serviceName, handler.RoutePattern, m.TracerProvider(), m.MeterProvider()),
		httpmiddleware.LogRequests(handler.RoutePattern),
	)

	handlerChain := httpmiddleware.Wrap(router,
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader, httpmiddleware.SessionHeader},
			ExposeHeaders:    []string{httpmiddleware.SessionHeader, httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		}),
	)

	return serve(ctx, lg, newServer(cfg.Addr, handlerChain), healthSvc, cfg.Graceful)
}

type redisPinger struct {
	client redis.UniversalClient
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// newSessionStore returns the Redis store when configured, else an
// in-memory store swept in the background until ctx is done.
func newSessionStore(ctx context.Context, lg *zap.Logger, cfg *Config, h *health.Health) (session.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		lg.Info("Using in-memory cart sessions", zap.Duration("ttl", cfg.Session.TTL))
		mem := session.NewMemory(cfg.Session.TTL)
		go mem.Run(ctx, cfg.Session.CleanupInterval, lg.Named("sessions"))
		return mem, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "ping redis")
	}

	lg.Info("Using Redis cart sessions", zap.String("addr", cfg.Redis.Addr))
	h.AddReadinessCheck("redis", 2*time.Second, health.PingCheck("redis", redisPinger{client: client}))
	return session.NewRedis(client, cfg.Session.TTL), func() { _ = client.Close() }, nil
}

// newPublisher connects to RabbitMQ when configured. Without a URL checkout
// events are discarded.
func newPublisher(lg *zap.Logger, cfg AMQPConfig) (events.Publisher, func(), error) {
	if cfg.URL == "" {
		lg.Info("AMQP URL not set, checkout events are disabled")
		return events.Nop{}, func() {}, nil
	}

	rabbit, conn, err := events.Dial(cfg.URL, serviceName)
	if err != nil {
		return nil, nil, err
	}
	lg.Info("Publishing checkout events", zap.String("exchange", events.Exchange))
	return rabbit, func() {
		if err := rabbit.Close(); err != nil {
			lg.Warn("Close AMQP channel", zap.Error(err))
		}
		if err := conn.Close(); err != nil {
			lg.Warn("Close AMQP connection", zap.Error(err))
		}
	}, nil
}
