package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/agroworld/storefront/api/routes"
	"github.com/agroworld/storefront/internal/auth"
	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/internal/catalog"
	"github.com/agroworld/storefront/internal/checkout"
	"github.com/agroworld/storefront/internal/orders"
	"github.com/agroworld/storefront/internal/otp"
	"github.com/agroworld/storefront/internal/state"
	"github.com/agroworld/storefront/pkg/auth/session"
	"github.com/agroworld/storefront/pkg/backend"
	"github.com/agroworld/storefront/pkg/config"
	"github.com/agroworld/storefront/pkg/db"
	"github.com/agroworld/storefront/pkg/instance"
	"github.com/agroworld/storefront/pkg/logger"
	"github.com/agroworld/storefront/pkg/metrics"
	"github.com/agroworld/storefront/pkg/migrate"
	"github.com/agroworld/storefront/pkg/otpgateway"
	"github.com/agroworld/storefront/pkg/redis"
	"github.com/agroworld/storefront/pkg/security"
)

const (
	shutdownTimeout = 20 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	// the database only backs the sql state store
	var dbClient *db.Client
	if cfg.State.Backend == config.StateBackendSQL {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, dbClient.Close())
		}()
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	var persister state.Persister
	if dbClient != nil {
		sqlPersister, perr := state.NewSQLPersister(dbClient, cfg.JWT.SessionTTL())
		if perr != nil {
			return perr
		}
		go purgeExpired(ctx, logg, sqlPersister)
		persister = sqlPersister
	} else {
		persister, err = state.NewRedisPersister(redisClient, cfg.JWT.SessionTTL())
		if err != nil {
			return err
		}
	}
	container, err := state.NewContainer(persister)
	if err != nil {
		return err
	}

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithMetrics(storefrontMetrics),
	)
	if err != nil {
		return err
	}
	gateway, err := otpgateway.NewClient(cfg.OTP.APIKey,
		otpgateway.WithBaseURL(cfg.OTP.BaseURL),
		otpgateway.WithSource(cfg.OTP.Source),
		otpgateway.WithTimeout(cfg.OTP.Timeout),
		otpgateway.WithMetrics(storefrontMetrics),
	)
	if err != nil {
		return err
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	sealer, err := security.NewSealer(cfg.State.Secret)
	if err != nil {
		return err
	}
	otpService, err := otp.NewService(otp.ServiceParams{
		Gateway:       gateway,
		Store:         container,
		Sealer:        sealer,
		Metrics:       storefrontMetrics,
		ResendAfter:   cfg.OTP.ResendAfter,
		SuccessStatus: cfg.OTP.SuccessStatus,
		CodeLength:    cfg.OTP.CodeLength,
	})
	if err != nil {
		return err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Backend:        backendClient,
		SessionManager: sessionManager,
		OTP:            otpService,
		State:          container,
		JWTConfig:      cfg.JWT,
		ResendAfter:    cfg.OTP.ResendAfter,
	})
	if err != nil {
		return err
	}
	catalogService, err := catalog.NewService(backendClient)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Backend: backendClient,
		State:   container,
	})
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Backend: backendClient,
		State:   container,
		Validator: checkout.Validator{
			MinLeadDays: cfg.Checkout.MinLeadDays,
			Location:    cfg.Checkout.Location(),
		},
	})
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Backend:  backendClient,
		Checkout: checkoutService,
		State:    container,
		Metrics:  storefrontMetrics,
		Logger:   logg,
		Location: cfg.Checkout.Location(),
	})
	if err != nil {
		return err
	}

	var readyDB db.Pinger
	if dbClient != nil {
		readyDB = dbClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"instance":      instance.GetID(),
		"state_backend": cfg.State.Backend,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, readyDB, redisClient, sessionManager,
			authService, catalogService, cartService, checkoutService, ordersService,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// purgeExpired drops state rows whose session ttl has elapsed.
func purgeExpired(ctx context.Context, logg *logger.Logger, p *state.SQLPersister) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				logg.Error(ctx, "failed to purge expired state", err)
				continue
			}
			if n > 0 {
				logg.Info(logg.WithField(ctx, "purged", n), "purged expired state")
			}
		}
	}
}
