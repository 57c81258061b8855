package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agroworld/storefront/api/controllers"
	"github.com/agroworld/storefront/api/middleware"
	"github.com/agroworld/storefront/internal/auth"
	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/internal/catalog"
	"github.com/agroworld/storefront/internal/checkout"
	"github.com/agroworld/storefront/internal/orders"
	"github.com/agroworld/storefront/pkg/auth/session"
	"github.com/agroworld/storefront/pkg/config"
	"github.com/agroworld/storefront/pkg/db"
	"github.com/agroworld/storefront/pkg/logger"
	pkgredis "github.com/agroworld/storefront/pkg/redis"
)

// redisStore is the redis surface the HTTP layer needs: idempotency records,
// rate limit counters and the readiness ping.
type redisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	sessions session.Lookup,
	authService auth.Service,
	catalogService catalog.Service,
	cartService cart.Service,
	checkoutService checkout.Service,
	ordersService orders.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginKeyLimit,
		"email",
	)
	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPKeyLimit,
		"phone_code", "phone",
	)
	verifyPolicy := middleware.NewAuthRateLimitPolicy(
		"otp-flow",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPKeyLimit,
		"flow_id",
	)

	readyChecks := map[string]db.Pinger{}
	if redisClient != nil {
		readyChecks["redis"] = redisClient
	}
	if dbP != nil {
		readyChecks["database"] = dbP
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	idempotent := middleware.Idempotency(redisClient, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
			r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg), idempotent).Post("/signup", controllers.AuthSignup(authService, logg))
			r.With(middleware.AuthRateLimit(verifyPolicy, redisClient, logg)).Post("/otp/verify", controllers.AuthVerifyOTP(authService, logg))
			r.With(middleware.AuthRateLimit(verifyPolicy, redisClient, logg)).Post("/otp/resend", controllers.AuthResendOTP(authService, logg))
			r.Post("/otp/cancel", controllers.AuthCancelOTP(authService, logg))
			r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).Post("/password/forgot", controllers.AuthForgotPassword(authService, logg))
			r.Post("/password/reset", controllers.AuthResetPassword(authService, logg))
			r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(authService, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", controllers.CatalogCategories(catalogService, logg))
			r.Get("/products", controllers.CatalogProducts(catalogService, logg))
			r.Get("/packages", controllers.CatalogPackages(catalogService, logg))
			r.Get("/packages/{packageId}", controllers.CatalogPackage(catalogService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg), idempotent)

			r.Get("/profile", controllers.ProfileFetch(authService, logg))
			r.Put("/profile", controllers.ProfileUpdate(authService, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(cartService, logg))
				r.Post("/packages", controllers.CartAddPackage(cartService, logg))
				r.Post("/items", controllers.CartAddItem(cartService, logg))
				r.Patch("/packages/{packageId}", controllers.CartUpdatePackage(cartService, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
				r.Delete("/packages/{packageId}", controllers.CartRemovePackage(cartService, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
				r.Post("/coupon", controllers.CartApplyCoupon(cartService, logg))
				r.Delete("/coupon", controllers.CartClearCoupon(cartService, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutDraft(checkoutService, logg))
				r.Put("/", controllers.CheckoutSave(checkoutService, logg))
				r.Get("/cities", controllers.CheckoutCities(checkoutService, logg))
				r.Get("/pickup-centers", controllers.CheckoutPickupCenters(checkoutService, logg))
				r.Get("/previous-address", controllers.CheckoutPreviousAddress(checkoutService, logg))
				r.Post("/validate", controllers.CheckoutValidate(checkoutService, logg))
				r.Get("/quote", controllers.CheckoutQuote(checkoutService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrderSubmit(ordersService, logg))
				r.Get("/", controllers.OrderHistory(ordersService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
				r.Get("/{orderId}/invoice", controllers.OrderInvoice(ordersService, logg))
			})
		})
	})

	return r
}
