package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nairamart/nairamart-backend/api/controllers"
	webhookcontrollers "github.com/nairamart/nairamart-backend/api/controllers/webhooks"
	"github.com/nairamart/nairamart-backend/api/middleware"
	"github.com/nairamart/nairamart-backend/internal/cart"
	checkoutsvc "github.com/nairamart/nairamart-backend/internal/checkout"
	"github.com/nairamart/nairamart-backend/internal/orders"
	"github.com/nairamart/nairamart-backend/internal/products"
	"github.com/nairamart/nairamart-backend/pkg/config"
	"github.com/nairamart/nairamart-backend/pkg/db"
	"github.com/nairamart/nairamart-backend/pkg/enums"
	"github.com/nairamart/nairamart-backend/pkg/logger"
	"github.com/nairamart/nairamart-backend/pkg/metrics"
	"github.com/nairamart/nairamart-backend/pkg/redis"
)

// SignatureVerifier authenticates webhook payloads against their header.
type SignatureVerifier interface {
	VerifySignature(signature string, body []byte) bool
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache redis.Pinger,
	webhookGuard redis.IdempotencyStore,
	signer SignatureVerifier,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	productsService products.Service,
	webhookService webhookcontrollers.PaystackWebhookService,
	reconciler controllers.PaymentReconciler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cache, logg))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(webhookService, signer, webhookGuard, cfg.Paystack.WebhookTTL, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(productsService, logg))
			r.Get("/{productID}", controllers.ProductGet(productsService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBuyer(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(cartService, logg))
				r.Post("/items", controllers.CartAddItem(cartService, logg))
				r.Patch("/items/{itemID}", controllers.CartUpdateQuantity(cartService, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartService, logg))
			})

			r.Post("/checkout", controllers.Checkout(checkoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(ordersService, logg))
				r.Get("/{orderID}", controllers.OrderGet(ordersService, logg))
			})

			r.Get("/payments/verify/{reference}", controllers.PaymentVerify(reconciler, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrdersList(ordersService, logg))
			r.Get("/{orderID}", controllers.AdminOrderGet(ordersService, logg))
		})

		r.Get("/cart-items", controllers.AdminCartItemsList(cartService, logg))
	})

	return r
}
