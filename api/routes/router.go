package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vastralabs/vastra-backend/api/controllers"
	"github.com/vastralabs/vastra-backend/api/middleware"
	"github.com/vastralabs/vastra-backend/internal/addresses"
	"github.com/vastralabs/vastra-backend/internal/auth"
	"github.com/vastralabs/vastra-backend/internal/cart"
	checkoutsvc "github.com/vastralabs/vastra-backend/internal/checkout"
	"github.com/vastralabs/vastra-backend/internal/collections"
	"github.com/vastralabs/vastra-backend/internal/coupons"
	"github.com/vastralabs/vastra-backend/internal/orders"
	"github.com/vastralabs/vastra-backend/internal/products"
	"github.com/vastralabs/vastra-backend/pkg/config"
	"github.com/vastralabs/vastra-backend/pkg/logger"
	"github.com/vastralabs/vastra-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redis.Client
	Auth        auth.Service
	Products    products.Service
	Collections collections.Service
	Cart        cart.Service
	Coupons     coupons.Service
	Checkout    checkoutsvc.Service
	Orders      orders.Service
	Addresses   addresses.Service
	Metrics     http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	// Storefront surface. Carts are keyed by the X-Session-Id header, no
	// customer authentication per the product scope.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{slug}", controllers.GetProduct(deps.Products, logg))
		r.Get("/categories", controllers.ListCategories(deps.Products, logg))

		r.Get("/collections", controllers.ListCollections(deps.Collections, logg))
		r.Get("/collections/{slug}", controllers.GetCollection(deps.Collections, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/coupon", controllers.ApplyCoupon(deps.Cart, deps.Coupons, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Get("/orders", controllers.ListCustomerOrders(deps.Orders, logg))
		r.Get("/orders/{orderNumber}", controllers.GetOrderByNumber(deps.Orders, logg))

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.ListAddresses(deps.Addresses, logg))
			r.Post("/", controllers.CreateAddress(deps.Addresses, logg))
			r.Put("/{addressId}", controllers.UpdateAddress(deps.Addresses, logg))
			r.Delete("/{addressId}", controllers.DeleteAddress(deps.Addresses, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/auth/login", controllers.AdminLogin(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateProduct(deps.Products, logg))
				r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Products, logg))
				r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.Products, logg))
				r.Put("/{productId}/stock", controllers.AdminSetStock(deps.Products, logg))
			})
			r.Post("/categories", controllers.AdminCreateCategory(deps.Products, logg))

			r.Route("/collections", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateCollection(deps.Collections, logg))
				r.Patch("/{collectionId}", controllers.AdminUpdateCollection(deps.Collections, logg))
				r.Delete("/{collectionId}", controllers.AdminDeleteCollection(deps.Collections, logg))
				r.Put("/{collectionId}/products", controllers.AdminSetCollectionProducts(deps.Collections, logg))
			})

			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", controllers.AdminListCoupons(deps.Coupons, logg))
				r.Post("/", controllers.AdminCreateCoupon(deps.Coupons, logg))
				r.Get("/{couponId}", controllers.AdminGetCoupon(deps.Coupons, logg))
				r.Patch("/{couponId}", controllers.AdminUpdateCoupon(deps.Coupons, logg))
				r.Delete("/{couponId}", controllers.AdminDeleteCoupon(deps.Coupons, logg))
				r.Get("/{couponId}/rules", controllers.AdminListRules(deps.Coupons, logg))
				r.Post("/{couponId}/rules", controllers.AdminCreateRule(deps.Coupons, logg))
			})
			r.Route("/rules", func(r chi.Router) {
				r.Put("/{ruleId}", controllers.AdminUpdateRule(deps.Coupons, logg))
				r.Delete("/{ruleId}", controllers.AdminDeleteRule(deps.Coupons, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
				r.Get("/{orderId}", controllers.AdminGetOrder(deps.Orders, logg))
				r.Post("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
				r.Post("/{orderId}/payment", controllers.AdminUpdateOrderPayment(deps.Orders, logg))
			})
		})
	})

	return r
}
