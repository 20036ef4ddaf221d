package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmarin-dev/shopline-backend/api/controllers"
	webhookcontrollers "github.com/rmarin-dev/shopline-backend/api/controllers/webhooks"
	"github.com/rmarin-dev/shopline-backend/api/middleware"
	authsvc "github.com/rmarin-dev/shopline-backend/internal/auth"
	cartsvc "github.com/rmarin-dev/shopline-backend/internal/cart"
	categorysvc "github.com/rmarin-dev/shopline-backend/internal/categories"
	ordersvc "github.com/rmarin-dev/shopline-backend/internal/orders"
	productsvc "github.com/rmarin-dev/shopline-backend/internal/products"
	reportsvc "github.com/rmarin-dev/shopline-backend/internal/reports"
	reviewsvc "github.com/rmarin-dev/shopline-backend/internal/reviews"
	usersvc "github.com/rmarin-dev/shopline-backend/internal/users"
	"github.com/rmarin-dev/shopline-backend/pkg/auth/session"
	"github.com/rmarin-dev/shopline-backend/pkg/config"
	"github.com/rmarin-dev/shopline-backend/pkg/db"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
	"github.com/rmarin-dev/shopline-backend/pkg/logger"
	"github.com/rmarin-dev/shopline-backend/pkg/metrics"
	"github.com/rmarin-dev/shopline-backend/pkg/redis"
	"github.com/rmarin-dev/shopline-backend/pkg/storage/local"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	Sessions       session.AccessSessionChecker
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	Storage        *local.Store

	Auth       authsvc.Service
	Products   productsvc.Service
	Categories categorysvc.Service
	Cart       cartsvc.Service
	Orders     ordersvc.Service
	Reviews    reviewsvc.Service
	Reports    reportsvc.Service
	Users      usersvc.Service

	StripeEvents webhookcontrollers.StripeEventHandler
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	forgotPolicy := middleware.NewAuthRateLimitPolicy(
		"forgot-password",
		cfg.AuthRateLimit.ForgotWindow,
		cfg.AuthRateLimit.ForgotEmailLimit,
		cfg.AuthRateLimit.ForgotEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.DB, deps.Redis, logg))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	if deps.Storage != nil {
		fileServer := http.FileServer(http.Dir(deps.Storage.Root()))
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeEvents, cfg.Stripe.WebhookSecret, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.Register(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.Login(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(forgotPolicy, deps.Redis, logg)).Post("/forgot-password", controllers.ForgotPassword(deps.Auth, logg))
		r.Post("/verify-otp", controllers.VerifyResetOTP(deps.Auth, logg))
		r.Post("/reset-password", controllers.ResetPassword(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Post("/logout", controllers.Logout(deps.Auth, logg))
			r.Get("/profile", controllers.Profile(deps.Auth, logg))
			r.Put("/profile", controllers.UpdateProfile(deps.Auth, logg))
			r.Post("/change-password", controllers.ChangePassword(deps.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/{slug}", controllers.GetProduct(deps.Products, logg))
		})
		r.Get("/reviews/product/{productID}", controllers.ListProductReviews(deps.Reviews, logg))
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(deps.Categories, logg))
			r.Get("/{slug}", controllers.GetCategory(deps.Categories, logg))
		})
		r.Get("/orders/track/{reference}", controllers.TrackOrder(deps.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.Cart, logg))
				r.Delete("/", controllers.ClearCart(deps.Cart, logg))
				r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
				r.Put("/items/{productID}", controllers.UpdateCartItem(deps.Cart, logg))
				r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.Cart, logg))
				r.Post("/coupon", controllers.ApplyCoupon(deps.Cart, logg))
				r.Delete("/coupon", controllers.RemoveCoupon(deps.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(deps.Orders, logg))
				r.Get("/", controllers.ListMyOrders(deps.Orders, logg))
				r.Post("/confirm-payment", controllers.ConfirmOrderPayment(deps.Orders, logg))
				r.Get("/{id}", controllers.GetOrder(deps.Orders, logg))
			})

			r.Post("/reviews/product/{productID}", controllers.CreateReview(deps.Reviews, logg))
			r.Put("/reviews/{id}", controllers.UpdateReview(deps.Reviews, logg))
			r.Delete("/reviews/{id}", controllers.DeleteReview(deps.Reviews, logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin.String(), logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(deps.Products, logg))
			r.Post("/", controllers.CreateProduct(deps.Products, logg))
			r.Put("/{id}", controllers.UpdateProduct(deps.Products, logg))
			r.Delete("/{id}", controllers.DeleteProduct(deps.Products, logg))
			r.Post("/{id}/images", controllers.UploadProductImages(deps.Products, deps.Storage, logg))
			r.Delete("/{id}/images", controllers.RemoveProductImage(deps.Products, deps.Storage, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CreateCategory(deps.Categories, logg))
			r.Put("/{id}", controllers.UpdateCategory(deps.Categories, logg))
			r.Delete("/{id}", controllers.DeleteCategory(deps.Categories, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
			r.Put("/{id}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
			r.Delete("/{id}", controllers.DeleteOrder(deps.Orders, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(deps.Users, logg))
			r.Get("/{id}", controllers.AdminGetUser(deps.Users, logg))
			r.Delete("/{id}", controllers.AdminDeleteUser(deps.Users, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", controllers.AdminDashboard(deps.Reports, logg))
			r.Get("/product-sales", controllers.AdminProductSales(deps.Reports, logg))
			r.Get("/category-sales", controllers.AdminCategorySales(deps.Reports, logg))
		})
	})

	return r
}
