package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/api/middleware"
	"github.com/example/shop-backend/internal/auth"
	"github.com/example/shop-backend/internal/permission"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))

	authenticate := middleware.Authenticate(jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandlers.Register)
			r.Post("/login", authHandlers.Login)
			r.Post("/refresh", authHandlers.Refresh)
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/logout", authHandlers.Logout)
				r.Get("/me", authHandlers.Me)
				r.Post("/password", authHandlers.ChangePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/products", func(r chi.Router) {
				r.With(middleware.RequirePermission(permission.ActionViewProducts)).Get("/", handlers.GetProducts)
				r.With(middleware.RequirePermission(permission.ActionViewProducts)).Get("/{id}", handlers.GetProduct)
				r.With(middleware.RequirePermission(permission.ActionEditProducts)).Post("/", handlers.CreateProduct)
				r.With(middleware.RequirePermission(permission.ActionEditProducts)).Put("/{id}", handlers.UpdateProduct)
				r.With(middleware.RequirePermission(permission.ActionDeleteProducts)).Delete("/{id}", handlers.DeleteProduct)
			})

			r.With(middleware.RequirePermission(permission.ActionProcessSales)).Post("/sales", handlers.ProcessSale)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", handlers.GetCart)
				r.Delete("/", handlers.ClearCart)
				r.Post("/items", handlers.AddToCart)
				r.Patch("/items/{id}", handlers.UpdateCartItem)
				r.Post("/items/{id}/extend", handlers.ExtendCartHold)
				r.Delete("/items/{id}", handlers.RemoveCartItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(middleware.RequirePermission(permission.ActionCreateOrder)).Post("/", handlers.Checkout)
				r.With(middleware.RequirePermission(permission.ActionViewOwnOrders)).Get("/", handlers.GetOrders)
				r.With(middleware.RequirePermission(permission.ActionViewOwnOrders)).Get("/stream", handlers.StreamOrders)
				r.With(middleware.RequirePermission(permission.ActionViewOwnOrders)).Get("/{id}", handlers.GetOrder)
				r.With(middleware.RequirePermission(permission.ActionManageOrders)).Patch("/{id}/status", handlers.UpdateOrderStatus)
			})

			r.Route("/devices", func(r chi.Router) {
				r.Post("/", handlers.RegisterDevice)
				r.Delete("/", handlers.UnregisterDevice)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequirePermission(permission.ActionManageUsers))
				r.Get("/", handlers.GetUsers)
				r.Patch("/{id}/role", handlers.UpdateUserRole)
				r.Post("/{id}/deactivate", handlers.DeactivateUser)
			})
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
