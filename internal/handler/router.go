package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/digitalstore/internal/metrics"
	"github.com/mmeshcher/digitalstore/internal/middleware"
)

// SetupRouter собирает маршрутизатор API магазина.
func (h *Handler) SetupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.GzipMiddleware)

	r.Get("/api/health", h.Health)
	r.Method("GET", "/metrics", metrics.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)
			r.Get("/me", h.Me)
		})
	})

	r.Route("/api/product", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware, h.auth.RequireAdmin)
			r.Post("/admin/create", h.CreateProduct)
			r.Put("/admin/{id}", h.UpdateProduct)
		})
	})

	r.Route("/api/payment", func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Post("/create-payment-intent", h.CreatePaymentIntent)
	})

	r.Route("/api/order", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)
			r.Post("/create", h.CreateOrder)
			r.Get("/my-orders", h.MyOrders)
			r.Get("/{orderId}", h.GetOrder)
		})

		r.Get("/download/{token}", h.Download)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware, h.auth.RequireAdmin)
			r.Get("/admin/all", h.AdminOrders)
			r.Put("/admin/{orderId}/status", h.AdminOrderStatus)
		})
	})

	r.Route("/api/image", func(r chi.Router) {
		r.Get("/product/{productCode}", h.ListProductImages)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware, h.auth.RequireAdmin)
			r.Post("/admin/create", h.CreateImage)
			r.Post("/admin/upload", h.UploadImage)
			r.Delete("/admin/{id}", h.DeleteImage)
		})
	})

	return r
}
