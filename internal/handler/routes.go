package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Health   *HealthHandler
	Customer *CustomerHandler
	Session  *SessionHandler
	Batch    *BatchHandler
}

// NewRouter builds the chi router with middleware and all routes registered
func NewRouter(h Handlers, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware)

	r.Get("/health", h.Health.Health)
	r.Get("/providers", h.Batch.ListProviders)

	r.Route("/customers", func(r chi.Router) {
		r.Post("/import", h.Customer.Import)
		r.Get("/", h.Customer.ListCustomers)
		r.Get("/{id}", h.Customer.GetCustomer)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.Session.OpenSession)
		r.Get("/{id}", h.Session.GetSession)
		r.Delete("/{id}", h.Session.CloseSession)
		r.Put("/{id}/select-all", h.Session.SetSelectAll)
		r.Put("/{id}/rows/{index}", h.Session.SetRowSelected)
		r.Post("/{id}/delete-selected", h.Session.DeleteSelected)
		r.Post("/{id}/send-selected", h.Session.SendSelected)
	})

	r.Route("/batches", func(r chi.Router) {
		r.Get("/{id}", h.Batch.GetBatch)
		r.Get("/{id}/messages", h.Batch.ListMessages)
	})

	return r
}
