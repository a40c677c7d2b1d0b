package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes builds the chi router with the full middleware stack.
func (h *Handler) Routes(rps float64, burst int) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(CORS)
	r.Use(RateLimit(rps, burst))

	r.Get("/health", HealthCheck)

	r.Route("/students", func(r chi.Router) {
		r.Post("/", h.CreateStudent)
		r.Get("/{id}", h.GetStudent)
	})

	r.Route("/courses", func(r chi.Router) {
		r.Post("/", h.CreateCourse)
		r.Get("/", h.ListCourses)
		r.Get("/{id}", h.GetCourse)
		r.Post("/{id}/register", h.Register)
	})

	r.Route("/registrations", func(r chi.Router) {
		r.Get("/", h.ListRegistrations)
		r.Delete("/{id}", h.Withdraw)
	})

	r.Post("/reconcile", h.Reconcile)

	r.Route("/basket", func(r chi.Router) {
		r.Get("/", h.ListBasket)
		r.Post("/{courseId}", h.AddToBasket)
		r.Delete("/{basketId}", h.RemoveFromBasket)
	})

	return r
}
