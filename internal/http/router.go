package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"genserver/internal/http/handlers"
	"genserver/internal/infra"
	"genserver/internal/middleware"
)

func NewRouter(app *handlers.App, logger *infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(*logger))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/video", func(r chi.Router) {
		r.Post("/tasks", app.CreateVideoTask)
		r.Post("/quote", app.QuoteVideoTask)
		r.Get("/tasks/{uuid}", app.GetVideoTask)
	})

	r.Route("/v1/text", func(r chi.Router) {
		r.Post("/generate", app.GenerateText)
		r.Post("/stream", app.StreamText)
	})

	r.Post("/api/generation/webhook", app.GenerationWebhook)

	return r
}
