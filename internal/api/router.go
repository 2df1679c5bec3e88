package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Assistant chat sessions (in-memory)
			r.Post("/assistant/start", apiHandler.StartAssistantSessionHandler)
			r.Get("/assistant/sessions", apiHandler.ListAssistantSessionsHandler)
			r.Get("/assistant/{sessionID}", apiHandler.GetAssistantSessionHandler)
			r.Post("/assistant/{sessionID}/message", apiHandler.AssistantMessageHandler)
			r.Delete("/assistant/{sessionID}", apiHandler.EndAssistantSessionHandler)

			// Tutoring sessions (persisted)
			r.Post("/tutor/start", apiHandler.StartTutoringHandler)
			r.Get("/tutor/sessions", apiHandler.ListTutoringHandler)
			r.Get("/tutor/{sessionID}", apiHandler.GetTutoringHandler)
			r.Post("/tutor/{sessionID}/message", apiHandler.TutoringMessageHandler)
			r.Post("/tutor/{sessionID}/complete", apiHandler.CompleteTutoringHandler)

			// Catalog, submissions and recommendations
			r.Get("/problems", apiHandler.ProblemsHandler)
			r.Post("/problems/{problemID}/submissions", apiHandler.SubmissionHandler)
			r.Get("/recommendations", apiHandler.RecommendationsHandler)
			r.Get("/study-plan", apiHandler.StudyPlanHandler)
			r.Get("/career-guidance", apiHandler.CareerGuidanceHandler)
		})
	})

	return r
}
