package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"intake-backend/internal/handlers"
	"intake-backend/internal/middleware"
	"intake-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	quizHandler *handlers.QuizHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Session creation rate limiter (20 req/min per IP)
	sessionLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1/quiz", func(r chi.Router) {

		// ──── Questionnaire (public) ────
		r.Get("/questionnaire", quizHandler.Questionnaire)
		r.Post("/questionnaire/refresh", quizHandler.RefreshQuestionnaire)

		r.With(sessionLimiter.Middleware).Post("/sessions", quizHandler.CreateSession)

		// ──── Session Routes ────
		r.Route("/session", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", quizHandler.GetSession)
			r.Post("/open", quizHandler.Open)
			r.Post("/close", quizHandler.Close)
			r.Post("/next", quizHandler.Next)
			r.Post("/previous", quizHandler.Previous)
			r.Post("/reset", quizHandler.Reset)
			r.Post("/answers", quizHandler.Answer)
			r.Get("/answers/{index}", quizHandler.PreviousAnswer)
			r.Get("/current-question", quizHandler.CurrentQuestion)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
