package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Th3drata/Tomodoro/internal/handlers"
	"github.com/Th3drata/Tomodoro/internal/middleware"
	"github.com/Th3drata/Tomodoro/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	sessionHandler *handlers.SessionHandler,
	settingsHandler *handlers.SettingsHandler,
	timerHandler *handlers.TimerHandler,
	statsHandler *handlers.StatsHandler,
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

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// API rate limiter (120 req/min per user)
	apiLimiter := middleware.NewRateLimiter(120, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/google", authHandler.Google)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/password-reset", authHandler.RequestPasswordReset)
			r.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(apiLimiter.Middleware)

			// ──── Account ────
			r.Delete("/account", authHandler.DeleteAccount)

			// ──── Session Routes ────
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Post("/", sessionHandler.Create)
				r.Put("/{id}", sessionHandler.Rename)
				r.Delete("/{id}", sessionHandler.Delete)
				r.Get("/{id}/intervals", sessionHandler.Intervals)
				r.Put("/{id}/intervals", sessionHandler.Review)
				r.Patch("/{id}/intervals/{intervalId}", sessionHandler.EditInterval)
			})

			// ──── Settings Routes ────
			r.Get("/settings", settingsHandler.Get)
			r.Put("/settings", settingsHandler.Update)

			// ──── Timer Routes ────
			r.Route("/timer", func(r chi.Router) {
				r.Get("/", timerHandler.State)
				r.Post("/start", timerHandler.Start)
				r.Post("/pause", timerHandler.Pause)
				r.Post("/reset", timerHandler.Reset)
				r.Put("/session", timerHandler.Select)
				r.Delete("/session", timerHandler.Quit)
			})

			// ──── Stats & Calendar ────
			r.Get("/stats", statsHandler.Summary)
			r.Get("/calendar", statsHandler.Calendar)
			r.Get("/calendar/day", statsHandler.Day)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
