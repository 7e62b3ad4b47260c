package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/msenthi7/medical-chatbot/app"
	"github.com/msenthi7/medical-chatbot/handlers"
	"github.com/msenthi7/medical-chatbot/middleware"
	"github.com/msenthi7/medical-chatbot/utils"
	"github.com/msenthi7/medical-chatbot/web"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	requestTimeout := deps.Config.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.HealthConfig(), deps.Logger)
	index := handlers.NewIndexHandler(web.ChatPage)
	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Logger)

	// One budget per client across the browser and API question routes
	askLimit := middleware.ChatRateLimit(middleware.RateLimitConfig{
		Requests: deps.Config.Server.RateLimit.Requests,
		Window:   deps.Config.Server.RateLimit.Window,
	}, deps.Logger, writeRateLimited)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// Browser chat
	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.Middleware)
		r.Get("/", index.HandleIndex)
		r.With(askLimit).Get("/get", chatHandler.HandleGet)
		r.With(askLimit).Post("/get", chatHandler.HandleGet)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", health.HandleStatus)

		r.Route("/chat", func(r chi.Router) {
			r.Use(deps.Sessions.Middleware)
			r.With(askLimit).Post("/", chatHandler.HandleChat)
			r.Get("/history", chatHandler.HandleHistory)
			r.Delete("/history", chatHandler.HandleReset)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "The requested resource was not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}

// writeRateLimited answers in the format of the route that was limited
func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	const msg = "Too many questions, please wait a moment and try again"
	if strings.HasPrefix(r.URL.Path, "/api/") {
		_ = utils.WriteError(w, http.StatusTooManyRequests, msg, nil)
		return
	}
	_ = utils.WriteText(w, http.StatusTooManyRequests, msg)
}
