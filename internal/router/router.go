package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/kopisiew/go-makan-suggestions/internal/api/history"
	"github.com/kopisiew/go-makan-suggestions/internal/api/recommend"
)

// Config contains dependencies needed for the router setup
type Config struct {
	RecommendHandler       *recommend.HandlerImpl
	HistoryHandler         *history.HandlerImpl
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://web.telegram.org", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Telegram-Init-Data"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// One recommendation can cost a model call, so the API group is
		// rate limited well below the reasoning budget.
		r.Use(httprate.LimitByIP(30, time.Minute))
		r.Use(cfg.AuthenticateMiddleware)

		r.Post("/recommendations", cfg.RecommendHandler.GetRecommendations)
		r.Get("/prompts", cfg.RecommendHandler.SuggestedPrompts)
		r.Get("/history/stats", cfg.HistoryHandler.GetScopeStats)
	})

	return r
}
