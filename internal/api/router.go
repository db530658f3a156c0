// Package api assembles the HTTP surface around the online assigner.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/edulab-ai/progresscluster/internal/api/handlers"
	mw "github.com/edulab-ai/progresscluster/internal/api/middleware"
	"github.com/edulab-ai/progresscluster/internal/asset"
	"github.com/edulab-ai/progresscluster/internal/buildconfig"
	"github.com/edulab-ai/progresscluster/internal/config"
	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/embedding"
	"github.com/edulab-ai/progresscluster/internal/service"
	"github.com/edulab-ai/progresscluster/internal/store"
)

// App holds the wired router.
type App struct {
	Router *chi.Mux
}

// NewApp wires stores, the encoder, and the assigner into the router.
// db may be nil; the service then runs without assignment persistence
// or history.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	assetStore := asset.NewStore(config.AssetDir(), logger)

	encoder, err := embedding.NewEncoder(config.EmbeddingProvider(), config.EmbeddingAPIKey(), logger)
	if err != nil {
		logger.Warn("encoder initialization failed, using hashed fallback",
			zap.String("provider", config.EmbeddingProvider()),
			zap.Error(err))
		encoder = embedding.NewHashEncoder(embedding.DefaultHashDim)
	}

	var assignments domain.AssignmentStore
	if db != nil {
		assignments = store.NewAssignmentStore(db)
	}

	assigner := service.NewAssigner(assetStore, config.BundleVersion(), encoder, assignments, logger)

	analyzeHandler := handlers.NewAnalyzeHandler(assigner, assignments)
	assetsHandler := handlers.NewAssetsHandler(assigner)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", analyzeHandler.Analyze)
		r.Get("/assets", assetsHandler.Info)
		r.Get("/participants/{participantID}/assignments", analyzeHandler.History)
	})

	return &App{Router: r}
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		for k, v := range buildconfig.VersionInfo() {
			status[k] = v
		}
		code := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status["status"] = "degraded"
				status["database"] = "unreachable"
				code = http.StatusServiceUnavailable
			} else {
				status["database"] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
