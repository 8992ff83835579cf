package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"
)

// routes wires middlewares and endpoints.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.Write(openapiYAML)
	})
	r.Mount("/swagger", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	r.Route("/api", func(api chi.Router) {
		api.Use(a.withTimeout)
		api.Use(a.authMiddleware)
		api.Use(a.rateLimit)

		api.Get("/me", a.handleMe)

		api.Route("/fish-data", func(fr chi.Router) {
			fr.Get("/", a.handleListFish)
			fr.Post("/create-with-all-data", a.handleCreateFish)
			fr.Get("/statistics/summary", a.handleFishStats)
			fr.Get("/{id}", a.handleGetFish)
			fr.Put("/{id}", a.handleUpdateFish)
			fr.Delete("/{id}", a.handleDeleteFish)
			fr.Post("/{id}/add-diseases", a.handleAddDiseases)
			fr.Get("/{id}/diseases", a.handleListDiseases)
			fr.Post("/{fishId}/analyses", a.handleAddAnalysis)
			fr.Get("/{fishId}/analyses", a.handleListAnalyses)
		})
		api.Delete("/diseases/{id}", a.handleDeleteDisease)

		api.Route("/analyses", func(ar chi.Router) {
			ar.Get("/{id}", a.handleGetAnalysis)
			ar.Put("/{id}", a.handleUpdateAnalysis)
			ar.Delete("/{id}", a.handleDeleteAnalysis)
		})

		api.Route("/fish-species", func(sr chi.Router) {
			sr.Get("/", a.handleListSpecies)
			sr.Post("/", a.handleCreateSpecies)
			sr.Get("/stats/summary", a.handleSpeciesStats)
			sr.Get("/{id}", a.handleGetSpecies)
			sr.Put("/{id}", a.handleUpdateSpecies)
			sr.Delete("/{id}", a.handleDeleteSpecies)
		})
	})

	return r
}
