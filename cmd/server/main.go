package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otcheredev/nutricore/internal/cache"
	"github.com/otcheredev/nutricore/internal/config"
	"github.com/otcheredev/nutricore/internal/database"
	"github.com/otcheredev/nutricore/internal/handlers"
	"github.com/otcheredev/nutricore/internal/middleware"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/repository"
	"github.com/otcheredev/nutricore/internal/services"
	"github.com/otcheredev/nutricore/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting NutriCore")

	// Connect to database
	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,
	}

	if err := database.Connect(dbConfig); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize cache
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		cacheImpl, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis cache initialized")
	} else {
		cacheImpl = cache.NewMemoryCache()
		log.Info().Msg("Memory cache initialized")
	}

	// Initialize repositories
	integrityRepo := repository.NewIntegrityRepository()
	auditRepo := repository.NewAuditRepository()

	// Initialize services
	integrityService := services.NewIntegrityService(integrityRepo, cacheImpl)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	patientsHandler := handlers.NewPatientsHandler(auditRepo)
	mealsHandler := handlers.NewMealsHandler(auditRepo, cacheImpl)
	plansHandler := handlers.NewPlansHandler(auditRepo)
	integrityHandler := handlers.NewIntegrityHandler(integrityService)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no authentication required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Data plane (requires a session)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Claims(cfg.Auth.JWTSecret))

		// Patients
		r.Post("/patients", patientsHandler.CreatePatient)
		r.Get("/patients", patientsHandler.ListPatients)
		r.Get("/patients/{patientID}", patientsHandler.GetPatient)
		r.Patch("/patients/{patientID}/status", patientsHandler.UpdatePatientStatus)
		r.Post("/patients/{patientID}/protocols", patientsHandler.CreateProtocol)

		// Meals and snapshots
		r.Post("/patients/{patientID}/meals", mealsHandler.LogMeal)
		r.Get("/patients/{patientID}/meals", mealsHandler.ListMeals)
		r.Get("/snapshots/{snapshotID}", mealsHandler.GetSnapshot)
		r.Patch("/snapshots/{snapshotID}", mealsHandler.UpdateSnapshot)
		r.Delete("/snapshots/{snapshotID}", mealsHandler.DeleteSnapshot)

		// Plans
		r.Post("/patients/{patientID}/plans", plansHandler.CreatePlanVersion)
		r.Get("/patients/{patientID}/plans", plansHandler.ListPlans)
		r.Patch("/plans/{versionID}", plansHandler.UpdatePlanVersion)
		r.Post("/plans/{versionID}/publish", plansHandler.PublishPlan)

		// Integrity control plane, administrative roles only
		r.Route("/integrity", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleOwner, models.RoleTenantAdmin))

			r.Post("/runs", integrityHandler.TriggerRun)
			r.Get("/runs", integrityHandler.ListRuns)
			r.Get("/runs/{runID}", integrityHandler.GetRunIssues)
			r.Get("/latest", integrityHandler.LatestSummary)
		})
	})

	// Scheduled integrity runs
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.Integrity.ScheduleEnabled {
		go runScheduler(schedulerCtx, integrityService, cfg.Integrity.Interval)
	}

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopScheduler()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// runScheduler triggers a full integrity run on a fixed interval. A run
// already in progress just means this tick is skipped.
func runScheduler(ctx context.Context, svc *services.IntegrityService, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("Integrity scheduler started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Integrity scheduler stopped")
			return
		case <-ticker.C:
			run, err := svc.RunNow(ctx)
			if err != nil {
				if err != services.ErrRunInProgress {
					log.Error().Err(err).Msg("Scheduled integrity run failed")
				}
				continue
			}
			log.Info().
				Str("run_id", run.ID.String()).
				Str("status", run.Status).
				Int("issues", run.IssueCount).
				Msg("Scheduled integrity run completed")
		}
	}
}
