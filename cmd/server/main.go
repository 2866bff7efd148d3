// ==============================================================================
// KYC VERIFICATION SERVICE MAIN - cmd/server/main.go
// ==============================================================================
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"kycflow/internal/engine"
	"kycflow/internal/handler"
	"kycflow/internal/media"
	"kycflow/internal/submission"
	"kycflow/internal/verification"
	"kycflow/pkg/config"
	"kycflow/pkg/logger"
	"kycflow/pkg/validator"
)

func main() {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("kyc-verification", cfg.Server.LogLevel)

	log.Info("Starting KYC verification service", logger.Fields{
		"port":       cfg.Server.Port,
		"engine_url": cfg.Engine.BaseURL,
	})

	// Optional Redis-backed result cache
	var resultCache engine.ResultCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis unavailable, verification results will not be cached", logger.Fields{
				"error": err.Error(),
			})
		} else {
			resultCache = engine.NewRedisResultCache(redisClient, cfg.Redis.ResultTTL, log)
			log.Info("Redis connected", nil)
		}
	}

	// Core components
	store := submission.NewStore()
	submission.SeedDemoData(store)

	analyzer := engine.NewClient(cfg.Engine, resultCache, log)
	service := verification.NewService(analyzer, store, cfg.Progress, log)
	mediaAdapter := media.NewAdapter(cfg.Media.MaxDocumentBytes, log)
	val := validator.New()

	kycHandler := handler.NewKYCHandler(service, store, mediaAdapter, val, log)

	// Routes
	r := mux.NewRouter()
	r.HandleFunc("/health", healthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/verify", kycHandler.StartVerification).Methods("POST")
	api.HandleFunc("/verify/{id}", kycHandler.GetSessionState).Methods("GET")
	api.HandleFunc("/verify/{id}", kycHandler.AbandonSession).Methods("DELETE")
	api.HandleFunc("/verify/{id}/progress/ws", kycHandler.StreamProgress).Methods("GET")
	api.HandleFunc("/submissions", kycHandler.ListSubmissions).Methods("GET")
	api.HandleFunc("/submissions/{id}", kycHandler.GetSubmission).Methods("GET")
	api.HandleFunc("/stats", kycHandler.GetStats).Methods("GET")

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("KYC verification service started", logger.Fields{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", logger.Fields{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down KYC verification service...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("KYC verification service forced to shutdown", logger.Fields{
			"error": err.Error(),
		})
	}

	log.Info("KYC verification service stopped gracefully", nil)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"kyc-verification","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}
