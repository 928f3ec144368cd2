package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	appchat "github.com/Pacifique5/AI-BOT/application/chat"
	"github.com/Pacifique5/AI-BOT/infrastructure/openai"
	httpiface "github.com/Pacifique5/AI-BOT/interfaces/http"
	"github.com/Pacifique5/AI-BOT/internal/config"
	"github.com/Pacifique5/AI-BOT/internal/logging"
	"github.com/Pacifique5/AI-BOT/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if err := logging.Setup(cfg.Logging); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Server.Host,
		"port":     cfg.Server.Port,
		"model":    cfg.OpenAI.Model,
		"base_url": cfg.OpenAI.BaseURL,
	}).Info("Starting AI Chatbot API")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Create base provider
	baseProvider := openai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.RequestTimeout(), cfg.OpenAI.ConnectTimeout(), m)

	// Wrap with circuit breaker for resilience
	circuitBreakerConfig := openai.CircuitBreakerConfig{
		Enabled:          cfg.CircuitBreaker.Enabled,
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
		Timeout:          cfg.CircuitBreaker.Timeout,
		MaxRequests:      cfg.CircuitBreaker.MaxRequests,
	}
	provider := openai.NewCircuitBreakerProvider(baseProvider, circuitBreakerConfig)

	logrus.WithFields(logrus.Fields{
		"enabled":           circuitBreakerConfig.Enabled,
		"failure_threshold": circuitBreakerConfig.FailureThreshold,
		"timeout":           circuitBreakerConfig.Timeout,
	}).Info("Circuit breaker configured")

	service := appchat.NewService(provider, cfg.OpenAI.Model, cfg.OpenAI.Temperature)

	apiConfigured := cfg.OpenAI.APIKey != ""
	var router *httpiface.Router
	if m != nil {
		router = httpiface.NewRouterWithMetrics(service, cfg.Server.CorsOrigins, apiConfigured, m, cfg.Metrics.Path)
	} else {
		router = httpiface.NewRouter(service, cfg.Server.CorsOrigins, apiConfigured)
	}

	ginRouter := router.SetupRoutes()

	address := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           ginRouter,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Leave headroom above the upstream deadline so slow completions
		// are not cut off mid-write
		WriteTimeout: cfg.OpenAI.RequestTimeout() + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for interrupt signal to trigger shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		logrus.WithField("address", address).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Block until signal is received
	<-c
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	} else {
		logrus.Info("Server shutdown complete")
	}
}
