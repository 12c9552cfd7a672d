package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/karpanel/api/internal/config"
	"github.com/karpanel/api/internal/database"
	apihandlers "github.com/karpanel/api/internal/handlers/api"
	"github.com/karpanel/api/internal/middleware"
	"github.com/karpanel/api/internal/services/calculation"
	"github.com/karpanel/api/internal/services/product"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.LoadDev()

	// Connect to database
	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	slog.Info("database connected")

	// Run migrations
	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	slog.Info("migrations complete")

	// Initialize services
	calcSvc := calculation.NewService(pool, cfg.Calc, logger)
	productSvc := product.NewService(pool, logger)

	// Initialize handlers
	calcHandler := apihandlers.NewCalculationHandler(calcSvc, logger)
	productHandler := apihandlers.NewProductHandler(productSvc, calcSvc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	calcHandler.RegisterRoutes(mux)
	productHandler.RegisterRoutes(mux)

	// Middleware stack (rate limiting, logging, recovery)
	var chain http.Handler = mux
	chain = middleware.SecurityHeaders(chain)
	chain = middleware.RateLimiter(20, 40)(chain) // 20 req/s, burst 40 per IP
	chain = middleware.Recover(logger)(chain)
	chain = middleware.RequestLogger(logger)(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chain,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
