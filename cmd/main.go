// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyunwoo-cho/course-reg-and-admission/internal/config"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/database"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/handler"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/obs"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/repository"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/seatstore"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()
	obs.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	// ── 2. Connect to Redis (seat counters) ───────────────────────────────
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	// A down Redis is tolerated: admission falls back to the durable gate
	// and reconciliation repairs the counters once it returns.
	if err := rdb.Ping(ctx).Err(); err != nil {
		obs.Logger.Warn("redis unreachable at startup, running in degraded mode", "error", err)
	} else {
		log.Println("✓ Connected to Redis")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	basketRepo := repository.NewBasketRepository(pool)
	counter := seatstore.NewRedisCounter(rdb, obs.Logger,
		seatstore.WithOpTimeout(cfg.RedisOpTimeout))
	admissionSvc := service.NewAdmissionService(studentRepo, courseRepo, regRepo, counter, obs.Logger)
	basketSvc := service.NewBasketService(studentRepo, courseRepo, basketRepo)
	h := handler.New(admissionSvc, basketSvc)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h.Routes(cfg.RateLimitRPS, cfg.RateLimitBurst),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
