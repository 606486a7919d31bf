package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/mandate/blog_service/internal/api"
	"github.com/mandate/blog_service/internal/auth"
	"github.com/mandate/blog_service/internal/config"
	"github.com/mandate/blog_service/internal/scrape"
	"github.com/mandate/blog_service/internal/service"
	"github.com/mandate/blog_service/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if cfg.AdminPassword == "" || cfg.JWTSecret == "" {
		logger.Error("ADMIN_PASSWORD and JWT_SECRET must be set")
		os.Exit(1)
	}

	pgURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := sql.Open("postgres", pgURL)
	if err != nil {
		logger.Error("db open failed", "error", err)
		os.Exit(1)
	}
	// simple ping + wait (db might be starting in docker)
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		logger.Warn("waiting for db", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Error("could not connect to db", "error", err)
		os.Exit(1)
	}

	if err := store.RunMigrations(db); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The cache is optional; reads fall through to Postgres.
		logger.Warn("redis ping failed, continuing without cache", "error", err)
	}

	repo := store.NewPgStore(db)
	verifier := auth.NewVerifier(cfg.JWTSecret)
	scraper := scrape.New(logger,
		scrape.WithNavigationTimeout(cfg.ImportTimeout),
		scrape.WithSettleDelay(cfg.SettleDelay),
	)

	svc := service.NewService(repo, rdb, scraper, verifier, logger, service.Settings{
		AdminPassword: cfg.AdminPassword,
		SiteBaseURL:   cfg.SiteBaseURL,
		AllowedHosts:  cfg.AllowedImportHosts,
	})
	handler := api.NewHandler(svc, logger)

	router := gin.Default()
	api.RegisterRoutes(router, handler, api.RequireAdmin(verifier))

	logger.Info("listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
