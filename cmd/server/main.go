package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/config"
	"github.com/iliyamo/hall-pass/internal/database"
	"github.com/iliyamo/hall-pass/internal/handler"
	"github.com/iliyamo/hall-pass/internal/middleware"
	"github.com/iliyamo/hall-pass/internal/queue"
	"github.com/iliyamo/hall-pass/internal/repository"
	"github.com/iliyamo/hall-pass/internal/router"
	"github.com/iliyamo/hall-pass/internal/service"
)

func main() {
	// .env is a development convenience; in production the variables
	// come from the environment itself.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client turns the cache and the rate
	// limiter into no-ops.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	schools := repository.NewSchoolRepo(db)
	locations := repository.NewLocationRepo(db)
	passes := repository.NewPassRepo(db)

	passSvc := service.NewPassService(passes, locations, profiles, schools, queue.PublishPassCompleted)
	analyticsSvc := service.NewAnalyticsService(passes, schools)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.Register(e, router.Deps{
		JWTSecret:  cfg.JWTSecret,
		Profiles:   profiles,
		Users:      users,
		Auth:       handler.NewAuthHandler(cfg, users, tokens, profiles),
		Passes:     handler.NewPassHandler(passSvc),
		Locations:  handler.NewLocationHandler(locations),
		Schools:    handler.NewSchoolHandler(schools),
		Dashboards: handler.NewDashboardHandler(passSvc, analyticsSvc),
	})

	// Background consumer: records completed passes to the audit log.
	go func() {
		if err := queue.StartPassCompletedConsumer(); err != nil {
			log.Printf("pass-consumer stopped: %v", err)
		}
	}()

	// Expiry sweeper: passes that overstay their end time plus the
	// school's grace period are expired in the background.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := passSvc.ExpireOverdue(ctx)
			cancel()
			if err != nil {
				log.Printf("expiry sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("expiry sweep: expired %d passes", n)
			}
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
