package main

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/viksund/membership/internal/allocation"
	"github.com/viksund/membership/internal/cache"
	"github.com/viksund/membership/internal/config"
	"github.com/viksund/membership/internal/database"
	"github.com/viksund/membership/internal/handler"
	"github.com/viksund/membership/internal/middleware"
	"github.com/viksund/membership/internal/queue"
	"github.com/viksund/membership/internal/repository"
	"github.com/viksund/membership/internal/router"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables rate limiting and the
	// view cache but the API stays fully functional.
	rdb := config.NewRedisClient()
	invalidator := cache.NewInvalidator(rdb, "view")
	views := cache.NewViews(rdb, "view", 0)

	events := repository.NewEventRepo(db)
	regs := repository.NewRegistrationRepo(db)
	members := repository.NewMemberRepo(db)
	tokens := repository.NewTokenRepo(db)

	store := repository.NewStore(db, events, regs)
	engine := allocation.NewEngine(store,
		allocation.WithInvalidator(invalidator),
		allocation.WithPublisher(queue.NewPublisher()),
	)

	go func() {
		if err := queue.StartRegistrationConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, members, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewEventHandler(events, views))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	regHandler := handler.NewRegistrationHandler(engine, regs)
	router.RegisterMember(e, regHandler, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, handler.NewAdminHandler(events, regs, engine, invalidator), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
