package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"lotto/config"
	"lotto/database"
	"lotto/jobs"
	"lotto/logger"
	"lotto/routes"
	"lotto/services"

	"github.com/gofiber/fiber/v2"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("failed to connect database")
		os.Exit(1)
	}

	svc := services.New(db, cfg)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	routes.Setup(app, svc, cfg)

	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	if cfg.Scheduler.Enabled {
		jobs.StartRoundScheduler(jobCtx, svc.Rounds, cfg.SchedulerInterval())
	}

	addr := cfg.Addr()
	logger.Info(ctx).Str("addr", addr).Msg("server running")

	go func() {
		if err := app.Listen(addr); err != nil {
			logger.Error(ctx).Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info(ctx).Msg("gracefully shutting down")
	stopJobs()
	if err := app.Shutdown(); err != nil {
		logger.Error(ctx).Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info(ctx).Msg("server exited cleanly")
}
