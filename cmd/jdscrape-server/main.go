package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/user/jd-scraper/internal/api"
	"github.com/user/jd-scraper/internal/app"
	"github.com/user/jd-scraper/internal/config"
	"github.com/user/jd-scraper/internal/logger"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet("jdscrape-server", pflag.ExitOnError)
	configFile := fs.String("config", "", "config file (defaults to .env)")
	fs.String("port", "8080", "HTTP listen port")
	fs.String("engine", config.EngineChromedp, "browser engine: chromedp or playwright")
	fs.String("profiles", "", "YAML file with extra platform profiles")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Bool("headful", false, "show the browser window")
	_ = fs.Parse(os.Args[1:])

	// Load configuration
	cfg, err := config.Load(*configFile, fs)
	if err != nil {
		zap.NewExample().Fatal("could not load config", zap.Error(err))
	}

	// Initialize structured logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("could not build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	// Browser, profiles, scraper and metrics
	engine, err := app.New(cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("could not start scrape engine", zap.Error(err))
	}

	server := api.NewServer(cfg, engine.Scraper, engine, engine.Metrics, prometheus.DefaultGatherer, log)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()

	log.Info("server started",
		zap.String("port", cfg.ServerPort),
		zap.String("engine", cfg.BrowserEngine),
		zap.Strings("profiles", engine.Profiles.Names()),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := engine.Close(); err != nil {
		log.Error("browser shutdown failed", zap.Error(err))
	}

	log.Info("server exiting")
}
