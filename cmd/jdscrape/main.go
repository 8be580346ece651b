package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/user/jd-scraper/internal/app"
	"github.com/user/jd-scraper/internal/config"
	"github.com/user/jd-scraper/internal/logger"
	"go.uber.org/zap"
)

const (
	exitOK          = 0
	exitEngineError = 1
	exitUsage       = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("jdscrape", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Bool("json", false, "output raw JSON, one document per URL")
	fs.Bool("resume", false, "output the formatted text used for resume tailoring")
	fs.Bool("full", false, "don't trim boilerplate sections (benefits, EEO, ...)")
	fs.Int("concurrency", 3, "pages loaded at the same time")
	fs.Int("timeout-ms", 30000, "navigation timeout in milliseconds")
	fs.Int("max-chars", 15000, "truncate descriptions longer than this")
	fs.Bool("headful", false, "show the browser window")
	fs.String("engine", config.EngineChromedp, "browser engine: chromedp or playwright")
	fs.String("profiles", "", "YAML file with extra platform profiles")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("config", "", "config file (defaults to .env)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: jdscrape [flags] <url> [url2 ...]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Examples:")
		fmt.Fprintln(stderr, "  jdscrape https://boards.greenhouse.io/company/jobs/123456")
		fmt.Fprintln(stderr, "  jdscrape https://jobs.lever.co/company/abc-def --resume")
		fmt.Fprintln(stderr, "  jdscrape url1 url2 url3 --json")
	}
	return fs
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	urls := fs.Args()
	if len(urls) == 0 {
		fs.Usage()
		return exitUsage
	}

	mode, err := outputMode(fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	configFile, _ := fs.GetString("config")
	cfg, err := config.Load(configFile, fs)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitUsage
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitUsage
	}
	defer func() { _ = log.Sync() }()

	engine, err := app.New(cfg, log, prometheus.NewRegistry())
	if err != nil {
		log.Error("could not start scrape engine", zap.Error(err))
		return exitEngineError
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn("browser shutdown failed", zap.Error(err))
		}
	}()

	results := engine.Scraper.ScrapeMany(ctx, urls, cfg.Concurrency)
	if err := render(stdout, mode, results); err != nil {
		log.Error("write output", zap.Error(err))
		return exitEngineError
	}
	return exitOK
}
