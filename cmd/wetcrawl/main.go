// Package main provides the wetcrawl CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"

	"github.com/omarsamir27/wetcrawl/crawler"
	"github.com/omarsamir27/wetcrawl/internal/config"
	"github.com/omarsamir27/wetcrawl/internal/lang"
	"github.com/omarsamir27/wetcrawl/internal/logging"
	"github.com/omarsamir27/wetcrawl/internal/seed"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: wetcrawl <job-config-file>")
		os.Exit(1)
	}

	logger, err := logging.New(logging.DebugEnabled())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	pipeline, err := build(os.Args[1], logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		os.Exit(1)
	}

	if err := pipeline.Run(context.Background()); err != nil {
		logger.Error("crawl failed", zap.Error(err))
		os.Exit(1)
	}
}

// build loads the job config and seed list named at configPath and wires
// a ready-to-run Pipeline from them.
func build(configPath string, logger *zap.Logger) (*crawler.Pipeline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load job config: %w", err)
	}

	seeds, err := seed.Load(cfg.Seeds)
	if err != nil {
		return nil, fmt.Errorf("load seeds: %w", err)
	}

	var acceptLanguages []lingua.Language
	for _, code := range cfg.AcceptLanguages {
		if l, ok := lang.CodeToLanguage(code); ok {
			acceptLanguages = append(acceptLanguages, l)
		}
	}

	return crawler.NewPipeline(crawler.PipelineConfig{
		Seeds:           seeds,
		DestinationWARC: cfg.DestinationWARC,
		BadURLLog:       cfg.DestinationWARC + ".LOG",
		LinkTimeout:     time.Duration(cfg.LinkTimeout) * time.Millisecond,
		Workers:         int(cfg.CrawlTasks),
		CrawlRecursion:  int(cfg.CrawlRecursion),
		AcceptLanguages: acceptLanguages,
		RespectRobots:   cfg.RespectRobots,
		ReportInterval:  time.Second,
		Logger:          logger,
	})
}
