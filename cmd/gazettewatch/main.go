package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gazettewatch/gazettewatch/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath string
		outputPath string
		dateStr    string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "gazettewatch.yaml", "Path to the YAML run configuration")
	flag.StringVar(&outputPath, "output", "", "Path to write the report JSON (overrides config; - for stdout)")
	flag.StringVar(&dateStr, "date", "", "Reference date as YYYY-MM-DD (overrides config; default today)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := app.LoadFile(configPath)
	if err != nil {
		log.Error().Err(err).Msg("loading configuration")
		os.Exit(2)
	}
	app.ApplyEnv(&cfg)
	if dateStr != "" {
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			log.Error().Err(err).Str("date", dateStr).Msg("invalid -date")
			os.Exit(2)
		}
		cfg.RefDate = d
	}
	if outputPath != "" {
		cfg.OutputPath = outputPath
	}
	cfg.Verbose = verbose

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("initializing")
		os.Exit(2)
	}
	defer a.Close()

	rep, err := a.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}

	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("encoding report")
		os.Exit(1)
	}
	b = append(b, '\n')

	switch cfg.OutputPath {
	case "", "-":
		if _, err := os.Stdout.Write(b); err != nil {
			log.Error().Err(err).Msg("writing report")
			os.Exit(1)
		}
	default:
		if err := os.WriteFile(cfg.OutputPath, b, 0o644); err != nil {
			log.Error().Err(err).Msg("writing report")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", cfg.OutputPath)
	}
}
