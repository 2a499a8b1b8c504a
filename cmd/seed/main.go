// Command seed fills the configured database with synthetic daily rates.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/config"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/logging"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/platform/database"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/seed"
)

func main() {
	reset := flag.Bool("reset", false, "delete all stored rates before seeding")
	seedValue := flag.Uint64("seed", 0, "random seed (0 picks one at random)")
	years := flag.Int("years", 3, "years of history to generate")
	flag.Parse()

	cfg := config.Load()
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	store, err := database.Open(ctx, cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if *reset {
		n, err := store.Rates.DeleteAll(ctx)
		if err != nil {
			slog.Error("failed to reset rates", "error", err)
			os.Exit(1)
		}
		slog.Info("deleted existing rates", "count", n)
	}

	if *seedValue == 0 {
		*seedValue = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(*seedValue, *seedValue))

	start := time.Now()
	n, err := seed.Populate(ctx, store.Rates, rng, rate.SupportedCurrencies(), time.Now(), *years)
	if err != nil {
		slog.Error("seeding failed", "error", err, "written", n)
		os.Exit(1)
	}
	slog.Info("seeding finished",
		"records", n,
		"currencies", len(rate.SupportedCurrencies()),
		"seed", *seedValue,
		"duration", time.Since(start).String(),
	)
}
