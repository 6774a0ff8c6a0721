package main

import (
	"flag"
	"fmt"
	"os"

	"PricePulse/internal/di"
	"PricePulse/pkg/config"

	"github.com/shopspring/decimal"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	checkOnly := flag.Bool("check", false, "validate the config and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pricepulse: %v\n", err)
		return 2
	}
	if *checkOnly {
		fmt.Printf("config ok: env=%s source=%s horizons=%v\n", cfg.Environment, cfg.Store.Source, cfg.Forecast.Horizons)
		return 0
	}

	// savings and prices are emitted as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pricepulse: init: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pricepulse: %v\n", err)
		return 1
	}
	return 0
}
