package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	engine "github.com/rxtech-lab/argo-equity/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-equity/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-equity/internal/fundamentals"
	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/market"
	"github.com/rxtech-lab/argo-equity/internal/strategy"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/provider"
)

const defaultSchemaName = "backtest-engine-v1-config.json"

// runAction loads the engine config, wires the selected data provider and
// strategies, and replays the backtest.
func runAction(ctx context.Context, cmd *cli.Command) error {
	raw, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cliLogger, err := newCliLogger(cmd.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = cliLogger.Sync() }()

	eng := enginev1.NewBacktestEngineV1()
	if err := eng.Initialize(string(raw)); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	// The engine has validated the document; decode it again for the fields
	// the market service and default strategy configs need.
	var config enginev1.BacktestEngineV1Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	dataProvider, err := newDataProvider(cmd.String("provider"), cmd.String("data"))
	if err != nil {
		return err
	}

	service, err := market.NewService(dataProvider, int(cmd.Int("retries")), config.CacheDirectory, cliLogger)
	if err != nil {
		return fmt.Errorf("failed to create market service: %w", err)
	}

	if err := eng.SetMarketService(service); err != nil {
		return fmt.Errorf("failed to set market service: %w", err)
	}

	capital := cmd.Float("capital")

	for _, spec := range cmd.StringSlice("strategy") {
		algo, err := buildAlgorithm(spec, config, cliLogger)
		if err != nil {
			return err
		}

		if err := eng.AddAlgorithm(algo, capital); err != nil {
			return fmt.Errorf("failed to add strategy %s: %w", algo.AlgorithmID(), err)
		}
	}

	onStart := engine.OnBacktestStartCallback(func(totalTicks, totalStrategies int) error {
		fmt.Printf("Replaying %d timestamps across %d strategies...\n", totalTicks, totalStrategies)

		return nil
	})
	onEnd := engine.OnBacktestEndCallback(func(err error) {
		if err != nil {
			fmt.Printf("Backtest stopped with error: %v\n", err)
		}
	})

	callbacks := engine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnTick:          nil,
		OnBacktestEnd:   &onEnd,
	}

	results, err := eng.Run(ctx, callbacks)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeBacktestInterrupted) {
			fmt.Println("Backtest canceled")

			return nil
		}

		return fmt.Errorf("backtest failed: %w", err)
	}

	report := results.String()
	fmt.Print(report)

	if output := cmd.String("output"); output != "" {
		if err := os.WriteFile(output, []byte(report), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		log.Printf("Report written to %s", output)
	}

	return nil
}

// schemaAction emits the JSON schema for the engine config or one of the
// built-in strategies, and can drop a sample engine config alongside it.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	target := cmd.String("for")

	schemaJSON, err := schemaFor(target)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		fmt.Println(schemaJSON)
	} else {
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		if err := os.WriteFile(output, []byte(schemaJSON), 0o644); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}

		log.Printf("Schema written to %s", output)
	}

	if sample := cmd.String("sample"); sample != "" {
		if target != "engine" {
			return fmt.Errorf("sample configs are only generated for the engine schema")
		}

		if err := writeSampleConfig(sample, output); err != nil {
			return err
		}
	}

	return nil
}

// writeSampleConfig writes a default engine config with a language-server
// schema header. An existing file is left untouched.
func writeSampleConfig(path, schemaPath string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	config := enginev1.EmptyConfig()

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config: %w", err)
	}

	schemaName := defaultSchemaName
	if schemaPath != "" {
		schemaName = filepath.Base(schemaPath)
	}

	yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

	if err := os.WriteFile(path, yamlBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}

	log.Printf("Sample config written to %s", path)

	return nil
}

func schemaFor(target string) (string, error) {
	switch target {
	case "engine":
		config := enginev1.EmptyConfig()

		return config.GenerateSchemaJSON()
	case "buyhold":
		return strategy.BuyAndHoldSchema()
	case "smacross":
		return strategy.SMACrossSchema()
	default:
		return "", fmt.Errorf("unknown schema target %q (supported: engine, buyhold, smacross)", target)
	}
}

// fundamentalsAction queries the fundamentals sidecar for one symbol and
// prints the selected datasets as JSON. The as-of date caps what the caches
// reveal to what a strategy replaying that moment could have seen.
func fundamentalsAction(ctx context.Context, cmd *cli.Command) error {
	apiKey := os.Getenv("ALPHAVANTAGE_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ALPHAVANTAGE_API_KEY environment variable is required for fundamentals")
	}

	asOf, err := parseAsOf(cmd.String("as-of"))
	if err != nil {
		return err
	}

	cliLogger, err := newCliLogger(cmd.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = cliLogger.Sync() }()

	fetcher, err := fundamentals.NewFetcher(fundamentals.Config{
		APIKey:         apiKey,
		CacheDirectory: cmd.String("cache"),
		BaseURL:        "",
		HTTPClient:     nil,
	}, cliLogger)
	if err != nil {
		return fmt.Errorf("failed to create fundamentals fetcher: %w", err)
	}

	symbol := strings.ToUpper(cmd.String("symbol"))

	report, err := fetchFundamentals(ctx, fetcher, symbol, cmd.StringSlice("dataset"), asOf)
	if err != nil {
		return err
	}

	rendered, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render fundamentals: %w", err)
	}

	fmt.Println(string(rendered))

	return nil
}

// fetchFundamentals pulls the requested datasets for symbol into one
// document keyed by dataset name.
func fetchFundamentals(ctx context.Context, fetcher *fundamentals.Fetcher, symbol string, datasets []string, asOf time.Time) (map[string]any, error) {
	report := map[string]any{
		"symbol": symbol,
		"as_of":  asOf.Format(time.RFC3339),
	}

	for _, dataset := range datasets {
		switch dataset {
		case "earnings":
			events, err := fetcher.EarningsCalendar(ctx, symbol, asOf)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch earnings calendar: %w", err)
			}

			report["earnings"] = events
		case "metrics":
			metrics, err := fetcher.FinancialMetrics(ctx, symbol)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch financial metrics: %w", err)
			}

			report["metrics"] = metrics
		case "income":
			statement, err := fetcher.QuarterlyIncome(ctx, symbol, asOf)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch quarterly income: %w", err)
			}

			report["income"] = statement
		case "sentiment":
			articles, err := fetcher.NewsSentiments(ctx, symbol, asOf)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch news sentiment: %w", err)
			}

			report["sentiment"] = articles
		default:
			return nil, fmt.Errorf("unknown dataset %q (supported: earnings, metrics, income, sentiment)", dataset)
		}
	}

	return report, nil
}

// parseAsOf reads the as-of date; empty means now.
func parseAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}

	asOf, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as-of date %q, expected YYYY-MM-DD: %w", value, err)
	}

	return asOf, nil
}

// newDataProvider maps a provider name to a configured provider. Polygon
// reads its API key from the POLYGON_API_KEY environment variable.
func newDataProvider(name, dataDir string) (provider.Provider, error) {
	switch provider.ProviderType(name) {
	case provider.ProviderPolygon:
		apiKey := os.Getenv("POLYGON_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("POLYGON_API_KEY environment variable is required for the polygon provider")
		}

		return provider.NewMarketDataProvider(provider.ProviderPolygon, apiKey)
	case provider.ProviderBinance:
		return provider.NewMarketDataProvider(provider.ProviderBinance, nil)
	case provider.ProviderFile:
		return provider.NewMarketDataProvider(provider.ProviderFile, dataDir)
	default:
		return nil, fmt.Errorf("unsupported provider %q (supported: %s)", name, strings.Join(marketdata.GetSupportedProviders(), ", "))
	}
}

// buildAlgorithm constructs one strategy from a CLI spec of the form "name"
// or "name=config.yaml". Without a config file the strategy trades the
// engine's tickers with its defaults.
func buildAlgorithm(spec string, config enginev1.BacktestEngineV1Config, cliLogger *logger.Logger) (strategy.Algorithm, error) {
	name, configPath := spec, ""
	if idx := strings.Index(spec, "="); idx >= 0 {
		name, configPath = spec[:idx], spec[idx+1:]
	}

	var strategyConfig string

	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read strategy config: %w", err)
		}

		strategyConfig = string(raw)
	}

	switch name {
	case "buyhold":
		if strategyConfig != "" {
			return strategy.NewBuyAndHoldFromYAML(strategyConfig, cliLogger)
		}

		return strategy.NewBuyAndHold(strategy.BuyAndHoldConfig{
			ID:              "buy-and-hold",
			Tickers:         config.Tickers,
			BudgetPerTicker: 0,
		}, cliLogger)
	case "smacross":
		if strategyConfig != "" {
			return strategy.NewSMACrossFromYAML(strategyConfig, cliLogger)
		}

		return strategy.NewSMACross(strategy.SMACrossConfig{
			ID:              "sma-crossover",
			Symbol:          config.Tickers[0],
			ShortPeriod:     0,
			LongPeriod:      0,
			CapitalFraction: 0,
		}, cliLogger)
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: buyhold, smacross)", name)
	}
}

func newCliLogger(verbose bool) (*logger.Logger, error) {
	if verbose {
		return logger.NewDevelopmentLogger()
	}

	return logger.NewLogger()
}

func main() {
	// Define the CLI application
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay trading strategies against historical market data",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a configured backtest and print its report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the engine YAML config file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   fmt.Sprintf("Data provider to use (%s)", strings.Join(marketdata.GetSupportedProviders(), ", ")),
						Value:   string(provider.ProviderPolygon),
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Data directory for the file provider",
						Value:   "data",
					},
					&cli.StringSliceFlag{
						Name:    "strategy",
						Aliases: []string{"s"},
						Usage:   "Strategy to run, `buyhold` or smacross, optionally name=config.yaml (repeatable)",
						Value:   []string{"buyhold"},
					},
					&cli.FloatFlag{
						Name:  "capital",
						Usage: "Initial cash per strategy",
						Value: 100_000,
					},
					&cli.IntFlag{
						Name:  "retries",
						Usage: "Maximum provider attempts per ticker",
						Value: 3,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to this file as well as stdout",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Enable debug logging",
					},
				},
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema for the engine or a built-in strategy config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "for",
						Usage: "Schema target: `engine`, buyhold or smacross",
						Value: "engine",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the schema to this file instead of stdout",
					},
					&cli.StringFlag{
						Name:  "sample",
						Usage: "Also write a sample engine config YAML to this path",
					},
				},
				Action: schemaAction,
			},
			{
				Name:  "fundamentals",
				Usage: "Look up company fundamentals for a symbol as of a date",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"t"},
						Usage:    "Ticker symbol to look up",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "as-of",
						Usage: "Hide records published on or after this date (`YYYY-MM-DD`, default now)",
					},
					&cli.StringSliceFlag{
						Name:  "dataset",
						Usage: "Dataset to fetch: `earnings`, metrics, income or sentiment (repeatable)",
						Value: []string{"earnings", "metrics", "income", "sentiment"},
					},
					&cli.StringFlag{
						Name:  "cache",
						Usage: "Directory for the fundamentals JSON caches",
						Value: filepath.Join("cache", "fundamentals"),
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Enable debug logging",
					},
				},
				Action: fundamentalsAction,
			},
		},
	}

	// Cancel the run context on interrupt so the engine can stop cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, stopping...")
		cancel()
	}()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
