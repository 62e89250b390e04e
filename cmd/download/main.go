package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/provider"
)

// parseMarket validates the market flag against the supported exchanges.
func parseMarket(name string) (types.Market, error) {
	market := types.Market(name)
	if !market.Valid() {
		return "", fmt.Errorf("unsupported market %q (supported: %v)", name, types.AllMarkets)
	}

	return market, nil
}

// downloadAction is the core logic executed by the CLI command.
// It parses arguments, sets up the market data client, and starts the download process.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	// Retrieve flag values from the context
	ticker := cmd.String("ticker")
	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")
	providerFlag := cmd.String("provider")

	market, err := parseMarket(cmd.String("market"))
	if err != nil {
		return err
	}

	// Create client configuration
	clientConfig := marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(providerFlag),
		WriterType:    marketdata.WriterType(cmd.String("writer")),
		DataPath:      cmd.String("data"),
		PolygonApiKey: os.Getenv("POLYGON_API_KEY"),
		FileDataDir:   cmd.String("source"),
	}

	// Create market data client
	client, err := marketdata.NewClient(clientConfig, nil)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	// Create download parameters
	downloadParams := marketdata.DownloadParams{
		Ticker:    ticker,
		StartDate: startDate,
		EndDate:   endDate,
		Market:    market,
	}

	// Execute download
	log.Printf("Starting download for %s from %s to %s using %s provider...",
		ticker, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"), providerFlag)

	path, err := client.Download(ctx, downloadParams)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	log.Printf("Download completed successfully: %s", path)

	return nil
}

func main() {
	// Define the CLI application
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical market data into Parquet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "Stock ticker symbol",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format (or other RFC3339 compatible)",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:     "end",
				Aliases:  []string{"e"},
				Usage:    "End date in `YYYY-MM-DD` format (or other RFC3339 compatible). Defaults to today.",
				Value:    time.Now(), // Default to today
				Required: false,      // Has a default value
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:     "provider",
				Aliases:  []string{"p"},
				Usage:    fmt.Sprintf("Data provider to use (e.g., %s, %s, %s)", provider.ProviderPolygon, provider.ProviderBinance, provider.ProviderFile),
				Value:    string(provider.ProviderPolygon), // Default provider
				Required: false,
			},
			&cli.StringFlag{
				Name:     "writer",
				Aliases:  []string{"w"},
				Usage:    fmt.Sprintf("Data writer format (e.g., %s)", marketdata.WriterDuckDB),
				Value:    string(marketdata.WriterDuckDB), // Default writer
				Required: false,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the data output directory",
				Value:    "data", // Default data directory
				Required: false,
			},
			&cli.StringFlag{
				Name:     "source",
				Usage:    "Input directory for the file provider",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "market",
				Aliases:  []string{"m"},
				Usage:    "Market session used to bound the fetch",
				Value:    string(types.MarketNYSE),
				Required: false,
			},
		},
		Action: downloadAction, // Assign the action function
	}

	// Run the CLI application
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
