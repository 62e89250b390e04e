// Package marketdata ties the provider implementations to the writer layer.
// It exposes the download client the CLIs use to persist historical bars as
// Parquet, plus a registry describing the supported providers and their
// download configuration schemas.
package marketdata

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/schollz/progressbar/v3"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/writer"
)

// OnDownloadProgress receives download progress updates. Current and total
// are measured in days of the requested range.
type OnDownloadProgress = func(current float64, total float64, message string)

// WriterType defines the type of market data writer.
type WriterType string

const (
	WriterDuckDB WriterType = "duckdb"
)

// ClientConfig holds the configuration for the market data download client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance file"`
	WriterType    WriterType            `validate:"required,oneof=duckdb"`
	DataPath      string                `validate:"required"`
	PolygonApiKey string                `validate:"required_if=ProviderType polygon"`
	FileDataDir   string                `validate:"required_if=ProviderType file"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Ticker    string       `validate:"required"`
	StartDate time.Time    `validate:"required"`
	EndDate   time.Time    `validate:"required,gtfield=StartDate"`
	Market    types.Market `validate:"required"`
}

// Client downloads historical bars from a provider and stores them using a
// writer. One Client serves one provider configuration.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
// onProgress may be nil when the caller does not need progress updates.
func NewClient(config ClientConfig, onProgress OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	var providerConfig any

	switch config.ProviderType {
	case provider.ProviderPolygon:
		providerConfig = config.PolygonApiKey
	case provider.ProviderBinance:
		providerConfig = nil
	case provider.ProviderFile:
		providerConfig = config.FileDataDir
	}

	marketProvider, err := provider.NewMarketDataProvider(config.ProviderType, providerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", config.ProviderType, err)
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download fetches the requested range from the provider and writes it out,
// returning the path of the produced file. The context cancels the fetch.
func (c *Client) Download(ctx context.Context, params DownloadParams) (path string, err error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	marketWriter, err := c.setupWriter(params)
	if err != nil {
		return "", fmt.Errorf("failed to setup writer: %w", err)
	}

	defer func() {
		if cerr := marketWriter.Close(); cerr != nil {
			if err == nil {
				err = fmt.Errorf("error closing writer: %w", cerr)
			} else {
				log.Printf("Error closing writer after another error: %v", cerr)
			}
		}
	}()

	totalDays := int(params.EndDate.Sub(params.StartDate).Hours()/24) + 1
	bar := progressbar.NewOptions(totalDays, progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", params.Ticker)), progressbar.OptionShowCount())

	c.reportProgress(0, float64(totalDays), fmt.Sprintf("Fetching %s from %s", params.Ticker, c.config.ProviderType))

	data, err := c.provider.FetchHistoricalData(ctx, []string{params.Ticker}, params.StartDate, params.EndDate, params.Market)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	processedCount := 0

	for _, b := range data.Bars() {
		if err := marketWriter.Write(b); err != nil {
			return "", fmt.Errorf("failed to write data: %w", err)
		}

		processedCount++
		if processedCount%1000 == 0 {
			daysElapsed := int(b.Time.Sub(params.StartDate).Hours() / 24)
			bar.Set(daysElapsed)
			c.reportProgress(float64(daysElapsed), float64(totalDays), fmt.Sprintf("Downloading %s", params.Ticker))
		}
	}

	bar.Finish()
	log.Printf("Finished downloading %d bars for %s.", processedCount, params.Ticker)
	c.reportProgress(float64(totalDays), float64(totalDays), fmt.Sprintf("Downloaded %s", params.Ticker))

	outputPath, err := marketWriter.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}

func (c *Client) reportProgress(current, total float64, message string) {
	if c.onProgress != nil {
		c.onProgress(current, total, message)
	}
}

// setupWriter initializes the appropriate market data writer based on configuration.
func (c *Client) setupWriter(params DownloadParams) (writer.BarWriter, error) {
	switch c.config.WriterType {
	case WriterDuckDB:
		// Filename: TICKER_START_END_1m.parquet. The file provider glob
		// picks these up, so a download output can feed offline runs.
		outputFileName := fmt.Sprintf("%s_%s_%s_1m.parquet",
			params.Ticker,
			params.StartDate.Format("2006-01-02"),
			params.EndDate.Format("2006-01-02"))
		outputPath := filepath.Join(c.config.DataPath, outputFileName)

		if _, err := os.Stat(c.config.DataPath); os.IsNotExist(err) {
			if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data path %s: %w", c.config.DataPath, err)
			}
		}

		duckdbWriter := writer.NewDuckDBWriter(outputPath)

		if err := duckdbWriter.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize DuckDB writer at %s: %w", outputPath, err)
		}

		return duckdbWriter, nil
	default:
		return nil, fmt.Errorf("unsupported writer type: %s", c.config.WriterType)
	}
}
