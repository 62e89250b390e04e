package provider

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// FileProvider serves bars from a directory of Parquet files named
// <TICKER>.parquet or <TICKER>_*.parquet, as produced by the download
// tooling. It is the offline counterpart of the network providers:
// deterministic, always available and effectively unlimited.
type FileProvider struct {
	dataDir string
	sq      squirrel.StatementBuilderType
}

// NewFileProvider creates a provider over the given data directory.
func NewFileProvider(dataDir string) (Provider, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidProvider, err, "file provider data directory %s is not accessible", dataDir)
	}

	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "file provider path %s is not a directory", dataDir)
	}

	return &FileProvider{
		dataDir: dataDir,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// tickerFiles lists the Parquet files holding data for the given ticker.
func (f *FileProvider) tickerFiles(ticker string) ([]string, error) {
	var files []string

	for _, pattern := range []string{ticker + ".parquet", ticker + "_*.parquet"} {
		matches, err := filepath.Glob(filepath.Join(f.dataDir, pattern))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "bad file pattern for ticker %s", ticker)
		}

		files = append(files, matches...)
	}

	return files, nil
}

// FetchHistoricalData implements Provider by querying the ticker's Parquet
// files through DuckDB. Bars failing OHLC sanity are dropped.
func (f *FileProvider) FetchHistoricalData(ctx context.Context, tickers []string, start time.Time, end time.Time, _ types.Market) (*types.HistoricalData, error) {
	ticker, err := requireSingleTicker(tickers)
	if err != nil {
		return nil, err
	}

	files, err := f.tickerFiles(ticker)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, NewDataErrorf(ProviderFile, false, nil, "no parquet files for %s under %s", ticker, f.dataDir)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, NewDataError(ProviderFile, false, err, "failed to open DuckDB connection")
	}
	defer db.Close()

	// Create a view over the file list - squirrel has no CREATE VIEW support.
	quoted := make([]string, len(files))
	for i, file := range files {
		quoted[i] = fmt.Sprintf("'%s'", file)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT * FROM read_parquet([%s])
	`, strings.Join(quoted, ", ")))
	if err != nil {
		return nil, NewDataErrorf(ProviderFile, false, err, "failed to create view over parquet files for %s", ticker)
	}

	query, args, err := f.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume").
		From("market_data").
		Where(squirrel.And{
			squirrel.Eq{"symbol": ticker},
			squirrel.GtOrEq{"time": start},
			squirrel.LtOrEq{"time": end},
		}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, NewDataError(ProviderFile, false, err, "failed to build range query")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewDataErrorf(ProviderFile, false, err, "failed to query parquet data for %s", ticker)
	}
	defer rows.Close()

	data := types.NewHistoricalData(ticker)

	for rows.Next() {
		var (
			timestamp                           time.Time
			symbol                              string
			open, high, low, closePrice, volume float64
		)

		if err := rows.Scan(&timestamp, &symbol, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, NewDataError(ProviderFile, false, err, "failed to scan bar row")
		}

		bar := types.Bar{
			Symbol: symbol,
			Time:   timestamp,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		}

		if err := bar.Validate(); err != nil {
			continue
		}

		if err := data.Add(bar); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, NewDataError(ProviderFile, false, err, "error iterating bar rows")
	}

	return data, nil
}

// FetchRealTimeData implements Provider. Local files carry no realtime feed,
// so the response is always empty.
func (f *FileProvider) FetchRealTimeData(_ context.Context, _ []string) (types.ProviderResponse, error) {
	return types.ProviderResponse{
		Quotes: map[string]types.Bar{},
		Metadata: types.ResponseMetadata{
			Provider:    string(ProviderFile),
			RequestedAt: time.Now(),
			Duration:    0,
			RequestID:   uuid.New().String(),
		},
	}, nil
}

// IsAvailable reports whether the data directory is readable.
func (f *FileProvider) IsAvailable(_ context.Context) bool {
	info, err := os.Stat(f.dataDir)

	return err == nil && info.IsDir()
}

// RateLimit implements Provider. Local reads need no pacing.
func (f *FileProvider) RateLimit() int {
	return math.MaxInt32
}

// Capabilities implements Provider.
func (f *FileProvider) Capabilities() Capabilities {
	return Capabilities{
		SupportsHistorical: true,
		SupportsRealTime:   false,
		Granularity:        time.Minute,
	}
}
