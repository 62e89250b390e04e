package market

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/internal/version"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/writer"
)

const (
	cacheDateFormat = "2006-01-02"
	cacheExt        = ".cache"
	manifestName    = ".cache_version"
)

// DiskCache persists per-ticker bar windows as Parquet files so repeated
// runs over the same window skip the upstream provider entirely. File names
// carry the ticker and the day-granularity window, so the cache key is
// (ticker, start date, end date).
//
// A version manifest in the cache directory records which release wrote the
// files. An incompatible manifest discards the whole cache rather than risk
// misreading it.
type DiskCache struct {
	dir    string
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDiskCache creates (or reopens) a cache rooted at dir, creating the
// directory if needed.
func NewDiskCache(dir string, log *logger.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to create cache directory %s", dir)
	}

	cache := &DiskCache{
		dir:    dir,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if err := cache.checkManifest(); err != nil {
		return nil, err
	}

	return cache, nil
}

// checkManifest enforces the cache format version. A missing manifest is
// claimed for the current version; an incompatible one wipes the cache and
// is rewritten.
func (c *DiskCache) checkManifest() error {
	manifestPath := filepath.Join(c.dir, manifestName)

	raw, err := os.ReadFile(manifestPath)
	if os.IsNotExist(err) {
		return c.writeManifest(manifestPath)
	}

	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheCorrupted, "failed to read cache version manifest", err)
	}

	written := strings.TrimSpace(string(raw))
	if err := version.CheckCacheCompatibility(version.GetVersion(), written); err != nil {
		c.logger.Warn("cache version incompatible, discarding cached data",
			zap.String("cacheVersion", written),
			zap.String("readerVersion", version.GetVersion()),
			zap.Error(err))

		if err := c.Clear(); err != nil {
			return err
		}

		return c.writeManifest(manifestPath)
	}

	return nil
}

func (c *DiskCache) writeManifest(path string) error {
	if err := os.WriteFile(path, []byte(version.GetVersion()+"\n"), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to write cache version manifest", err)
	}

	return nil
}

// filePath builds the cache file path for a ticker window, e.g.
// AAPL_2024-01-02_to_2024-02-01.cache.
func (c *DiskCache) filePath(ticker string, start, end time.Time) string {
	name := fmt.Sprintf("%s_%s_to_%s%s",
		ticker, start.Format(cacheDateFormat), end.Format(cacheDateFormat), cacheExt)

	return filepath.Join(c.dir, name)
}

// Save writes the window's bars to the ticker's cache file, replacing any
// previous file for the same window.
func (c *DiskCache) Save(data *types.HistoricalData, start, end time.Time) (err error) {
	path := c.filePath(data.Symbol(), start, end)

	w := writer.NewDuckDBWriter(path)
	if err = w.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to initialize cache writer", err)
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(errors.ErrCodeCacheWriteFailed, cerr, "failed to close cache writer for %s", path)
		}
	}()

	for _, bar := range data.Bars() {
		if err = w.Write(bar); err != nil {
			return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to write cache bar for %s", data.Symbol())
		}
	}

	if _, err = w.Finalize(); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to finalize cache file %s", path)
	}

	return nil
}

// Load reads the cached window for ticker, returning (nil, nil) on a cache
// miss. A file that cannot be read back is treated as corrupted: it is
// deleted so the next initialization refetches, and the miss is returned.
func (c *DiskCache) Load(ticker string, start, end time.Time) (*types.HistoricalData, error) {
	path := c.filePath(ticker, start, end)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCacheMiss, err, "failed to stat cache file %s", path)
	}

	data, err := c.readFile(path, ticker)
	if err != nil {
		c.logger.Warn("deleting corrupted cache file",
			zap.String("file", path),
			zap.Error(err))

		if rmErr := os.Remove(path); rmErr != nil {
			c.logger.Warn("failed to delete corrupted cache file",
				zap.String("file", path),
				zap.Error(rmErr))
		}

		return nil, nil
	}

	return data, nil
}

// readFile loads every bar in the cache file through DuckDB.
func (c *DiskCache) readFile(path, ticker string) (*types.HistoricalData, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheCorrupted, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	query, args, err := c.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume").
		From(fmt.Sprintf("read_parquet('%s')", path)).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheCorrupted, "failed to build cache query", err)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCacheCorrupted, err, "failed to read cache file %s", path)
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
			return nil, errors.Wrap(errors.ErrCodeCacheCorrupted, "failed to scan cached bar", err)
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
			return nil, errors.Wrapf(errors.ErrCodeCacheCorrupted, err, "invalid bar in cache file %s", path)
		}

		// Add rejects foreign symbols and out-of-order rows, both of which
		// mean the file does not hold what its name claims.
		if err := data.Add(bar); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeCacheCorrupted, err, "inconsistent cache file %s", path)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheCorrupted, "error iterating cached bars", err)
	}

	return data, nil
}

// Clear removes every cache file in the directory. Failures on individual
// files are logged and skipped; the version manifest is kept.
func (c *DiskCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to list cache directory %s", c.dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cacheExt) {
			continue
		}

		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			c.logger.Warn("failed to remove cache file",
				zap.String("file", entry.Name()),
				zap.Error(err))
		}
	}

	return nil
}
