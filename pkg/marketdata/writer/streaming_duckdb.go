package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/argo-equity/internal/types"
)

// StreamingDuckDBWriter implements BarWriter for live quote capture with
// append support. Bars are upserted on (symbol, time) and the backing Parquet
// file is re-exported after every write, so the file survives restarts and a
// re-polled minute replaces the earlier observation instead of duplicating it.
type StreamingDuckDBWriter struct {
	db         *sql.DB
	outputPath string
	mu         sync.Mutex
}

// NewStreamingDuckDBWriter creates a writer persisting to
// {dataDir}/stream_data_{providerName}_{interval}.parquet.
func NewStreamingDuckDBWriter(dataDir, providerName, interval string) *StreamingDuckDBWriter {
	filename := fmt.Sprintf("stream_data_%s_%s.parquet", providerName, interval)
	outputPath := filepath.Join(dataDir, filename)

	return &StreamingDuckDBWriter{
		db:         nil,
		outputPath: outputPath,
		mu:         sync.Mutex{},
	}
}

// Initialize opens the database and loads any bars already present in the
// Parquet file from a previous run.
func (w *StreamingDuckDBWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(w.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	w.db = db

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			id TEXT,
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, time)
		)
	`)
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := os.Stat(w.outputPath); err == nil {
		_, err = w.db.Exec(fmt.Sprintf(`
			INSERT INTO market_data
			SELECT * FROM read_parquet('%s')
			ON CONFLICT (symbol, time) DO NOTHING
		`, w.outputPath))
		if err != nil {
			// A corrupted or empty file is overwritten by the next export.
			_ = err
		}
	}

	return nil
}

// Write upserts a single bar and re-exports the Parquet file.
func (w *StreamingDuckDBWriter) Write(bar types.Bar) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return fmt.Errorf("writer not initialized")
	}

	id := uuid.New().String()

	_, err := w.db.Exec(`
		INSERT INTO market_data (id, time, symbol, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, time) DO UPDATE SET
			id = excluded.id,
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`, id, bar.Time, bar.Symbol, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("failed to insert bar: %w", err)
	}

	if err := w.exportToParquet(); err != nil {
		return fmt.Errorf("failed to export to parquet: %w", err)
	}

	return nil
}

// Flush forces an export to parquet.
func (w *StreamingDuckDBWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return fmt.Errorf("writer not initialized")
	}

	return w.exportToParquet()
}

// Finalize exports the data and returns the output path. Called when the
// capture loop stops.
func (w *StreamingDuckDBWriter) Finalize() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return "", fmt.Errorf("writer not initialized")
	}

	if err := w.exportToParquet(); err != nil {
		return "", err
	}

	return w.outputPath, nil
}

// GetOutputPath returns the parquet file path.
func (w *StreamingDuckDBWriter) GetOutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *StreamingDuckDBWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}

		w.db = nil
	}

	return nil
}

// exportToParquet exports the current data to the parquet file.
func (w *StreamingDuckDBWriter) exportToParquet() error {
	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM market_data ORDER BY time ASC)
		TO '%s' (FORMAT PARQUET)
	`, w.outputPath))
	if err != nil {
		return fmt.Errorf("failed to export to parquet: %w", err)
	}

	return nil
}

// Verify StreamingDuckDBWriter implements the BarWriter interface.
var _ BarWriter = (*StreamingDuckDBWriter)(nil)
