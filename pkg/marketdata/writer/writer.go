// Package writer persists fetched bar series to durable storage. The
// download tooling and the historical cache both write through BarWriter so
// the on-disk layout stays uniform.
package writer

import (
	"github.com/rxtech-lab/argo-equity/internal/types"
)

// BarWriter defines the interface for writing bar data to a destination.
type BarWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize completes the writing process (e.g., commits transactions, exports files).
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
