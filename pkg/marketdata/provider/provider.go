// Package provider contains the market data provider contract and its
// implementations. A provider serves minute OHLCV bars for exactly one ticker
// per historical fetch; the market service layer drives one call per ticker
// and handles retries and pacing on top of the per-provider rate limit.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
	ProviderFile    ProviderType = "file"
)

// AllProviderTypes lists the supported provider types, used for config schema enums.
var AllProviderTypes = []any{string(ProviderPolygon), string(ProviderBinance), string(ProviderFile)}

// Capabilities describes what data shapes a provider can serve, for runtime
// feature detection.
type Capabilities struct {
	SupportsHistorical bool
	SupportsRealTime   bool
	// Granularity is the finest bar resolution the provider serves.
	Granularity time.Duration
}

// DataError is the typed failure returned by provider operations. Retryable
// marks upstream conditions (transport failures, remote rate limiting,
// malformed responses) the caller may retry; argument and configuration
// errors are not DataErrors.
type DataError struct {
	Provider  ProviderType
	Message   string
	Retryable bool
	Cause     error
}

// NewDataError creates a DataError for the given provider.
func NewDataError(provider ProviderType, retryable bool, cause error, message string) *DataError {
	return &DataError{
		Provider:  provider,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewDataErrorf creates a DataError with a formatted message.
func NewDataErrorf(provider ProviderType, retryable bool, cause error, format string, args ...any) *DataError {
	return &DataError{
		Provider:  provider,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable,
		Cause:     cause,
	}
}

// Error implements the error interface.
func (e *DataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s provider: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DataError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is (or wraps) a DataError flagged retryable.
func IsRetryable(err error) bool {
	var dataErr *DataError
	if errors.As(err, &dataErr) {
		return dataErr.Retryable
	}

	return false
}

type Provider interface {
	// FetchHistoricalData fetches minute bars for exactly one ticker over
	// [start, end] inclusive. Passing zero or more than one ticker fails with
	// an argument error. Returned bars satisfy OHLC sanity; bars outside the
	// market session may or may not be included depending on the provider.
	FetchHistoricalData(ctx context.Context, tickers []string, start time.Time, end time.Time, market types.Market) (*types.HistoricalData, error)
	// FetchRealTimeData returns the latest quote per requested ticker.
	// Providers without a realtime feed return an empty response.
	FetchRealTimeData(ctx context.Context, tickers []string) (types.ProviderResponse, error)
	// IsAvailable is a cheap liveness probe against the upstream service.
	IsAvailable(ctx context.Context) bool
	// RateLimit returns the maximum calls per minute the provider tolerates.
	// The market service paces per-ticker fetches with this value.
	RateLimit() int
	// Capabilities returns the provider capabilities descriptor.
	Capabilities() Capabilities
}

// requireSingleTicker enforces the one-ticker-per-call contract shared by all
// historical fetch implementations.
func requireSingleTicker(tickers []string) (string, error) {
	if len(tickers) != 1 {
		return "", errors.Newf(errors.ErrCodeSingleTickerRequired, "historical fetch requires exactly one ticker, got %d", len(tickers))
	}

	return tickers[0], nil
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires an API key string config")
		}

		return NewPolygonProvider(apiKey)
	case ProviderBinance:
		return NewBinanceProvider()
	case ProviderFile:
		dataDir, ok := config.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "file provider requires a data directory string config")
		}

		return NewFileProvider(dataDir)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
