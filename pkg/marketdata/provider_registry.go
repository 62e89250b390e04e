package marketdata

import (
	"sort"

	"github.com/rxtech-lab/argo-equity/internal/strategy"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/provider"
)

// ProviderInfo contains metadata about a market data provider.
type ProviderInfo struct {
	Name             string `json:"name"`
	DisplayName      string `json:"displayName"`
	Description      string `json:"description"`
	RequiresAuth     bool   `json:"requiresAuth"`
	SupportsRealTime bool   `json:"supportsRealTime"`
}

// providerRegistry holds metadata about all supported providers.
var providerRegistry = map[provider.ProviderType]ProviderInfo{
	provider.ProviderPolygon: {
		Name:             string(provider.ProviderPolygon),
		DisplayName:      "Polygon.io",
		Description:      "US stock market data provider with real-time and historical OHLCV data",
		RequiresAuth:     true,
		SupportsRealTime: true,
	},
	provider.ProviderBinance: {
		Name:             string(provider.ProviderBinance),
		DisplayName:      "Binance",
		Description:      "Cryptocurrency exchange with extensive market data for crypto trading pairs",
		RequiresAuth:     false,
		SupportsRealTime: true,
	},
	provider.ProviderFile: {
		Name:             string(provider.ProviderFile),
		DisplayName:      "Local Files",
		Description:      "Offline provider reading per-ticker Parquet files from a local directory",
		RequiresAuth:     false,
		SupportsRealTime: false,
	},
}

// GetSupportedProviders returns the names of all supported providers in
// alphabetical order.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[provider.ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}

	return info, nil
}

// GetDownloadConfigSchema returns the JSON schema for a provider's download configuration.
func GetDownloadConfigSchema(providerName string) (string, error) {
	switch provider.ProviderType(providerName) {
	case provider.ProviderPolygon:
		//nolint:exhaustruct // Empty struct is intentional for schema generation
		return strategy.ToJSONSchema(PolygonDownloadConfig{})
	case provider.ProviderBinance:
		//nolint:exhaustruct // Empty struct is intentional for schema generation
		return strategy.ToJSONSchema(BinanceDownloadConfig{})
	case provider.ProviderFile:
		//nolint:exhaustruct // Empty struct is intentional for schema generation
		return strategy.ToJSONSchema(FileDownloadConfig{})
	default:
		return "", errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}
}

// ParseDownloadConfig parses a JSON configuration string for the given provider.
// Returns the parsed config as an interface{} which can be type-asserted to the specific config type.
func ParseDownloadConfig(providerName string, jsonConfig string) (interface{}, error) {
	switch provider.ProviderType(providerName) {
	case provider.ProviderPolygon:
		return ParsePolygonConfig(jsonConfig)
	case provider.ProviderBinance:
		return ParseBinanceConfig(jsonConfig)
	case provider.ProviderFile:
		return ParseFileConfig(jsonConfig)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}
}
