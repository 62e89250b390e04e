package types

import "time"

// ResponseMetadata describes where a realtime quote response came from and
// how long the upstream call took.
type ResponseMetadata struct {
	Provider    string        `json:"provider"`
	RequestedAt time.Time     `json:"requested_at"`
	Duration    time.Duration `json:"duration"`
	RequestID   string        `json:"request_id"`
}

// ProviderResponse carries the latest quote per symbol from a realtime fetch.
type ProviderResponse struct {
	Quotes   map[string]Bar   `json:"quotes"`
	Metadata ResponseMetadata `json:"metadata"`
}
