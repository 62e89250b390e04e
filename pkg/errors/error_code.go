package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingProvider      ErrorCode = 102
	ErrCodeNoTickers            ErrorCode = 103
	ErrCodeNoStrategies         ErrorCode = 104
	ErrCodeInvalidInterval      ErrorCode = 105
	ErrCodeInvalidLookback      ErrorCode = 106
	ErrCodeDuplicateStrategy    ErrorCode = 107
	ErrCodeInvalidBar           ErrorCode = 108
	ErrCodeSingleTickerRequired ErrorCode = 109
	ErrCodeSymbolMismatch       ErrorCode = 110
	ErrCodeInvalidVersion       ErrorCode = 111

	// Data/Cache errors (200-299)
	ErrCodeDataNotFound     ErrorCode = 200
	ErrCodeCacheMiss        ErrorCode = 201
	ErrCodeCacheCorrupted   ErrorCode = 202
	ErrCodeCacheWriteFailed ErrorCode = 203
	ErrCodeQueryFailed      ErrorCode = 204
	ErrCodeVersionMismatch  ErrorCode = 205

	// Portfolio errors (500-599)
	ErrCodeInsufficientFunds  ErrorCode = 500
	ErrCodeInsufficientShares ErrorCode = 501
	ErrCodeInsufficientMargin ErrorCode = 502
	ErrCodePositionNotFound   ErrorCode = 503
	ErrCodeShortNotFound      ErrorCode = 504

	// Backtest errors (600-699)
	ErrCodeEmptyTimeline       ErrorCode = 600
	ErrCodeNotInitialized      ErrorCode = 601
	ErrCodeMissingTickerData   ErrorCode = 602
	ErrCodeResultsWriteFailed  ErrorCode = 603
	ErrCodeStrategyFailed      ErrorCode = 604
	ErrCodeServiceShutdown     ErrorCode = 605
	ErrCodeInitializationRace  ErrorCode = 606
	ErrCodeStatisticsNotFound  ErrorCode = 607
	ErrCodeLiquidationFailed   ErrorCode = 608
	ErrCodeBacktestInterrupted ErrorCode = 609

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeProviderUnavailable   ErrorCode = 701
	ErrCodeRateLimited           ErrorCode = 702
	ErrCodeMarketDataParseFailed ErrorCode = 703
	ErrCodeInvalidProvider       ErrorCode = 704
	ErrCodeHistoricalUnsupported ErrorCode = 705
	ErrCodeRetriesExhausted      ErrorCode = 706

	// Fundamentals errors (800-899)
	ErrCodeFundamentalsFetchFailed ErrorCode = 800
	ErrCodeFundamentalsStaleCache  ErrorCode = 801
)
