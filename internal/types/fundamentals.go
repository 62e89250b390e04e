package types

import "time"

// EarningsEvent is one scheduled or reported earnings date for a symbol.
type EarningsEvent struct {
	Symbol           string    `json:"symbol"`
	CompanyName      string    `json:"company_name"`
	ReportDate       time.Time `json:"report_date"`
	FiscalDateEnding string    `json:"fiscal_date_ending"`
}

// FinancialMetrics holds headline valuation and profitability ratios.
type FinancialMetrics struct {
	Symbol          string  `json:"symbol"`
	PERatio         float64 `json:"pe_ratio"`
	ProfitMargin    float64 `json:"profit_margin"`
	OperatingMargin float64 `json:"operating_margin"`
	ReturnOnEquity  float64 `json:"return_on_equity"`
}

// IncomeStatement carries quarterly line items, most recent first. Each map
// holds the numeric fields of one quarterly report keyed by field name,
// plus a "fiscalDateEnding" entry as unix milliseconds for as-of filtering.
type IncomeStatement struct {
	Symbol           string               `json:"symbol"`
	QuarterlyReports []map[string]float64 `json:"quarterly_reports"`
}

// TickerSentiment is the per-symbol slice of one news article's sentiment.
type TickerSentiment struct {
	Symbol         string  `json:"symbol"`
	RelevanceScore float64 `json:"relevance_score"`
	SentimentScore float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label"`
}

// NewsSentiment is one scored news article with its per-symbol breakdown.
type NewsSentiment struct {
	Title                 string            `json:"title"`
	URL                   string            `json:"url"`
	PublishedTime         time.Time         `json:"published_time"`
	Authors               []string          `json:"authors"`
	Summary               string            `json:"summary"`
	Source                string            `json:"source"`
	OverallSentimentScore float64           `json:"overall_sentiment_score"`
	OverallSentimentLabel string            `json:"overall_sentiment_label"`
	TickerSentiments      []TickerSentiment `json:"ticker_sentiments"`
}
