// Package fundamentals is the read-only sidecar for company data: earnings
// calendars, headline financial ratios, quarterly income statements, and
// scored news sentiment, fetched from an Alpha Vantage style HTTP API. It
// never sits on the replay hot path. Every accessor serves from a TTL cache
// that stores the full upstream record set and filters to records dated
// strictly before a caller-supplied as-of time, so a strategy replaying the
// past cannot see data published after the bar it is standing on.
package fundamentals

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

const (
	// defaultBaseURL is the Alpha Vantage query endpoint. Tests point
	// Config.BaseURL at a local server instead.
	defaultBaseURL = "https://www.alphavantage.co/query"

	// requestTimeout bounds each upstream call when no custom client is
	// supplied.
	requestTimeout = 10 * time.Second

	// dateLayout covers reportDate and fiscalDateEnding fields.
	dateLayout = "2006-01-02"

	// publishedLayout is the compact article timestamp format of the news
	// sentiment feed.
	publishedLayout = "20060102T150405"
)

// fiscalDateKey is the synthetic entry added to each quarterly report map,
// holding the fiscal date as unix milliseconds for as-of filtering.
const fiscalDateKey = "fiscalDateEnding"

// incomeFields are the line items kept from each quarterly report.
var incomeFields = []string{"totalRevenue", "grossProfit", "netIncome", "operatingIncome"}

// Config configures a Fetcher.
type Config struct {
	// APIKey authenticates every upstream request.
	APIKey string
	// CacheDirectory holds one JSON cache file per dataset. Empty keeps
	// all caches memory only.
	CacheDirectory string
	// BaseURL overrides the upstream endpoint. Empty selects the public
	// Alpha Vantage API.
	BaseURL string
	// HTTPClient overrides the default client and its timeout.
	HTTPClient *http.Client
}

// Fetcher serves fundamentals with one TTL cache per dataset. Caches hold
// the full unfiltered upstream response so a single fetch covers every as-of
// time a backtest will ask about.
type Fetcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *logger.Logger

	earnings  *ttlCache[[]types.EarningsEvent]
	metrics   *ttlCache[types.FinancialMetrics]
	income    *ttlCache[types.IncomeStatement]
	sentiment *ttlCache[[]types.NewsSentiment]

	now func() time.Time
}

// NewFetcher creates a fundamentals fetcher. When cfg.CacheDirectory is set,
// existing cache files are loaded best effort; a corrupted file is logged
// and treated as empty. A nil log falls back to the production logger.
func NewFetcher(cfg Config, log *logger.Logger) (*Fetcher, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "fundamentals api key is required")
	}

	if log == nil {
		var err error

		log, err = logger.NewLogger()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}

	if cfg.CacheDirectory != "" {
		if err := os.MkdirAll(cfg.CacheDirectory, 0o755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to create fundamentals cache directory %s", cfg.CacheDirectory)
		}
	}

	cachePath := func(name string) string {
		if cfg.CacheDirectory == "" {
			return ""
		}

		return filepath.Join(cfg.CacheDirectory, name)
	}

	f := &Fetcher{
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		client:    client,
		logger:    log,
		earnings:  newTTLCache[[]types.EarningsEvent](cachePath("earnings_cache.json")),
		metrics:   newTTLCache[types.FinancialMetrics](cachePath("metrics_cache.json")),
		income:    newTTLCache[types.IncomeStatement](cachePath("income_cache.json")),
		sentiment: newTTLCache[[]types.NewsSentiment](cachePath("sentiment_cache.json")),
		now:       time.Now,
	}

	if err := f.earnings.load(); err != nil {
		log.Warn("fundamentals cache load failed",
			zap.String("dataset", "earnings"),
			zap.Error(err))
	}

	if err := f.metrics.load(); err != nil {
		log.Warn("fundamentals cache load failed",
			zap.String("dataset", "metrics"),
			zap.Error(err))
	}

	if err := f.income.load(); err != nil {
		log.Warn("fundamentals cache load failed",
			zap.String("dataset", "income"),
			zap.Error(err))
	}

	if err := f.sentiment.load(); err != nil {
		log.Warn("fundamentals cache load failed",
			zap.String("dataset", "sentiment"),
			zap.Error(err))
	}

	return f, nil
}

// EarningsCalendar returns symbol's earnings dates that fall strictly before
// asOf, fetching the upstream 12 month calendar when the cache is cold.
func (f *Fetcher) EarningsCalendar(ctx context.Context, symbol string, asOf time.Time) ([]types.EarningsEvent, error) {
	if cached, ok := f.earnings.get(symbol, f.now()); ok {
		return filterEarnings(cached, asOf), nil
	}

	query := url.Values{}
	query.Set("function", "EARNINGS_CALENDAR")
	query.Set("symbol", symbol)
	query.Set("horizon", "12month")

	raw, err := f.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	events, err := parseEarningsCSV(symbol, raw)
	if err != nil {
		return nil, err
	}

	f.earnings.put(symbol, events, f.now())

	if err := f.earnings.save(); err != nil {
		f.logger.Warn("fundamentals cache save failed",
			zap.String("dataset", "earnings"),
			zap.Error(err))
	}

	return filterEarnings(events, asOf), nil
}

// FinancialMetrics returns symbol's headline ratios. Ratios are a current
// snapshot without publication dates, so no as-of filter applies.
func (f *Fetcher) FinancialMetrics(ctx context.Context, symbol string) (types.FinancialMetrics, error) {
	if cached, ok := f.metrics.get(symbol, f.now()); ok {
		return cached, nil
	}

	query := url.Values{}
	query.Set("function", "OVERVIEW")
	query.Set("symbol", symbol)

	raw, err := f.fetch(ctx, query)
	if err != nil {
		return types.FinancialMetrics{}, err
	}

	var payload overviewPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return types.FinancialMetrics{}, errors.Wrapf(errors.ErrCodeFundamentalsFetchFailed, err, "failed to decode company overview for %s", symbol)
	}

	metrics := types.FinancialMetrics{
		Symbol:          symbol,
		PERatio:         parseRatio(payload.PERatio),
		ProfitMargin:    parseRatio(payload.ProfitMargin),
		OperatingMargin: parseRatio(payload.OperatingMarginTTM),
		ReturnOnEquity:  parseRatio(payload.ReturnOnEquityTTM),
	}

	f.metrics.put(symbol, metrics, f.now())

	if err := f.metrics.save(); err != nil {
		f.logger.Warn("fundamentals cache save failed",
			zap.String("dataset", "metrics"),
			zap.Error(err))
	}

	return metrics, nil
}

// QuarterlyIncome returns symbol's quarterly income statement limited to
// quarters whose fiscal date ends strictly before asOf.
func (f *Fetcher) QuarterlyIncome(ctx context.Context, symbol string, asOf time.Time) (types.IncomeStatement, error) {
	if cached, ok := f.income.get(symbol, f.now()); ok {
		return filterIncome(cached, asOf), nil
	}

	query := url.Values{}
	query.Set("function", "INCOME_STATEMENT")
	query.Set("symbol", symbol)

	raw, err := f.fetch(ctx, query)
	if err != nil {
		return types.IncomeStatement{}, err
	}

	var payload incomePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return types.IncomeStatement{}, errors.Wrapf(errors.ErrCodeFundamentalsFetchFailed, err, "failed to decode income statement for %s", symbol)
	}

	statement := types.IncomeStatement{
		Symbol:           symbol,
		QuarterlyReports: make([]map[string]float64, 0, len(payload.QuarterlyReports)),
	}

	for _, report := range payload.QuarterlyReports {
		fiscalDate, err := time.Parse(dateLayout, report[fiscalDateKey])
		if err != nil {
			return types.IncomeStatement{}, errors.Wrapf(errors.ErrCodeFundamentalsFetchFailed, err, "bad fiscal date %q in income statement for %s", report[fiscalDateKey], symbol)
		}

		row := make(map[string]float64, len(incomeFields)+1)
		for _, field := range incomeFields {
			row[field] = parseRatio(report[field])
		}

		row[fiscalDateKey] = float64(fiscalDate.UnixMilli())

		statement.QuarterlyReports = append(statement.QuarterlyReports, row)
	}

	f.income.put(symbol, statement, f.now())

	if err := f.income.save(); err != nil {
		f.logger.Warn("fundamentals cache save failed",
			zap.String("dataset", "income"),
			zap.Error(err))
	}

	return filterIncome(statement, asOf), nil
}

// NewsSentiments returns scored articles mentioning symbol that were
// published strictly before asOf.
func (f *Fetcher) NewsSentiments(ctx context.Context, symbol string, asOf time.Time) ([]types.NewsSentiment, error) {
	if cached, ok := f.sentiment.get(symbol, f.now()); ok {
		return filterSentiments(cached, asOf), nil
	}

	query := url.Values{}
	query.Set("function", "NEWS_SENTIMENT")
	query.Set("tickers", symbol)

	raw, err := f.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	var payload sentimentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFundamentalsFetchFailed, err, "failed to decode news sentiment for %s", symbol)
	}

	if payload.Feed == nil {
		return nil, errors.Newf(errors.ErrCodeFundamentalsFetchFailed, "news sentiment response for %s has no feed", symbol)
	}

	articles := make([]types.NewsSentiment, 0, len(payload.Feed))

	for _, article := range payload.Feed {
		published, err := time.Parse(publishedLayout, article.TimePublished)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeFundamentalsFetchFailed, err, "bad publication time %q in news sentiment for %s", article.TimePublished, symbol)
		}

		tickerSentiments := make([]types.TickerSentiment, 0, len(article.TickerSentiment))
		for _, item := range article.TickerSentiment {
			tickerSentiments = append(tickerSentiments, types.TickerSentiment{
				Symbol:         item.Ticker,
				RelevanceScore: parseRatio(item.RelevanceScore),
				SentimentScore: parseRatio(item.TickerSentimentScore),
				SentimentLabel: item.TickerSentimentLabel,
			})
		}

		articles = append(articles, types.NewsSentiment{
			Title:                 article.Title,
			URL:                   article.URL,
			PublishedTime:         published,
			Authors:               article.Authors,
			Summary:               article.Summary,
			Source:                article.Source,
			OverallSentimentScore: article.OverallSentimentScore,
			OverallSentimentLabel: article.OverallSentimentLabel,
			TickerSentiments:      tickerSentiments,
		})
	}

	f.sentiment.put(symbol, articles, f.now())

	if err := f.sentiment.save(); err != nil {
		f.logger.Warn("fundamentals cache save failed",
			zap.String("dataset", "sentiment"),
			zap.Error(err))
	}

	return filterSentiments(articles, asOf), nil
}

// fetch performs one authenticated GET against the query endpoint.
func (f *Fetcher) fetch(ctx context.Context, query url.Values) ([]byte, error) {
	query.Set("apikey", f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFundamentalsFetchFailed, "failed to build fundamentals request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFundamentalsFetchFailed, "fundamentals request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeFundamentalsFetchFailed, "fundamentals api returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFundamentalsFetchFailed, "failed to read fundamentals response", err)
	}

	return raw, nil
}

// overviewPayload is the subset of the OVERVIEW response we keep. The api
// serializes every ratio as a string, with "None" for missing values.
type overviewPayload struct {
	PERatio            string `json:"PERatio"`
	ProfitMargin       string `json:"ProfitMargin"`
	OperatingMarginTTM string `json:"OperatingMarginTTM"`
	ReturnOnEquityTTM  string `json:"ReturnOnEquityTTM"`
}

type incomePayload struct {
	QuarterlyReports []map[string]string `json:"quarterlyReports"`
}

type sentimentPayload struct {
	Feed []sentimentArticle `json:"feed"`
}

type sentimentArticle struct {
	Title                 string                `json:"title"`
	URL                   string                `json:"url"`
	TimePublished         string                `json:"time_published"`
	Authors               []string              `json:"authors"`
	Summary               string                `json:"summary"`
	Source                string                `json:"source"`
	OverallSentimentScore float64               `json:"overall_sentiment_score"`
	OverallSentimentLabel string                `json:"overall_sentiment_label"`
	TickerSentiment       []tickerSentimentItem `json:"ticker_sentiment"`
}

type tickerSentimentItem struct {
	Ticker               string `json:"ticker"`
	RelevanceScore       string `json:"relevance_score"`
	TickerSentimentScore string `json:"ticker_sentiment_score"`
	TickerSentimentLabel string `json:"ticker_sentiment_label"`
}

// parseEarningsCSV decodes an EARNINGS_CALENDAR payload. The columns are
// symbol, name, reportDate, fiscalDateEnding, estimate, currency; rows with
// fewer than four fields are skipped.
func parseEarningsCSV(symbol string, raw []byte) ([]types.EarningsEvent, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFundamentalsFetchFailed, err, "failed to parse earnings calendar for %s", symbol)
	}

	events := make([]types.EarningsEvent, 0, len(records))

	for i, record := range records {
		// First row is the header.
		if i == 0 || len(record) < 4 {
			continue
		}

		reportDate, err := time.Parse(dateLayout, record[2])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeFundamentalsFetchFailed, err, "bad report date %q in earnings calendar for %s", record[2], symbol)
		}

		events = append(events, types.EarningsEvent{
			Symbol:           record[0],
			CompanyName:      record[1],
			ReportDate:       reportDate,
			FiscalDateEnding: record[3],
		})
	}

	return events, nil
}

// parseRatio tolerates the api's "None", "-" and empty placeholders by
// mapping anything non-numeric to zero.
func parseRatio(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return v
}

func filterEarnings(events []types.EarningsEvent, asOf time.Time) []types.EarningsEvent {
	out := make([]types.EarningsEvent, 0, len(events))

	for _, event := range events {
		if event.ReportDate.Before(asOf) {
			out = append(out, event)
		}
	}

	return out
}

func filterIncome(statement types.IncomeStatement, asOf time.Time) types.IncomeStatement {
	out := types.IncomeStatement{
		Symbol:           statement.Symbol,
		QuarterlyReports: make([]map[string]float64, 0, len(statement.QuarterlyReports)),
	}

	for _, report := range statement.QuarterlyReports {
		fiscalDate := time.UnixMilli(int64(report[fiscalDateKey]))
		if fiscalDate.Before(asOf) {
			out.QuarterlyReports = append(out.QuarterlyReports, report)
		}
	}

	return out
}

func filterSentiments(articles []types.NewsSentiment, asOf time.Time) []types.NewsSentiment {
	out := make([]types.NewsSentiment, 0, len(articles))

	for _, article := range articles {
		if article.PublishedTime.Before(asOf) {
			out = append(out, article)
		}
	}

	return out
}
