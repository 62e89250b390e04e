package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	enginev1 "github.com/rxtech-lab/argo-equity/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-equity/internal/fundamentals"
	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/types"
)

type BacktestCommandTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestBacktestCommandSuite(t *testing.T) {
	suite.Run(t, new(BacktestCommandTestSuite))
}

func (suite *BacktestCommandTestSuite) SetupSuite() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.logger = log
}

func (suite *BacktestCommandTestSuite) engineConfig(tickers ...string) enginev1.BacktestEngineV1Config {
	config := enginev1.EmptyConfig()
	config.Tickers = tickers

	return config
}

func (suite *BacktestCommandTestSuite) TestBuildAlgorithmDefaults() {
	config := suite.engineConfig("AAPL", "MSFT")

	algo, err := buildAlgorithm("buyhold", config, suite.logger)
	suite.Require().NoError(err)
	suite.Equal("buy-and-hold", algo.AlgorithmID())

	algo, err = buildAlgorithm("smacross", config, suite.logger)
	suite.Require().NoError(err)
	suite.Equal("sma-crossover", algo.AlgorithmID())
}

func (suite *BacktestCommandTestSuite) TestBuildAlgorithmRejectsUnknownName() {
	_, err := buildAlgorithm("momentum", suite.engineConfig("AAPL"), suite.logger)
	suite.Error(err)
	suite.Contains(err.Error(), "unknown strategy")
}

func (suite *BacktestCommandTestSuite) TestBuildAlgorithmFromConfigFile() {
	path := filepath.Join(suite.T().TempDir(), "buyhold.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("id: custom-bh\ntickers:\n  - TSLA\n"), 0o644))

	algo, err := buildAlgorithm("buyhold="+path, suite.engineConfig("AAPL"), suite.logger)
	suite.Require().NoError(err)
	suite.Equal("custom-bh", algo.AlgorithmID())
}

func (suite *BacktestCommandTestSuite) TestBuildAlgorithmMissingConfigFile() {
	_, err := buildAlgorithm("buyhold=/nonexistent/buyhold.yaml", suite.engineConfig("AAPL"), suite.logger)
	suite.Error(err)
	suite.Contains(err.Error(), "failed to read strategy config")
}

func (suite *BacktestCommandTestSuite) TestSchemaForTargets() {
	schemaJSON, err := schemaFor("engine")
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &schema))
	suite.Equal("backtest-engine-v1-config", schema["title"])

	schemaJSON, err = schemaFor("buyhold")
	suite.Require().NoError(err)
	suite.Contains(schemaJSON, "budget_per_ticker")

	schemaJSON, err = schemaFor("smacross")
	suite.Require().NoError(err)
	suite.Contains(schemaJSON, "short_period")

	_, err = schemaFor("unknown")
	suite.Error(err)
	suite.Contains(err.Error(), "unknown schema target")
}

func (suite *BacktestCommandTestSuite) TestNewDataProviderFile() {
	dir := suite.T().TempDir()

	p, err := newDataProvider("file", dir)
	suite.Require().NoError(err)
	suite.NotNil(p)
}

func (suite *BacktestCommandTestSuite) TestNewDataProviderPolygonRequiresKey() {
	suite.T().Setenv("POLYGON_API_KEY", "")

	_, err := newDataProvider("polygon", "")
	suite.Error(err)
	suite.Contains(err.Error(), "POLYGON_API_KEY")

	suite.T().Setenv("POLYGON_API_KEY", "test-key")

	p, err := newDataProvider("polygon", "")
	suite.Require().NoError(err)
	suite.NotNil(p)
}

func (suite *BacktestCommandTestSuite) TestNewDataProviderUnsupported() {
	_, err := newDataProvider("csv", "")
	suite.Error(err)
	suite.Contains(err.Error(), "unsupported provider")
	suite.Contains(err.Error(), "binance, file, polygon")
}

func (suite *BacktestCommandTestSuite) TestParseAsOf() {
	asOf, err := parseAsOf("2024-02-01")
	suite.Require().NoError(err)
	suite.True(asOf.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	now, err := parseAsOf("")
	suite.Require().NoError(err)
	suite.WithinDuration(time.Now(), now, time.Minute)

	_, err = parseAsOf("02/01/2024")
	suite.Error(err)
	suite.Contains(err.Error(), "expected YYYY-MM-DD")
}

// fundamentalsServer answers all four sidecar queries with minimal payloads.
func (suite *BacktestCommandTestSuite) fundamentalsServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("function") {
		case "EARNINGS_CALENDAR":
			fmt.Fprint(w, "symbol,name,reportDate,fiscalDateEnding,estimate,currency\nTSLA,Tesla Inc,2024-01-24,2023-12-31,0.73,USD\n")
		case "OVERVIEW":
			fmt.Fprint(w, `{"PERatio": "42.5", "ProfitMargin": "0.152", "OperatingMarginTTM": "0.094", "ReturnOnEquityTTM": "0.21"}`)
		case "INCOME_STATEMENT":
			fmt.Fprint(w, `{"quarterlyReports": [{"fiscalDateEnding": "2023-12-31", "totalRevenue": "25167000000", "grossProfit": "4438000000", "netIncome": "7928000000", "operatingIncome": "2064000000"}]}`)
		case "NEWS_SENTIMENT":
			fmt.Fprint(w, `{"feed": []}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func (suite *BacktestCommandTestSuite) TestFetchFundamentalsSelectsDatasets() {
	server := suite.fundamentalsServer()
	defer server.Close()

	fetcher, err := fundamentals.NewFetcher(fundamentals.Config{
		APIKey:         "test-key",
		CacheDirectory: "",
		BaseURL:        server.URL,
		HTTPClient:     nil,
	}, suite.logger)
	suite.Require().NoError(err)

	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	report, err := fetchFundamentals(context.Background(), fetcher, "TSLA", []string{"earnings", "metrics", "income", "sentiment"}, asOf)
	suite.Require().NoError(err)

	suite.Equal("TSLA", report["symbol"])
	suite.Contains(report, "earnings")
	suite.Contains(report, "income")
	suite.Contains(report, "sentiment")

	metrics, ok := report["metrics"].(types.FinancialMetrics)
	suite.Require().True(ok)
	suite.Equal(42.5, metrics.PERatio)

	report, err = fetchFundamentals(context.Background(), fetcher, "TSLA", []string{"metrics"}, asOf)
	suite.Require().NoError(err)
	suite.Contains(report, "metrics")
	suite.NotContains(report, "earnings")

	_, err = fetchFundamentals(context.Background(), fetcher, "TSLA", []string{"dividends"}, asOf)
	suite.Error(err)
	suite.Contains(err.Error(), "unknown dataset")
}

func (suite *BacktestCommandTestSuite) TestWriteSampleConfig() {
	path := filepath.Join(suite.T().TempDir(), "config", "backtest.yaml")
	suite.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))

	suite.Require().NoError(writeSampleConfig(path, "schemas/engine.json"))

	raw, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Contains(string(raw), "# yaml-language-server: $schema=engine.json")
	suite.Contains(string(raw), "tickers:")

	// A second write must not clobber an edited file.
	suite.Require().NoError(os.WriteFile(path, []byte("edited: true\n"), 0o644))
	suite.Require().NoError(writeSampleConfig(path, ""))

	raw, err = os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("edited: true\n", string(raw))
}
