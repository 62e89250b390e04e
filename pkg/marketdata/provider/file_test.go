package provider

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/rxtech-lab/argo-equity/pkg/marketdata/writer"
)

type FileProviderTestSuite struct {
	suite.Suite
	tempDir string
}

func TestFileProviderSuite(t *testing.T) {
	suite.Run(t, new(FileProviderTestSuite))
}

func (suite *FileProviderTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "file-provider-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir
}

func (suite *FileProviderTestSuite) TearDownTest() {
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

// writeFixture persists count one-minute bars starting at baseTime into a
// Parquet file under the test directory.
func (suite *FileProviderTestSuite) writeFixture(filename, symbol string, baseTime time.Time, count int) []types.Bar {
	w := writer.NewDuckDBWriter(filepath.Join(suite.tempDir, filename))
	suite.Require().NoError(w.Initialize())

	bars := make([]types.Bar, 0, count)

	for i := 0; i < count; i++ {
		bar := types.Bar{
			Symbol: symbol,
			Time:   baseTime.Add(time.Duration(i) * time.Minute),
			Open:   150.0 + float64(i),
			High:   155.0 + float64(i),
			Low:    148.0 + float64(i),
			Close:  152.0 + float64(i),
			Volume: 1000.0,
		}

		suite.Require().NoError(w.Write(bar))
		bars = append(bars, bar)
	}

	_, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Require().NoError(w.Close())

	return bars
}

func (suite *FileProviderTestSuite) newProvider() Provider {
	p, err := NewFileProvider(suite.tempDir)
	suite.Require().NoError(err)

	return p
}

func (suite *FileProviderTestSuite) TestNewFileProviderValidation() {
	_, err := NewFileProvider(filepath.Join(suite.tempDir, "missing"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))

	filePath := filepath.Join(suite.tempDir, "not-a-dir")
	suite.Require().NoError(os.WriteFile(filePath, []byte("x"), 0644))

	_, err = NewFileProvider(filePath)
	suite.Error(err)
	suite.Contains(err.Error(), "not a directory")
}

func (suite *FileProviderTestSuite) TestFetchHistoricalDataRoundTrip() {
	baseTime := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	fixtures := suite.writeFixture("AAPL.parquet", "AAPL", baseTime, 5)

	p := suite.newProvider()

	data, err := p.FetchHistoricalData(context.Background(), []string{"AAPL"},
		baseTime, baseTime.Add(time.Hour), types.MarketNYSE)
	suite.Require().NoError(err)
	suite.Equal(5, data.Len())

	bars := data.Bars()
	for i, bar := range bars {
		suite.True(bar.Time.Equal(fixtures[i].Time), "bar %d time mismatch", i)
		suite.Equal(fixtures[i].Open, bar.Open)
		suite.Equal(fixtures[i].Close, bar.Close)
		suite.Equal("AAPL", bar.Symbol)
	}
}

func (suite *FileProviderTestSuite) TestFetchHistoricalDataWindowFilter() {
	baseTime := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	suite.writeFixture("AAPL.parquet", "AAPL", baseTime, 10)

	p := suite.newProvider()

	// The window bounds are inclusive on both ends.
	data, err := p.FetchHistoricalData(context.Background(), []string{"AAPL"},
		baseTime.Add(2*time.Minute), baseTime.Add(5*time.Minute), types.MarketNYSE)
	suite.Require().NoError(err)
	suite.Equal(4, data.Len())

	first, ok := data.First()
	suite.True(ok)
	suite.True(first.Time.Equal(baseTime.Add(2 * time.Minute)))

	last, ok := data.Last()
	suite.True(ok)
	suite.True(last.Time.Equal(baseTime.Add(5 * time.Minute)))
}

func (suite *FileProviderTestSuite) TestFetchHistoricalDataMergesMultipleFiles() {
	baseTime := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	suite.writeFixture("AAPL_2024-03-05.parquet", "AAPL", baseTime, 3)
	suite.writeFixture("AAPL_2024-03-06.parquet", "AAPL", baseTime.Add(24*time.Hour), 3)

	p := suite.newProvider()

	data, err := p.FetchHistoricalData(context.Background(), []string{"AAPL"},
		baseTime, baseTime.Add(48*time.Hour), types.MarketNYSE)
	suite.Require().NoError(err)
	suite.Equal(6, data.Len())

	bars := data.Bars()
	for i := 1; i < len(bars); i++ {
		suite.True(bars[i].Time.After(bars[i-1].Time), "bars must stay time ordered")
	}
}

func (suite *FileProviderTestSuite) TestFetchHistoricalDataIgnoresOtherSymbols() {
	baseTime := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	suite.writeFixture("AAPL.parquet", "AAPL", baseTime, 3)
	suite.writeFixture("MSFT.parquet", "MSFT", baseTime, 3)

	p := suite.newProvider()

	data, err := p.FetchHistoricalData(context.Background(), []string{"AAPL"},
		baseTime, baseTime.Add(time.Hour), types.MarketNYSE)
	suite.Require().NoError(err)
	suite.Equal(3, data.Len())
	suite.Equal("AAPL", data.Symbol())
}

func (suite *FileProviderTestSuite) TestFetchHistoricalDataNoFiles() {
	p := suite.newProvider()

	_, err := p.FetchHistoricalData(context.Background(), []string{"TSLA"},
		time.Now().Add(-time.Hour), time.Now(), types.MarketNYSE)
	suite.Error(err)
	suite.False(IsRetryable(err))

	var dataErr *DataError
	suite.True(errors.As(err, &dataErr))
	suite.Equal(ProviderFile, dataErr.Provider)
}

func (suite *FileProviderTestSuite) TestFetchHistoricalDataSingleTickerRule() {
	p := suite.newProvider()

	_, err := p.FetchHistoricalData(context.Background(), []string{"AAPL", "MSFT"},
		time.Now().Add(-time.Hour), time.Now(), types.MarketNYSE)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSingleTickerRequired))
}

func (suite *FileProviderTestSuite) TestFetchRealTimeDataEmpty() {
	p := suite.newProvider()

	resp, err := p.FetchRealTimeData(context.Background(), []string{"AAPL"})
	suite.NoError(err)
	suite.Empty(resp.Quotes)
	suite.Equal("file", resp.Metadata.Provider)
}

func (suite *FileProviderTestSuite) TestIsAvailable() {
	p := suite.newProvider()
	suite.True(p.IsAvailable(context.Background()))

	suite.Require().NoError(os.RemoveAll(suite.tempDir))
	suite.False(p.IsAvailable(context.Background()))
}

func (suite *FileProviderTestSuite) TestRateLimitUnlimited() {
	p := suite.newProvider()
	suite.Equal(math.MaxInt32, p.RateLimit())
}
