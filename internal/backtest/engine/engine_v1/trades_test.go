package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/types"
)

type TradeDetectionTestSuite struct {
	suite.Suite
	timestamp time.Time
}

func TestTradeDetectionSuite(t *testing.T) {
	suite.Run(t, new(TradeDetectionTestSuite))
}

func (suite *TradeDetectionTestSuite) SetupTest() {
	suite.timestamp = time.Date(2024, 1, 9, 14, 30, 0, 0, time.UTC)
}

func (suite *TradeDetectionTestSuite) closeBar(symbol string, closePrice float64) types.Bar {
	return types.Bar{
		Symbol: symbol,
		Time:   suite.timestamp,
		Open:   closePrice,
		High:   closePrice,
		Low:    closePrice,
		Close:  closePrice,
		Volume: 1000,
	}
}

func (suite *TradeDetectionTestSuite) TestNewLongRecordedAtBasis() {
	pf := portfolio.NewPortfolio(100_000)

	longsBefore := snapshotPositions(pf)
	shortsBefore := snapshotShorts(pf)

	suite.Require().NoError(pf.BuyStock("TSLA", 50, 200))

	bars := map[string]types.Bar{"TSLA": suite.closeBar("TSLA", 210)}
	trades := detectTrades(longsBefore, shortsBefore, pf, bars, 100_000, suite.timestamp)

	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeActionBuy, trades[0].Action)
	suite.Equal("TSLA", trades[0].Symbol)
	suite.Equal(50, trades[0].Quantity)
	suite.Equal(200.0, trades[0].Price, "opens are priced at the average cost, not the tick close")
	suite.Equal(100_000.0, trades[0].PortfolioValueBefore)
	suite.True(trades[0].Timestamp.Equal(suite.timestamp))
}

func (suite *TradeDetectionTestSuite) TestAddToLongRecordsDeltaAtNewBasis() {
	pf := portfolio.NewPortfolio(100_000)
	suite.Require().NoError(pf.BuyStock("TSLA", 10, 100))

	longsBefore := snapshotPositions(pf)
	shortsBefore := snapshotShorts(pf)

	suite.Require().NoError(pf.BuyStock("TSLA", 10, 120))

	trades := detectTrades(longsBefore, shortsBefore, pf, nil, 100_000, suite.timestamp)

	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeActionBuy, trades[0].Action)
	suite.Equal(10, trades[0].Quantity)
	suite.InDelta(110.0, trades[0].Price, 1e-9)
}

func (suite *TradeDetectionTestSuite) TestReduceLongRecordsSellAtClose() {
	pf := portfolio.NewPortfolio(100_000)
	suite.Require().NoError(pf.BuyStock("TSLA", 20, 100))

	longsBefore := snapshotPositions(pf)
	shortsBefore := snapshotShorts(pf)

	suite.Require().NoError(pf.SellStock("TSLA", 5, 130))

	bars := map[string]types.Bar{"TSLA": suite.closeBar("TSLA", 130)}
	trades := detectTrades(longsBefore, shortsBefore, pf, bars, 102_000, suite.timestamp)

	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeActionSell, trades[0].Action)
	suite.Equal(5, trades[0].Quantity)
	suite.Equal(130.0, trades[0].Price)
}

func (suite *TradeDetectionTestSuite) TestCloseLongRecordsFullQuantityAtClose() {
	pf := portfolio.NewPortfolio(100_000)
	suite.Require().NoError(pf.BuyStock("TSLA", 20, 100))

	longsBefore := snapshotPositions(pf)
	shortsBefore := snapshotShorts(pf)

	suite.Require().NoError(pf.SellStock("TSLA", 20, 125))

	bars := map[string]types.Bar{"TSLA": suite.closeBar("TSLA", 125)}
	trades := detectTrades(longsBefore, shortsBefore, pf, bars, 100_000, suite.timestamp)

	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeActionSell, trades[0].Action)
	suite.Equal(20, trades[0].Quantity)
	suite.Equal(125.0, trades[0].Price)
}

func (suite *TradeDetectionTestSuite) TestReductionWithoutBarFallsBackToBasis() {
	pf := portfolio.NewPortfolio(100_000)
	suite.Require().NoError(pf.BuyStock("TSLA", 20, 100))

	longsBefore := snapshotPositions(pf)
	shortsBefore := snapshotShorts(pf)

	suite.Require().NoError(pf.SellStock("TSLA", 20, 125))

	trades := detectTrades(longsBefore, shortsBefore, pf, map[string]types.Bar{}, 100_000, suite.timestamp)

	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeActionSell, trades[0].Action)
	suite.InDelta(100.0, trades[0].Price, 1e-9)
}

func (suite *TradeDetectionTestSuite) TestShortOpenAndCover() {
	pf := portfolio.NewPortfolio(100_000)

	longsBefore := snapshotPositions(pf)
	shortsBefore := snapshotShorts(pf)

	suite.Require().NoError(pf.ShortStock("ABC", 100, 50))

	trades := detectTrades(longsBefore, shortsBefore, pf, nil, 100_000, suite.timestamp)
	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeActionShort, trades[0].Action)
	suite.Equal(100, trades[0].Quantity)
	suite.Equal(50.0, trades[0].Price)

	shortsBefore = snapshotShorts(pf)
	longsBefore = snapshotPositions(pf)

	suite.Require().NoError(pf.CoverShort("ABC", 100, 40))

	bars := map[string]types.Bar{"ABC": suite.closeBar("ABC", 40)}
	trades = detectTrades(longsBefore, shortsBefore, pf, bars, 105_000, suite.timestamp)

	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeActionCover, trades[0].Action)
	suite.Equal(100, trades[0].Quantity)
	suite.Equal(40.0, trades[0].Price)
}

func (suite *TradeDetectionTestSuite) TestDeterministicOrderingAcrossCategories() {
	pf := portfolio.NewPortfolio(1_000_000)
	suite.Require().NoError(pf.BuyStock("AAA", 5, 50))
	suite.Require().NoError(pf.BuyStock("BBB", 10, 100))
	suite.Require().NoError(pf.ShortStock("CCC", 8, 60))
	suite.Require().NoError(pf.ShortStock("SSS", 10, 40))

	longsBefore := snapshotPositions(pf)
	shortsBefore := snapshotShorts(pf)

	suite.Require().NoError(pf.BuyStock("BBB", 10, 120))
	suite.Require().NoError(pf.BuyStock("DDD", 5, 70))
	suite.Require().NoError(pf.SellStock("AAA", 5, 55))
	suite.Require().NoError(pf.ShortStock("SSS", 10, 50))
	suite.Require().NoError(pf.CoverShort("CCC", 8, 58))

	bars := map[string]types.Bar{
		"AAA": suite.closeBar("AAA", 56),
		"CCC": suite.closeBar("CCC", 57),
	}
	trades := detectTrades(longsBefore, shortsBefore, pf, bars, 1_000_000, suite.timestamp)

	suite.Require().Len(trades, 5)

	// Current longs first, then closed longs, current shorts, closed shorts.
	suite.Equal("BBB", trades[0].Symbol)
	suite.Equal(types.TradeActionBuy, trades[0].Action)
	suite.Equal(10, trades[0].Quantity)
	suite.InDelta(110.0, trades[0].Price, 1e-9)

	suite.Equal("DDD", trades[1].Symbol)
	suite.Equal(types.TradeActionBuy, trades[1].Action)
	suite.Equal(5, trades[1].Quantity)
	suite.Equal(70.0, trades[1].Price)

	suite.Equal("AAA", trades[2].Symbol)
	suite.Equal(types.TradeActionSell, trades[2].Action)
	suite.Equal(5, trades[2].Quantity)
	suite.Equal(56.0, trades[2].Price)

	suite.Equal("SSS", trades[3].Symbol)
	suite.Equal(types.TradeActionShort, trades[3].Action)
	suite.Equal(10, trades[3].Quantity)
	suite.InDelta(45.0, trades[3].Price, 1e-9)

	suite.Equal("CCC", trades[4].Symbol)
	suite.Equal(types.TradeActionCover, trades[4].Action)
	suite.Equal(8, trades[4].Quantity)
	suite.Equal(57.0, trades[4].Price)
}

func (suite *TradeDetectionTestSuite) TestNoChangesEmitsNothing() {
	pf := portfolio.NewPortfolio(100_000)
	suite.Require().NoError(pf.BuyStock("TSLA", 10, 100))

	longsBefore := snapshotPositions(pf)
	shortsBefore := snapshotShorts(pf)

	trades := detectTrades(longsBefore, shortsBefore, pf, nil, 100_000, suite.timestamp)

	suite.Empty(trades)
}
