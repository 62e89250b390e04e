package types

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type HistoricalDataTestSuite struct {
	suite.Suite
	data *HistoricalData
}

func TestHistoricalDataSuite(t *testing.T) {
	suite.Run(t, new(HistoricalDataTestSuite))
}

func (suite *HistoricalDataTestSuite) SetupTest() {
	suite.data = NewHistoricalData("TSLA")
}

func (suite *HistoricalDataTestSuite) barAt(minute int, close float64) Bar {
	return Bar{
		Symbol: "TSLA",
		Time:   time.Date(2024, 1, 2, 9, 30+minute, 0, 0, time.UTC),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 100,
	}
}

func (suite *HistoricalDataTestSuite) TestAddKeepsTimeOrder() {
	// Insert out of order
	suite.Require().NoError(suite.data.Add(suite.barAt(2, 202)))
	suite.Require().NoError(suite.data.Add(suite.barAt(0, 200)))
	suite.Require().NoError(suite.data.Add(suite.barAt(1, 201)))

	bars := suite.data.Bars()
	suite.Len(bars, 3)
	suite.Equal(200.0, bars[0].Close)
	suite.Equal(201.0, bars[1].Close)
	suite.Equal(202.0, bars[2].Close)
}

func (suite *HistoricalDataTestSuite) TestAddRejectsForeignSymbol() {
	bar := suite.barAt(0, 200)
	bar.Symbol = "AAPL"

	err := suite.data.Add(bar)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSymbolMismatch))
	suite.Equal(0, suite.data.Len())
}

func (suite *HistoricalDataTestSuite) TestAddReplacesSameTimestamp() {
	suite.Require().NoError(suite.data.Add(suite.barAt(0, 200)))
	suite.Require().NoError(suite.data.Add(suite.barAt(0, 210)))

	suite.Equal(1, suite.data.Len())

	bar, ok := suite.data.First()
	suite.True(ok)
	suite.Equal(210.0, bar.Close)
}

func (suite *HistoricalDataTestSuite) TestRangeInclusive() {
	for i := 0; i < 5; i++ {
		suite.Require().NoError(suite.data.Add(suite.barAt(i, 200+float64(i))))
	}

	start := time.Date(2024, 1, 2, 9, 31, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 9, 33, 0, 0, time.UTC)

	bars := suite.data.Range(start, end)
	suite.Len(bars, 3)
	suite.Equal(201.0, bars[0].Close)
	suite.Equal(203.0, bars[2].Close)
}

func (suite *HistoricalDataTestSuite) TestRangeEmptyWindow() {
	suite.Require().NoError(suite.data.Add(suite.barAt(0, 200)))

	start := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)

	suite.Empty(suite.data.Range(start, end))
}

func (suite *HistoricalDataTestSuite) TestFloor() {
	suite.Require().NoError(suite.data.Add(suite.barAt(0, 200)))
	suite.Require().NoError(suite.data.Add(suite.barAt(5, 205)))

	// Exact hit
	bar, ok := suite.data.Floor(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))
	suite.True(ok)
	suite.Equal(200.0, bar.Close)

	// Between bars floors down
	bar, ok = suite.data.Floor(time.Date(2024, 1, 2, 9, 33, 0, 0, time.UTC))
	suite.True(ok)
	suite.Equal(200.0, bar.Close)

	// Before the first bar
	_, ok = suite.data.Floor(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	suite.False(ok)
}

func (suite *HistoricalDataTestSuite) TestFirstLast() {
	_, ok := suite.data.First()
	suite.False(ok)

	suite.Require().NoError(suite.data.Add(suite.barAt(0, 200)))
	suite.Require().NoError(suite.data.Add(suite.barAt(9, 209)))

	first, ok := suite.data.First()
	suite.True(ok)
	suite.Equal(200.0, first.Close)

	last, ok := suite.data.Last()
	suite.True(ok)
	suite.Equal(209.0, last.Close)
}

func (suite *HistoricalDataTestSuite) TestPercentChange() {
	suite.Require().NoError(suite.data.Add(suite.barAt(0, 200)))
	suite.Require().NoError(suite.data.Add(suite.barAt(10, 220)))

	change, err := suite.data.PercentChange(
		time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 9, 40, 0, 0, time.UTC),
	)
	suite.Require().NoError(err)
	suite.InDelta(10.0, change, 1e-9)
}

func (suite *HistoricalDataTestSuite) TestPercentChangeNoData() {
	_, err := suite.data.PercentChange(
		time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 9, 40, 0, 0, time.UTC),
	)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}
