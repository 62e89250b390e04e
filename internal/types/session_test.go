package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite
	nyse *time.Location
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (suite *SessionTestSuite) SetupSuite() {
	loc, err := MarketNYSE.Location()
	suite.Require().NoError(err)
	suite.nyse = loc
}

func (suite *SessionTestSuite) TestLocationUnknownMarket() {
	_, err := Market("NASDAQ").Location()
	suite.Error(err)
}

func (suite *SessionTestSuite) TestValid() {
	suite.True(MarketNYSE.Valid())
	suite.True(MarketLSE.Valid())
	suite.True(MarketTSE.Valid())
	suite.False(Market("NASDAQ").Valid())
}

func (suite *SessionTestSuite) TestWeekendDetection() {
	// 2024-01-06 is a Saturday, 2024-01-07 a Sunday
	saturday := time.Date(2024, 1, 6, 12, 0, 0, 0, suite.nyse)
	sunday := time.Date(2024, 1, 7, 12, 0, 0, 0, suite.nyse)
	monday := time.Date(2024, 1, 8, 12, 0, 0, 0, suite.nyse)

	suite.True(MarketNYSE.IsWeekend(saturday, suite.nyse))
	suite.True(MarketNYSE.IsWeekend(sunday, suite.nyse))
	suite.False(MarketNYSE.IsWeekend(monday, suite.nyse))
}

func (suite *SessionTestSuite) TestNYSESessionWindow() {
	day := time.Date(2024, 1, 8, 0, 0, 0, 0, suite.nyse)

	at := func(hour, minute int) time.Time {
		return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	suite.False(MarketNYSE.IsOpenAt(at(9, 29), suite.nyse))
	suite.True(MarketNYSE.IsOpenAt(at(9, 30), suite.nyse))
	suite.True(MarketNYSE.IsOpenAt(at(12, 0), suite.nyse))
	// The close minute is included
	suite.True(MarketNYSE.IsOpenAt(at(16, 0), suite.nyse))
	suite.False(MarketNYSE.IsOpenAt(at(16, 1), suite.nyse))
}

func (suite *SessionTestSuite) TestWeekendNeverOpen() {
	saturday := time.Date(2024, 1, 6, 12, 0, 0, 0, suite.nyse)

	suite.False(MarketNYSE.IsOpenAt(saturday, suite.nyse))
}

func (suite *SessionTestSuite) TestLSESessionWindow() {
	loc, err := MarketLSE.Location()
	suite.Require().NoError(err)

	open := time.Date(2024, 1, 8, 8, 0, 0, 0, loc)
	close := time.Date(2024, 1, 8, 16, 30, 0, 0, loc)
	afterClose := time.Date(2024, 1, 8, 16, 31, 0, 0, loc)

	suite.True(MarketLSE.IsOpenAt(open, loc))
	suite.True(MarketLSE.IsOpenAt(close, loc))
	suite.False(MarketLSE.IsOpenAt(afterClose, loc))
}

func (suite *SessionTestSuite) TestTSESessionWindow() {
	loc, err := MarketTSE.Location()
	suite.Require().NoError(err)

	open := time.Date(2024, 1, 9, 9, 0, 0, 0, loc)
	beforeOpen := time.Date(2024, 1, 9, 8, 59, 0, 0, loc)
	close := time.Date(2024, 1, 9, 15, 30, 0, 0, loc)

	suite.True(MarketTSE.IsOpenAt(open, loc))
	suite.False(MarketTSE.IsOpenAt(beforeOpen, loc))
	suite.True(MarketTSE.IsOpenAt(close, loc))
}

func (suite *SessionTestSuite) TestCrossZoneTimestamp() {
	// 14:30 UTC on a winter Monday is 09:30 in New York
	utc := time.Date(2024, 1, 8, 14, 30, 0, 0, time.UTC)

	suite.True(MarketNYSE.IsOpenAt(utc, suite.nyse))
}
