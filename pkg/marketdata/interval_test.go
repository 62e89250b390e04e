package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type IntervalTestSuite struct {
	suite.Suite
}

func TestIntervalSuite(t *testing.T) {
	suite.Run(t, new(IntervalTestSuite))
}

func (suite *IntervalTestSuite) TestDuration() {
	tests := []struct {
		interval Interval
		expected time.Duration
	}{
		{IntervalFiveSeconds, 5 * time.Second},
		{IntervalTenSeconds, 10 * time.Second},
		{IntervalThirtySeconds, 30 * time.Second},
		{IntervalOneMinute, time.Minute},
		{IntervalFiveMinutes, 5 * time.Minute},
	}

	for _, test := range tests {
		suite.Equal(test.expected, test.interval.Duration(), "interval %s", test.interval)
	}
}

func (suite *IntervalTestSuite) TestUnknownFallsBackToMinute() {
	suite.Equal(time.Minute, Interval("7h").Duration())
}

func (suite *IntervalTestSuite) TestValid() {
	for _, interval := range AllIntervals {
		suite.True(interval.Valid(), "interval %s", interval)
	}

	suite.False(Interval("2h").Valid())
	suite.False(Interval("").Valid())
}
