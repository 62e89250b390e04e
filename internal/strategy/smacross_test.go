package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

type SMACrossTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestSMACrossSuite(t *testing.T) {
	suite.Run(t, new(SMACrossTestSuite))
}

func (s *SMACrossTestSuite) SetupSuite() {
	log, err := logger.NewLogger()
	s.Require().NoError(err)
	s.logger = log
}

// feed pushes a sequence of closes through the strategy one minute apart.
func (s *SMACrossTestSuite) feed(algo *SMACross, pf *portfolio.Portfolio, start time.Time, closes ...float64) {
	for i, close := range closes {
		t := start.Add(time.Duration(i) * time.Minute)
		bars := map[string]types.Bar{
			"TSLA": {
				Symbol: "TSLA",
				Time:   t,
				Open:   close,
				High:   close,
				Low:    close,
				Close:  close,
				Volume: 1000,
			},
		}
		s.Require().NoError(algo.OnUpdate(bars, t, pf))
	}
}

func (s *SMACrossTestSuite) TestNewSMACrossValidation() {
	_, err := NewSMACross(SMACrossConfig{
		ID:              "",
		Symbol:          "TSLA",
		ShortPeriod:     0,
		LongPeriod:      0,
		CapitalFraction: 0,
	}, s.logger)
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = NewSMACross(SMACrossConfig{
		ID:              "cross",
		Symbol:          "",
		ShortPeriod:     0,
		LongPeriod:      0,
		CapitalFraction: 0,
	}, s.logger)
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeSingleTickerRequired))

	_, err = NewSMACross(SMACrossConfig{
		ID:              "cross",
		Symbol:          "TSLA",
		ShortPeriod:     20,
		LongPeriod:      5,
		CapitalFraction: 0,
	}, s.logger)
	s.Error(err)
	s.Contains(err.Error(), "below long period")
}

func (s *SMACrossTestSuite) TestDefaultPeriods() {
	algo, err := NewSMACross(SMACrossConfig{
		ID:              "cross",
		Symbol:          "TSLA",
		ShortPeriod:     0,
		LongPeriod:      0,
		CapitalFraction: 0,
	}, s.logger)
	s.NoError(err)
	s.Equal(5, algo.shortSMA.Period())
	s.Equal(20, algo.longSMA.Period())
	s.InDelta(0.95, algo.config.CapitalFraction, 1e-9)
}

func (s *SMACrossTestSuite) TestNoSignalBeforeWarmup() {
	algo, err := NewSMACross(SMACrossConfig{
		ID:              "cross",
		Symbol:          "TSLA",
		ShortPeriod:     2,
		LongPeriod:      3,
		CapitalFraction: 0.95,
	}, s.logger)
	s.Require().NoError(err)

	pf := portfolio.NewPortfolio(10_000)
	start := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

	s.feed(algo, pf, start, 10, 10)

	_, ok := pf.GetPosition("TSLA")
	s.False(ok)
	s.InDelta(10_000.0, pf.GetCash(), 1e-9)
}

func (s *SMACrossTestSuite) TestCrossoverRoundTrip() {
	algo, err := NewSMACross(SMACrossConfig{
		ID:              "cross",
		Symbol:          "TSLA",
		ShortPeriod:     2,
		LongPeriod:      3,
		CapitalFraction: 0.95,
	}, s.logger)
	s.Require().NoError(err)

	pf := portfolio.NewPortfolio(10_000)
	start := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

	// Flat at 10, spike to 20 crosses the fast average above the slow one.
	s.feed(algo, pf, start, 10, 10, 10, 20)

	position, ok := pf.GetPosition("TSLA")
	s.True(ok)
	s.Equal(475, position.Quantity)
	s.InDelta(500.0, pf.GetCash(), 1e-9)

	// Collapse to 5 crosses back below and closes the position.
	s.feed(algo, pf, start.Add(4*time.Minute), 20, 5)

	_, ok = pf.GetPosition("TSLA")
	s.False(ok)
	s.InDelta(2875.0, pf.GetCash(), 1e-9)
	s.InDelta(-7125.0, pf.GetRealizedPnL("TSLA"), 1e-9)
}

func (s *SMACrossTestSuite) TestIgnoresTicksWithoutSymbol() {
	algo, err := NewSMACross(SMACrossConfig{
		ID:              "cross",
		Symbol:          "TSLA",
		ShortPeriod:     2,
		LongPeriod:      3,
		CapitalFraction: 0.95,
	}, s.logger)
	s.Require().NoError(err)

	pf := portfolio.NewPortfolio(10_000)
	t0 := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	foreign := map[string]types.Bar{
		"AAPL": {
			Symbol: "AAPL",
			Time:   t0,
			Open:   100,
			High:   100,
			Low:    100,
			Close:  100,
			Volume: 1000,
		},
	}

	for i := 0; i < 10; i++ {
		s.Require().NoError(algo.OnUpdate(foreign, t0.Add(time.Duration(i)*time.Minute), pf))
	}

	s.False(algo.shortSMA.Ready())
	_, ok := pf.GetPosition("TSLA")
	s.False(ok)
}

func (s *SMACrossTestSuite) TestNewSMACrossFromYAML() {
	algo, err := NewSMACrossFromYAML(`
id: yaml-cross
symbol: NVDA
short_period: 3
long_period: 9
capital_fraction: 0.5
`, s.logger)
	s.NoError(err)
	s.Equal("yaml-cross", algo.AlgorithmID())
	s.Equal(3, algo.shortSMA.Period())
	s.Equal(9, algo.longSMA.Period())

	_, err = NewSMACrossFromYAML("short_period: [broken", s.logger)
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *SMACrossTestSuite) TestSMACrossSchema() {
	schema, err := SMACrossSchema()
	s.NoError(err)
	s.Contains(schema, "short_period")
	s.Contains(schema, "capital_fraction")
}
