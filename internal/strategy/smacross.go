package strategy

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/rxtech-lab/argo-equity/internal/indicator"
	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/internal/utils"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultShortPeriod     = 5
	defaultLongPeriod      = 20
	defaultCapitalFraction = 0.95
)

// SMACrossConfig configures the moving-average crossover strategy.
type SMACrossConfig struct {
	ID              string  `yaml:"id" json:"id" jsonschema:"title=Algorithm ID,description=Unique identifier for this strategy instance"`
	Symbol          string  `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=The single symbol to trade"`
	ShortPeriod     int     `yaml:"short_period" json:"short_period" jsonschema:"title=Short Period,description=Window of the fast moving average,default=5"`
	LongPeriod      int     `yaml:"long_period" json:"long_period" jsonschema:"title=Long Period,description=Window of the slow moving average,default=20"`
	CapitalFraction float64 `yaml:"capital_fraction" json:"capital_fraction" jsonschema:"title=Capital Fraction,description=Fraction of available cash deployed on a buy signal,default=0.95"`
}

// SMACross buys when the short moving average crosses above the long one and
// sells the whole position when it crosses back below. It trades a single
// symbol and sizes buys as a fraction of available cash.
type SMACross struct {
	config    SMACrossConfig
	shortSMA  *indicator.SMA
	longSMA   *indicator.SMA
	prevShort float64
	prevLong  float64
	prevReady bool
	logger    *logger.Logger
}

// NewSMACross creates a crossover strategy. Zero periods fall back to the
// 5/20 defaults; the short period must stay below the long one.
func NewSMACross(config SMACrossConfig, log *logger.Logger) (*SMACross, error) {
	if config.ID == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "algorithm id is required")
	}

	if config.Symbol == "" {
		return nil, errors.New(errors.ErrCodeSingleTickerRequired, "sma crossover trades exactly one symbol")
	}

	if config.ShortPeriod == 0 {
		config.ShortPeriod = defaultShortPeriod
	}

	if config.LongPeriod == 0 {
		config.LongPeriod = defaultLongPeriod
	}

	if config.ShortPeriod < 0 || config.LongPeriod < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "periods must be positive, got %d/%d", config.ShortPeriod, config.LongPeriod)
	}

	if config.ShortPeriod >= config.LongPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "short period %d must be below long period %d", config.ShortPeriod, config.LongPeriod)
	}

	if config.CapitalFraction <= 0 || config.CapitalFraction > 1 {
		config.CapitalFraction = defaultCapitalFraction
	}

	if log == nil {
		var err error

		log, err = logger.NewLogger()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
		}
	}

	shortSMA, err := indicator.NewSMA(config.ShortPeriod)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to build short moving average", err)
	}

	longSMA, err := indicator.NewSMA(config.LongPeriod)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to build long moving average", err)
	}

	return &SMACross{
		config:    config,
		shortSMA:  shortSMA,
		longSMA:   longSMA,
		prevShort: 0,
		prevLong:  0,
		prevReady: false,
		logger:    log,
	}, nil
}

// NewSMACrossFromYAML creates a crossover strategy from a YAML config
// document matching SMACrossConfig.
func NewSMACrossFromYAML(config string, log *logger.Logger) (*SMACross, error) {
	var cfg SMACrossConfig

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse sma crossover config", err)
	}

	return NewSMACross(cfg, log)
}

// SMACrossSchema returns the JSON schema for SMACrossConfig.
func SMACrossSchema() (string, error) {
	return ToJSONSchema(SMACrossConfig{
		ID:              "",
		Symbol:          "",
		ShortPeriod:     0,
		LongPeriod:      0,
		CapitalFraction: 0,
	})
}

// AlgorithmID implements Algorithm.
func (s *SMACross) AlgorithmID() string {
	if s.config.ID != "" {
		return s.config.ID
	}

	return fmt.Sprintf("sma-cross-%d-%d", s.config.ShortPeriod, s.config.LongPeriod)
}

// OnMarketOpen implements Algorithm.
func (s *SMACross) OnMarketOpen(initialBars map[string]types.Bar) {}

// OnMarketClose implements Algorithm.
func (s *SMACross) OnMarketClose(finalBars map[string]types.Bar) {}

// OnUpdate implements Algorithm. Each tick feeds the close into both moving
// averages; crossings are detected against the previous tick's values so a
// signal fires exactly once per cross.
func (s *SMACross) OnUpdate(currentBars map[string]types.Bar, timestamp time.Time, pf *portfolio.Portfolio) error {
	bar, ok := currentBars[s.config.Symbol]
	if !ok {
		return nil
	}

	s.shortSMA.Push(bar.Close)
	s.longSMA.Push(bar.Close)

	shortMA, shortReady := s.shortSMA.Value()
	longMA, longReady := s.longSMA.Value()

	if !shortReady || !longReady {
		return nil
	}

	if s.prevReady {
		position, hasPosition := pf.GetPosition(s.config.Symbol)

		if shortMA > longMA && s.prevShort <= s.prevLong && !hasPosition {
			s.tryBuy(pf, bar, timestamp)
		}

		if shortMA < longMA && s.prevShort >= s.prevLong && hasPosition {
			s.trySell(pf, bar, position.Quantity, timestamp)
		}
	}

	s.prevShort = shortMA
	s.prevLong = longMA
	s.prevReady = true

	return nil
}

func (s *SMACross) tryBuy(pf *portfolio.Portfolio, bar types.Bar, timestamp time.Time) {
	quantity := utils.SharesForPercentage(pf.GetCash(), bar.Close, s.config.CapitalFraction)
	if quantity == 0 {
		return
	}

	if err := pf.BuyStock(s.config.Symbol, quantity, bar.Close); err != nil {
		s.logger.Warn("crossover buy rejected",
			zap.String("symbol", s.config.Symbol),
			zap.Int("quantity", quantity),
			zap.Float64("price", bar.Close),
			zap.Error(err))

		return
	}

	s.logger.Info("crossover buy",
		zap.String("symbol", s.config.Symbol),
		zap.Int("quantity", quantity),
		zap.Float64("price", bar.Close),
		zap.Time("timestamp", timestamp))
}

func (s *SMACross) trySell(pf *portfolio.Portfolio, bar types.Bar, quantity int, timestamp time.Time) {
	if err := pf.SellStock(s.config.Symbol, quantity, bar.Close); err != nil {
		s.logger.Warn("crossover sell rejected",
			zap.String("symbol", s.config.Symbol),
			zap.Int("quantity", quantity),
			zap.Float64("price", bar.Close),
			zap.Error(err))

		return
	}

	s.logger.Info("crossover sell",
		zap.String("symbol", s.config.Symbol),
		zap.Int("quantity", quantity),
		zap.Float64("price", bar.Close),
		zap.Time("timestamp", timestamp))
}
