package strategy

import (
	"sort"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/rxtech-lab/argo-equity/internal/logger"
	"github.com/rxtech-lab/argo-equity/internal/portfolio"
	"github.com/rxtech-lab/argo-equity/internal/types"
	"github.com/rxtech-lab/argo-equity/internal/utils"
	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"go.uber.org/zap"
)

const defaultBudgetPerTicker = 10_000

// BuyAndHoldConfig configures the buy-and-hold strategy.
type BuyAndHoldConfig struct {
	ID              string   `yaml:"id" json:"id" jsonschema:"title=Algorithm ID,description=Unique identifier for this strategy instance"`
	Tickers         []string `yaml:"tickers" json:"tickers" jsonschema:"title=Tickers,description=Symbols to buy and hold"`
	BudgetPerTicker float64  `yaml:"budget_per_ticker" json:"budget_per_ticker" jsonschema:"title=Budget Per Ticker,description=Cash deployed per symbol on the opening buy,default=10000"`
}

// BuyAndHold buys each configured ticker once and holds it for the whole
// backtest. Each opening buy targets BudgetPerTicker worth of whole shares.
type BuyAndHold struct {
	config BuyAndHoldConfig
	held   map[string]bool
	logger *logger.Logger
}

// NewBuyAndHold creates a buy-and-hold strategy. A non-positive budget falls
// back to the default of $10,000 per ticker.
func NewBuyAndHold(config BuyAndHoldConfig, log *logger.Logger) (*BuyAndHold, error) {
	if config.ID == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "algorithm id is required")
	}

	if len(config.Tickers) == 0 {
		return nil, errors.New(errors.ErrCodeNoTickers, "buy-and-hold requires at least one ticker")
	}

	if config.BudgetPerTicker <= 0 {
		config.BudgetPerTicker = defaultBudgetPerTicker
	}

	if log == nil {
		var err error

		log, err = logger.NewLogger()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
		}
	}

	tickers := append([]string(nil), config.Tickers...)
	sort.Strings(tickers)
	config.Tickers = tickers

	held := make(map[string]bool, len(tickers))
	for _, ticker := range tickers {
		held[ticker] = false
	}

	return &BuyAndHold{
		config: config,
		held:   held,
		logger: log,
	}, nil
}

// NewBuyAndHoldFromYAML creates a buy-and-hold strategy from a YAML config
// document matching BuyAndHoldConfig.
func NewBuyAndHoldFromYAML(config string, log *logger.Logger) (*BuyAndHold, error) {
	var cfg BuyAndHoldConfig

	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse buy-and-hold config", err)
	}

	return NewBuyAndHold(cfg, log)
}

// BuyAndHoldSchema returns the JSON schema for BuyAndHoldConfig.
func BuyAndHoldSchema() (string, error) {
	return ToJSONSchema(BuyAndHoldConfig{
		ID:              "",
		Tickers:         nil,
		BudgetPerTicker: 0,
	})
}

// AlgorithmID implements Algorithm.
func (b *BuyAndHold) AlgorithmID() string {
	return b.config.ID
}

// OnMarketOpen implements Algorithm. Positions survive across sessions, so
// there is nothing to reset here.
func (b *BuyAndHold) OnMarketOpen(initialBars map[string]types.Bar) {}

// OnMarketClose implements Algorithm. Holdings are kept through the close.
func (b *BuyAndHold) OnMarketClose(finalBars map[string]types.Bar) {}

// OnUpdate implements Algorithm. On the first tick that shows a price for a
// ticker not yet held, it buys as many whole shares as the per-ticker budget
// allows. A buy the portfolio rejects is logged and retried on a later tick.
func (b *BuyAndHold) OnUpdate(currentBars map[string]types.Bar, timestamp time.Time, pf *portfolio.Portfolio) error {
	for _, ticker := range b.config.Tickers {
		if b.held[ticker] {
			continue
		}

		bar, ok := currentBars[ticker]
		if !ok {
			b.logger.Debug("no bar for ticker at tick",
				zap.String("ticker", ticker),
				zap.Time("timestamp", timestamp))

			continue
		}

		quantity := utils.MaxShares(b.config.BudgetPerTicker, bar.Close)
		if quantity == 0 {
			continue
		}

		if err := pf.BuyStock(ticker, quantity, bar.Close); err != nil {
			b.logger.Warn("opening buy rejected",
				zap.String("ticker", ticker),
				zap.Int("quantity", quantity),
				zap.Float64("price", bar.Close),
				zap.Error(err))

			continue
		}

		b.held[ticker] = true
		b.logger.Info("opened buy-and-hold position",
			zap.String("ticker", ticker),
			zap.Int("quantity", quantity),
			zap.Float64("price", bar.Close))
	}

	return nil
}
