// Package stats accumulates per-strategy performance metrics while a backtest
// replays: running profit, peak value, maximum drawdown, an annualized Sharpe
// ratio over the per-tick return series, and per-ticker plus per-week trade
// attribution fed by the trade detector.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rxtech-lab/argo-equity/internal/types"
)

// tradingDaysPerYear scales daily-frequency returns to annual figures.
const tradingDaysPerYear = 252

// TickerStats tracks closed-trade performance for one symbol. A BUY or SHORT
// arms the open side; the next SELL or COVER settles against it.
type TickerStats struct {
	TotalSells      int
	ProfitableSells int
	TotalPnL        float64
	LargestGain     float64
	LargestLoss     float64

	lastOpenPrice    float64
	lastOpenQuantity int
	hasOpen          bool
}

func (t *TickerStats) update(trade types.TradeRecord) {
	switch trade.Action {
	case types.TradeActionBuy, types.TradeActionShort:
		t.lastOpenPrice = trade.Price
		t.lastOpenQuantity = trade.Quantity
		t.hasOpen = true
	case types.TradeActionSell:
		if !t.hasOpen {
			return
		}

		t.settle((trade.Price - t.lastOpenPrice) * float64(trade.Quantity))
	case types.TradeActionCover:
		if !t.hasOpen {
			return
		}

		t.settle((t.lastOpenPrice - trade.Price) * float64(trade.Quantity))
	}
}

func (t *TickerStats) settle(profit float64) {
	t.TotalSells++
	t.TotalPnL += profit

	if profit > 0 {
		t.ProfitableSells++
		t.LargestGain = math.Max(t.LargestGain, profit)
	} else {
		t.LargestLoss = math.Min(t.LargestLoss, profit)
	}

	t.lastOpenPrice = 0
	t.lastOpenQuantity = 0
	t.hasOpen = false
}

// WeeklyPerformance aggregates completed round trips that closed within one
// calendar week. ProfitPerShare reflects the most recent round trip of the
// week, not an average.
type WeeklyPerformance struct {
	TotalSells     int
	TotalPnL       float64
	ProfitPerShare float64
}

func (w *WeeklyPerformance) recordRoundTrip(open, close types.TradeRecord) {
	w.TotalSells++

	var profit float64
	if close.Action == types.TradeActionCover {
		profit = (open.Price - close.Price) * float64(close.Quantity)
	} else {
		profit = (close.Price - open.Price) * float64(close.Quantity)
	}

	w.ProfitPerShare = profit / float64(close.Quantity)
	w.TotalPnL += profit
}

func (w *WeeklyPerformance) hasActivity() bool {
	return w.TotalSells > 0 || w.TotalPnL != 0
}

// AlgorithmStatistics is the running scoreboard for one strategy. The engine
// calls RecordTrade for every detected trade and UpdateStatistics once per
// processed tick; both are safe for concurrent use.
type AlgorithmStatistics struct {
	mu sync.Mutex

	id           string
	startTime    time.Time
	initialValue float64

	totalProfit float64
	totalValue  float64
	peakValue   float64
	maxDrawdown float64
	sharpe      float64
	returns     []float64

	tickerStats  map[string]*TickerStats
	weekly       map[time.Time]*WeeklyPerformance
	openTrades   map[string]types.TradeRecord
	tradeHistory []types.TradeRecord
	totalTrades  int
}

// NewAlgorithmStatistics creates a scoreboard seeded with the strategy's
// initial capital. The peak starts at the initial value so drawdown is
// measured from the first tick onward.
func NewAlgorithmStatistics(id string, initialValue float64, startTime time.Time) *AlgorithmStatistics {
	return &AlgorithmStatistics{
		mu:           sync.Mutex{},
		id:           id,
		startTime:    startTime,
		initialValue: initialValue,
		totalProfit:  0,
		totalValue:   0,
		peakValue:    initialValue,
		maxDrawdown:  0,
		sharpe:       0,
		returns:      nil,
		tickerStats:  make(map[string]*TickerStats),
		weekly:       make(map[time.Time]*WeeklyPerformance),
		openTrades:   make(map[string]types.TradeRecord),
		tradeHistory: nil,
		totalTrades:  0,
	}
}

// RecordTrade folds one detected trade into the per-ticker and per-week
// attribution. BUY and SHORT arm the symbol's open trade; SELL and COVER pair
// with it and credit the week in which the close happened.
func (s *AlgorithmStatistics) RecordTrade(trade types.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tradeHistory = append(s.tradeHistory, trade)
	s.totalTrades++

	ticker, ok := s.tickerStats[trade.Symbol]
	if !ok {
		ticker = &TickerStats{
			TotalSells:       0,
			ProfitableSells:  0,
			TotalPnL:         0,
			LargestGain:      0,
			LargestLoss:      0,
			lastOpenPrice:    0,
			lastOpenQuantity: 0,
			hasOpen:          false,
		}
		s.tickerStats[trade.Symbol] = ticker
	}

	ticker.update(trade)

	switch trade.Action {
	case types.TradeActionBuy, types.TradeActionShort:
		s.openTrades[trade.Symbol] = trade
	case types.TradeActionSell, types.TradeActionCover:
		open, paired := s.openTrades[trade.Symbol]
		if !paired {
			return
		}

		delete(s.openTrades, trade.Symbol)

		week := weekStart(trade.Timestamp)

		perf, ok := s.weekly[week]
		if !ok {
			perf = &WeeklyPerformance{
				TotalSells:     0,
				TotalPnL:       0,
				ProfitPerShare: 0,
			}
			s.weekly[week] = perf
		}

		perf.recordRoundTrip(open, trade)
	}
}

// UpdateStatistics folds one portfolio valuation into the running metrics.
// dailyRiskFree is the per-day risk-free rate, already divided down from the
// annual rate. The Sharpe ratio needs at least two observations; with zero
// variance it reports 0.
func (s *AlgorithmStatistics) UpdateStatistics(currentValue, dailyRiskFree float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalProfit = currentValue - s.initialValue
	s.totalValue = currentValue

	if currentValue > s.peakValue {
		s.peakValue = currentValue
	}

	drawdown := (s.peakValue - currentValue) / s.peakValue * 100
	if drawdown > s.maxDrawdown {
		s.maxDrawdown = drawdown
	}

	s.returns = append(s.returns, (currentValue-s.initialValue)/s.initialValue)
	if len(s.returns) < 2 {
		return
	}

	mean := stat.Mean(s.returns, nil)

	sd := stat.StdDev(s.returns, nil)
	if sd == 0 {
		s.sharpe = 0

		return
	}

	s.sharpe = math.Sqrt(tradingDaysPerYear) * (mean - dailyRiskFree) / sd
}

// Id returns the strategy identifier this scoreboard belongs to.
func (s *AlgorithmStatistics) Id() string {
	return s.id
}

// InitialValue returns the capital the strategy started with.
func (s *AlgorithmStatistics) InitialValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.initialValue
}

// TotalProfit returns current value minus initial value as of the last update.
func (s *AlgorithmStatistics) TotalProfit() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalProfit
}

// TotalValue returns the portfolio value observed at the last update.
func (s *AlgorithmStatistics) TotalValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalValue
}

// PeakValue returns the highest portfolio value observed so far.
func (s *AlgorithmStatistics) PeakValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.peakValue
}

// MaxDrawdown returns the largest peak-to-trough decline seen so far, as a
// percentage of the peak.
func (s *AlgorithmStatistics) MaxDrawdown() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.maxDrawdown
}

// SharpeRatio returns the annualized Sharpe ratio as of the last update, or 0
// before two observations exist.
func (s *AlgorithmStatistics) SharpeRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sharpe
}

// TotalTrades returns the number of trades recorded so far.
func (s *AlgorithmStatistics) TotalTrades() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalTrades
}

// Returns exposes a copy of the per-tick cumulative return series.
func (s *AlgorithmStatistics) Returns() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]float64, len(s.returns))
	copy(out, s.returns)

	return out
}

// TradeHistory exposes a copy of every recorded trade in arrival order.
func (s *AlgorithmStatistics) TradeHistory() []types.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.TradeRecord, len(s.tradeHistory))
	copy(out, s.tradeHistory)

	return out
}

// TickerStatistics exposes value copies of the per-symbol closed-trade stats.
func (s *AlgorithmStatistics) TickerStatistics() map[string]TickerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]TickerStats, len(s.tickerStats))
	for symbol, ticker := range s.tickerStats {
		out[symbol] = *ticker
	}

	return out
}

// WeeklyBreakdown exposes value copies of the per-week round-trip aggregates,
// keyed by the Monday that starts each week.
func (s *AlgorithmStatistics) WeeklyBreakdown() map[time.Time]WeeklyPerformance {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[time.Time]WeeklyPerformance, len(s.weekly))
	for week, perf := range s.weekly {
		out[week] = *perf
	}

	return out
}

// Report renders a human-readable summary: overall performance, per-ticker
// breakdown sorted by symbol, and per-week round-trip results sorted by week.
func (s *AlgorithmStatistics) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder

	daysRun := int(time.Since(s.startTime).Hours() / 24)

	annualized := 0.0
	if len(s.returns) > 0 {
		annualized = math.Pow(1+s.returns[len(s.returns)-1], tradingDaysPerYear) - 1
	}

	tradesPerDay := 0.0
	if daysRun > 0 {
		tradesPerDay = float64(s.totalTrades) / float64(daysRun)
	}

	fmt.Fprintf(&sb, "Algorithm Statistics for %s:\n", s.id)
	fmt.Fprintf(&sb, "Backtest Period: %d days\n", daysRun)
	fmt.Fprintf(&sb, "Total Trades: %d\n", s.totalTrades)
	fmt.Fprintf(&sb, "Total Profit/Loss: $%.2f\n", s.totalProfit)
	fmt.Fprintf(&sb, "Annualized Return: %.2f%%\n", annualized*100)
	fmt.Fprintf(&sb, "Maximum Drawdown: %.2f%%\n", s.maxDrawdown)
	fmt.Fprintf(&sb, "Sharpe Ratio: %.2f\n", s.sharpe)
	fmt.Fprintf(&sb, "Average Trades Per Day: %.2f\n", tradesPerDay)
	fmt.Fprintf(&sb, "Total Value: $%.2f\n", s.totalValue)
	sb.WriteString("\nPer-Ticker Performance:\n=====================\n")

	symbols := make([]string, 0, len(s.tickerStats))
	for symbol := range s.tickerStats {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	for _, symbol := range symbols {
		ticker := s.tickerStats[symbol]

		winRate := 0.0
		avgPnL := 0.0

		if ticker.TotalSells > 0 {
			winRate = float64(ticker.ProfitableSells) / float64(ticker.TotalSells) * 100
			avgPnL = ticker.TotalPnL / float64(ticker.TotalSells)
		}

		fmt.Fprintf(&sb, "%s:\n", symbol)
		fmt.Fprintf(&sb, "  Total Sells: %d\n", ticker.TotalSells)
		fmt.Fprintf(&sb, "  Profitable Sells: %d (%.1f%%)\n", ticker.ProfitableSells, winRate)
		fmt.Fprintf(&sb, "  Total P/L: $%.2f\n", ticker.TotalPnL)
		fmt.Fprintf(&sb, "  Average P/L per Sale: $%.2f\n", avgPnL)
		fmt.Fprintf(&sb, "  Largest Gain: $%.2f\n", ticker.LargestGain)
		fmt.Fprintf(&sb, "  Largest Loss: $%.2f\n", ticker.LargestLoss)
		fmt.Fprintf(&sb, "  Win Rate: %.1f%%\n\n", winRate)
	}

	sb.WriteString("\nWeekly Performance:\n===================\n")

	if len(s.weekly) == 0 {
		sb.WriteString("No completed trades yet\n")

		return sb.String()
	}

	weeks := make([]time.Time, 0, len(s.weekly))
	for week := range s.weekly {
		weeks = append(weeks, week)
	}

	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].Before(weeks[j])
	})

	for _, week := range weeks {
		perf := s.weekly[week]
		if !perf.hasActivity() {
			continue
		}

		fmt.Fprintf(&sb, "Week %s - %s:\n", week.Format("01/02/2006"), week.AddDate(0, 0, 6).Format("01/02/2006"))
		fmt.Fprintf(&sb, "  P/L: $%.2f\n", perf.TotalPnL)
		fmt.Fprintf(&sb, "  Completed Trades: %d\n", perf.TotalSells)

		if perf.TotalSells > 0 {
			fmt.Fprintf(&sb, "  Average P/L per Share: $%.2f\n", perf.ProfitPerShare)
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// weekStart maps a timestamp to the UTC midnight of the Monday beginning its
// calendar week.
func weekStart(t time.Time) time.Time {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(day.Weekday()) + 6) % 7

	return day.AddDate(0, 0, -back)
}
