package types

import "time"

type StopOrderType string

const (
	StopOrderTypeStopLoss   StopOrderType = "STOP_LOSS"
	StopOrderTypeTakeProfit StopOrderType = "TAKE_PROFIT"
)

// StopOrder is a stored stop-loss or take-profit level. The engine never
// triggers these on its own; strategies read them back and act on them.
type StopOrder struct {
	Symbol       string        `yaml:"symbol" json:"symbol" csv:"symbol"`
	TriggerPrice float64       `yaml:"trigger_price" json:"trigger_price" csv:"trigger_price"`
	Quantity     int           `yaml:"quantity" json:"quantity" csv:"quantity"`
	Type         StopOrderType `yaml:"type" json:"type" csv:"type"`
}

type TradeAction string

const (
	TradeActionBuy   TradeAction = "BUY"
	TradeActionSell  TradeAction = "SELL"
	TradeActionShort TradeAction = "SHORT"
	TradeActionCover TradeAction = "COVER"
)

// TradeRecord is one synthetic trade event emitted by the trade detector and
// consumed by the statistics engine.
type TradeRecord struct {
	Timestamp            time.Time   `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Symbol               string      `yaml:"symbol" json:"symbol" csv:"symbol"`
	Action               TradeAction `yaml:"action" json:"action" csv:"action"`
	Quantity             int         `yaml:"quantity" json:"quantity" csv:"quantity"`
	Price                float64     `yaml:"price" json:"price" csv:"price"`
	PortfolioValueBefore float64     `yaml:"portfolio_value_before" json:"portfolio_value_before" csv:"portfolio_value_before"`
}
