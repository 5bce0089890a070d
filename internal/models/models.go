package models

import (
	"time"
)

// MarketEvent is the closed set of feed events the protocol client decodes.
// Exactly one of TradeEvent, QuoteEvent or SummaryEvent implements it.
type MarketEvent interface {
	EventSymbol() string
}

// TradeEvent is a single trade print for a symbol.
type TradeEvent struct {
	Symbol string
	Price  float64
	Size   float64
}

func (e TradeEvent) EventSymbol() string { return e.Symbol }

// QuoteEvent is a top-of-book quote for a symbol.
type QuoteEvent struct {
	Symbol string
	Bid    float64
	Ask    float64
}

func (e QuoteEvent) EventSymbol() string { return e.Symbol }

// Mid returns the quote midpoint.
func (e QuoteEvent) Mid() float64 { return (e.Bid + e.Ask) / 2 }

// SummaryEvent carries the venue's authoritative session-open price.
// HasOpen is false when the venue sent a non-numeric open (e.g. "NaN").
type SummaryEvent struct {
	Symbol    string
	OpenPrice float64
	HasOpen   bool
}

func (e SummaryEvent) EventSymbol() string { return e.Symbol }

// TradeLegs describes one side of a breakout trade plan.
type TradeLegs struct {
	Entry  float64 `json:"entry"`
	Target float64 `json:"target"`
	Stop   float64 `json:"stop"`
}

// BreakoutLevels holds the externally supplied thresholds and trade plans for
// a symbol. Immutable per evaluation cycle.
type BreakoutLevels struct {
	Symbol       string    `json:"symbol"`
	BreakoutUp   float64   `json:"breakout_up"`
	BreakoutDown float64   `json:"breakout_down"`
	Long         TradeLegs `json:"long"`
	Short        TradeLegs `json:"short"`
	Probability  float64   `json:"probability"`
	BestHourCST  int       `json:"best_hour_cst"`
}

// Validate validates a BreakoutLevels
func (b *BreakoutLevels) Validate() error {
	if b.Symbol == "" {
		return ErrInvalidSymbol
	}
	if b.BreakoutUp <= b.BreakoutDown {
		return ErrInvalidLevels
	}
	if b.Probability < 0 || b.Probability > 1 {
		return ErrInvalidProbability
	}
	return nil
}

// AlertKind distinguishes the notification types the monitor emits.
type AlertKind string

const (
	AlertBreakoutLong  AlertKind = "breakout_long"
	AlertBreakoutShort AlertKind = "breakout_short"
	AlertDailySummary  AlertKind = "daily_summary"
)

// Alert is an outbound notification produced by the breakout monitor.
type Alert struct {
	ID        string    `json:"id"`
	Kind      AlertKind `json:"kind"`
	Symbol    string    `json:"symbol"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// PainPoint is the advisory options annotation attached to a symbol: the
// strike with maximum aggregate open interest, days to that expiration, and
// whether the expiration falls on a quadruple-witching Friday.
type PainPoint struct {
	MaxPain  float64 `json:"max_pain"`
	DTE      int     `json:"dte"`
	Witching bool    `json:"witching"`
}

// IndicatorUpdate is the structured event pushed to the dashboard on every
// decoded feed update. Consumers render it; they never influence the core.
type IndicatorUpdate struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	RVOL          float64 `json:"rvol"`
	ChangePrice   float64 `json:"change_price"`
	ChangePercent float64 `json:"change_percent"`
	Color         string  `json:"color"`
	TextColor     string  `json:"text_color"`
	MaxPain       float64 `json:"max_pain"`
	DTE           int     `json:"dte"`
	Witching      bool    `json:"witching"`
}

// Sentiment classifies a tracked symbol for dashboard coloring.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// TextColor maps a sentiment to its dashboard text color.
func (s Sentiment) TextColor() string {
	switch s {
	case SentimentPositive:
		return "orange"
	case SentimentNeutral:
		return "lightblue"
	default:
		return "pink"
	}
}

// ChangeColor maps a percent change to its dashboard cell color.
func ChangeColor(changePercent float64) string {
	switch {
	case changePercent > 0:
		return "darkgreen"
	case changePercent < 0:
		return "darkred"
	default:
		return "gray"
	}
}
