package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedkhairy/market-pulse/internal/alertguard"
	"github.com/mohamedkhairy/market-pulse/internal/market"
	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/mohamedkhairy/market-pulse/internal/notify"
	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

// AlertState is the per-symbol breakout state machine. Transitions are
// one-way per session: Pending moves to exactly one of the triggered states
// and stays there until the session rollover.
type AlertState int

const (
	Pending AlertState = iota
	LongTriggered
	ShortTriggered
)

func (s AlertState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case LongTriggered:
		return "Long Triggered"
	case ShortTriggered:
		return "Short Triggered"
	default:
		return "unknown"
	}
}

// dailyGuardTTL keeps the daily-summary guard key alive well past the
// calendar date it covers.
const dailyGuardTTL = 48 * time.Hour

// Config holds configuration for the breakout monitor
type Config struct {
	Interval        time.Duration
	HistorySize     int
	AlertHourCST    int
	AlertMinuteFrom int
	AlertMinuteTo   int
	UTCOffsetHours  int
}

// DefaultConfig returns the default monitor configuration: a 30-second
// cycle, a 20-sample price window, and the 9:55-9:56 CST summary window.
func DefaultConfig() Config {
	return Config{
		Interval:        30 * time.Second,
		HistorySize:     20,
		AlertHourCST:    9,
		AlertMinuteFrom: 55,
		AlertMinuteTo:   56,
		UTCOffsetHours:  -6,
	}
}

// Monitor is the breakout alert engine. Each cycle it reads the live store
// and the externally supplied breakout levels, advances per-symbol alert
// state machines, and emits deduplicated notifications. All mutable state is
// owned by the single monitor loop and needs no cross-worker locking.
type Monitor struct {
	config   Config
	store    *market.Store
	levels   LevelsProvider
	notifier notify.Notifier
	guard    alertguard.Guard
	loc      *time.Location
	now      func() time.Time

	states       map[string]AlertState
	histories    map[string]*priceHistory
	rolloverDate string
}

// New creates a new breakout monitor
func New(config Config, store *market.Store, levels LevelsProvider, notifier notify.Notifier, guard alertguard.Guard) *Monitor {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.HistorySize <= 1 {
		config.HistorySize = 20
	}
	return &Monitor{
		config:    config,
		store:     store,
		levels:    levels,
		notifier:  notifier,
		guard:     guard,
		loc:       time.FixedZone("CST", config.UTCOffsetHours*3600),
		now:       time.Now,
		states:    make(map[string]AlertState),
		histories: make(map[string]*priceHistory),
	}
}

// SetClock overrides the monitor's clock (used by tests).
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// Run executes monitor cycles on the fixed interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	logger.Info("Breakout monitor started",
		logger.Duration("interval", m.config.Interval),
		logger.Int("history_size", m.config.HistorySize),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Breakout monitor stopped")
			return
		case <-ticker.C:
			m.Cycle(ctx)
		}
	}
}

// Cycle runs one monitor pass. Exposed so tests can single-step without
// waiting on wall-clock sleeps.
func (m *Monitor) Cycle(ctx context.Context) {
	now := m.now().In(m.loc)
	m.maybeRollover(now)

	snapshots := m.store.SnapshotAll()
	levels := m.levels.Levels()

	if len(snapshots) == 0 {
		logger.Warn("No market data available, skipping monitor cycle")
		return
	}

	// Stable enumeration order: ascending symbol. This is also the
	// documented tie-break for equal probabilities.
	symbols := make([]string, 0, len(levels))
	for symbol := range levels {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		snap, ok := snapshots[symbol]
		if !ok || snap.Price == 0 {
			logger.Warn("No market data for symbol, skipping",
				logger.String("symbol", symbol),
			)
			continue
		}
		m.historyFor(symbol).Append(snap.Price)
	}

	m.checkDailySummary(ctx, now, symbols, snapshots, levels)

	for _, symbol := range symbols {
		snap, ok := snapshots[symbol]
		if !ok || snap.Price == 0 {
			continue
		}
		m.checkBreakout(symbol, snap.Price, levels[symbol])
	}
}

// maybeRollover starts a new trading session when the civil date changes:
// alert states return to Pending, price windows clear, and the live store's
// session fields reset. The first observed date only arms the detector.
func (m *Monitor) maybeRollover(now time.Time) {
	date := now.Format("2006-01-02")
	if m.rolloverDate == "" {
		m.rolloverDate = date
		return
	}
	if date == m.rolloverDate {
		return
	}
	m.rolloverDate = date
	m.ResetSession()
	logger.Info("Session rollover", logger.String("date", date))
}

// ResetSession starts a fresh session immediately: every symbol back to
// Pending, price history cleared, live-store session fields reset.
func (m *Monitor) ResetSession() {
	m.states = make(map[string]AlertState)
	for _, h := range m.histories {
		h.Reset()
	}
	m.store.ResetSession()
}

// State returns the current alert state for a symbol.
func (m *Monitor) State(symbol string) AlertState {
	return m.states[symbol]
}

// checkBreakout advances one symbol's state machine. Only the first crossing
// fires; a triggered symbol stays silent for the rest of the session.
func (m *Monitor) checkBreakout(symbol string, price float64, levels models.BreakoutLevels) {
	if m.states[symbol] != Pending {
		return
	}

	switch {
	case price > levels.BreakoutUp:
		m.states[symbol] = LongTriggered
		m.emit(models.AlertBreakoutLong, symbol, price,
			fmt.Sprintf("%s Breakout Alert", symbol),
			fmt.Sprintf("%s Breakout Long:\nEntry: %.2f\nTarget: %.2f\nStop: %.2f\nBest Hour: %d CST\nProbability: %.2f",
				symbol, levels.Long.Entry, levels.Long.Target, levels.Long.Stop,
				levels.BestHourCST, levels.Probability))

	case price < levels.BreakoutDown:
		m.states[symbol] = ShortTriggered
		m.emit(models.AlertBreakoutShort, symbol, price,
			fmt.Sprintf("%s Breakout Alert", symbol),
			fmt.Sprintf("%s Breakout Short:\nEntry: %.2f\nTarget: %.2f\nStop: %.2f\nBest Hour: %d CST\nProbability: %.2f",
				symbol, levels.Short.Entry, levels.Short.Target, levels.Short.Stop,
				levels.BestHourCST, levels.Probability))
	}
}

// checkDailySummary fires the once-per-date anticipated-trade alert during
// the fixed clock window, picking the highest-probability breakout. symbols
// must already be in the stable enumeration order.
func (m *Monitor) checkDailySummary(ctx context.Context, now time.Time, symbols []string,
	snapshots map[string]market.Snapshot, levels map[string]models.BreakoutLevels) {

	if now.Hour() != m.config.AlertHourCST ||
		now.Minute() < m.config.AlertMinuteFrom || now.Minute() > m.config.AlertMinuteTo {
		return
	}

	guardKey := "daily-summary:" + now.Format("2006-01-02")
	fired, err := m.guard.AlreadyFired(ctx, guardKey)
	if err != nil {
		logger.Warn("Alert guard check failed", logger.ErrorField(err))
	}
	if fired {
		return
	}

	// Highest probability wins; ties go to the first symbol in order.
	best := ""
	bestProb := -1.0
	for _, symbol := range symbols {
		if levels[symbol].Probability > bestProb {
			best = symbol
			bestProb = levels[symbol].Probability
		}
	}
	if best == "" {
		return
	}

	snap, ok := snapshots[best]
	if !ok || snap.Price == 0 {
		logger.Warn("No market data for summary candidate, skipping",
			logger.String("symbol", best),
		)
		return
	}

	lv := levels[best]
	direction := "Long"
	legs := lv.Long
	if snap.Price < lv.BreakoutDown {
		direction = "Short"
		legs = lv.Short
	}

	elapsedMinutes := float64(m.config.HistorySize) * m.config.Interval.Minutes()
	roc := m.historyFor(best).RateOfChange(elapsedMinutes)

	body := fmt.Sprintf("10am CST Trade Alert:\n"+
		"Anticipated Trade: %s %s\n"+
		"Price Level: %.2f\n"+
		"Entry: %.2f, Target: %.2f, Stop: %.2f\n"+
		"10-min Rate of Change: %.2f points/min\n"+
		"Probability: %.2f",
		best, direction, snap.Price, legs.Entry, legs.Target, legs.Stop, roc, bestProb)

	m.emit(models.AlertDailySummary, best, snap.Price,
		fmt.Sprintf("%s 10am CST Alert", best), body)

	if err := m.guard.MarkFired(ctx, guardKey, dailyGuardTTL); err != nil {
		logger.Warn("Failed to mark alert guard", logger.ErrorField(err))
	}
}

// emit delivers one notification. Delivery failure is logged, never fatal.
func (m *Monitor) emit(kind models.AlertKind, symbol string, price float64, subject, body string) {
	alert := models.Alert{
		ID:        uuid.NewString(),
		Kind:      kind,
		Symbol:    symbol,
		Subject:   subject,
		Body:      body,
		Price:     price,
		Timestamp: m.now(),
	}

	logger.AlertsEmitted.WithLabelValues(string(kind)).Inc()
	logger.Info("Emitting alert",
		logger.String("alert_id", alert.ID),
		logger.String("kind", string(kind)),
		logger.String("symbol", symbol),
		logger.Float64("price", price),
	)

	if err := m.notifier.Send(subject, body); err != nil {
		logger.Error("Notification delivery failed",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
	}
}

// historyFor returns (creating if needed) the symbol's price window.
func (m *Monitor) historyFor(symbol string) *priceHistory {
	h, ok := m.histories[symbol]
	if !ok {
		h = newPriceHistory(m.config.HistorySize)
		m.histories[symbol] = h
	}
	return h
}
