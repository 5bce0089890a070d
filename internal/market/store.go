package market

import (
	"sync"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/models"
)

// DefaultVolumeFloor is the avgVolume substitute used when no baseline source
// produced a usable value. Keeps RVOL division safe.
const DefaultVolumeFloor = 1_000_000

// entry holds one symbol's live state. Each entry carries its own lock so the
// feed writer and the baseline writer serialize per symbol without contending
// on the whole table.
type entry struct {
	mu sync.RWMutex

	price         float64
	sessionVolume float64
	openPrice     float64
	avgVolume     float64
	lastUpdate    time.Time

	pain    *models.PainPoint
	profile map[float64]float64
}

// Snapshot is a tear-free copy of a symbol's state at one point in time.
type Snapshot struct {
	Symbol        string
	Price         float64
	SessionVolume float64
	OpenPrice     float64
	AvgVolume     float64
	LastUpdate    time.Time
	Pain          *models.PainPoint
}

// Store is the live market state table. It is the single source of truth read
// by the dashboard, the breakout monitor and the feed client's push path.
type Store struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	volumeFloor float64
}

// NewStore creates a new live market state store
func NewStore(volumeFloor float64) *Store {
	if volumeFloor <= 0 {
		volumeFloor = DefaultVolumeFloor
	}
	return &Store{
		entries:     make(map[string]*entry),
		volumeFloor: volumeFloor,
	}
}

// getOrCreate returns the entry for a symbol, creating it on first use.
func (s *Store) getOrCreate(symbol string) *entry {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[symbol]; ok {
		return e
	}
	e = &entry{avgVolume: s.volumeFloor}
	s.entries[symbol] = e
	return e
}

// Apply mutates the symbol's state for one decoded feed event and returns the
// resulting snapshot. Trade accumulates session volume, Quote sets the
// midpoint price (and the session open if still unset), Summary overwrites the
// open with the venue's authoritative value.
func (s *Store) Apply(ev models.MarketEvent, now time.Time) Snapshot {
	e := s.getOrCreate(ev.EventSymbol())

	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev := ev.(type) {
	case models.TradeEvent:
		e.price = ev.Price
		e.sessionVolume += ev.Size
	case models.QuoteEvent:
		e.price = ev.Mid()
		if e.openPrice == 0 {
			e.openPrice = e.price
		}
	case models.SummaryEvent:
		if ev.HasOpen {
			e.openPrice = ev.OpenPrice
		}
	}
	e.lastUpdate = now

	return e.snapshotLocked(ev.EventSymbol())
}

// SetAvgVolume sets a symbol's trailing average-volume baseline. Values at or
// below zero fall back to the floor.
func (s *Store) SetAvgVolume(symbol string, avgVolume float64) {
	e := s.getOrCreate(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	if avgVolume <= 0 {
		avgVolume = s.volumeFloor
	}
	e.avgVolume = avgVolume
}

// SetPainPoint attaches the advisory options annotation to a symbol.
func (s *Store) SetPainPoint(symbol string, pain models.PainPoint) {
	e := s.getOrCreate(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	p := pain
	e.pain = &p
}

// SetProfile attaches the volume-by-price-bin profile to a symbol.
func (s *Store) SetProfile(symbol string, profile map[float64]float64) {
	e := s.getOrCreate(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = profile
}

// Profile returns a copy of the symbol's volume profile, or nil.
func (s *Store) Profile(symbol string) map[float64]float64 {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.profile == nil {
		return nil
	}
	out := make(map[float64]float64, len(e.profile))
	for k, v := range e.profile {
		out[k] = v
	}
	return out
}

// Snapshot returns a consistent copy of one symbol's state.
func (s *Store) Snapshot(symbol string) (Snapshot, bool) {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked(symbol), true
}

// SnapshotAll returns consistent copies of every tracked symbol's state.
func (s *Store) SnapshotAll() map[string]Snapshot {
	s.mu.RLock()
	entries := make(map[string]*entry, len(s.entries))
	for symbol, e := range s.entries {
		entries[symbol] = e
	}
	s.mu.RUnlock()

	out := make(map[string]Snapshot, len(entries))
	for symbol, e := range entries {
		e.mu.RLock()
		out[symbol] = e.snapshotLocked(symbol)
		e.mu.RUnlock()
	}
	return out
}

// Symbols returns the symbols currently present in the store.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbols := make([]string, 0, len(s.entries))
	for symbol := range s.entries {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// ResetSession starts a new trading session: session volume and open price
// return to their unset values for every symbol. Baselines and annotations
// survive the rollover.
func (s *Store) ResetSession() {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		e.sessionVolume = 0
		e.openPrice = 0
		e.mu.Unlock()
	}
}

// snapshotLocked copies the entry; callers must hold at least a read lock.
func (e *entry) snapshotLocked(symbol string) Snapshot {
	snap := Snapshot{
		Symbol:        symbol,
		Price:         e.price,
		SessionVolume: e.sessionVolume,
		OpenPrice:     e.openPrice,
		AvgVolume:     e.avgVolume,
		LastUpdate:    e.lastUpdate,
	}
	if e.pain != nil {
		p := *e.pain
		snap.Pain = &p
	}
	return snap
}
