package monitor

import (
	"sync"

	"github.com/mohamedkhairy/market-pulse/internal/models"
)

// LevelsProvider supplies the externally computed breakout levels. The
// returned map is immutable for the duration of one evaluation cycle.
type LevelsProvider interface {
	Levels() map[string]models.BreakoutLevels
}

// LevelsStore is a thread-safe LevelsProvider fed by the control surface
// (dashboard API or a startup file). Levels are recomputed upstream and
// replaced wholesale or per symbol.
type LevelsStore struct {
	mu     sync.RWMutex
	levels map[string]models.BreakoutLevels
}

// NewLevelsStore creates an empty levels store
func NewLevelsStore() *LevelsStore {
	return &LevelsStore{levels: make(map[string]models.BreakoutLevels)}
}

// Set validates and stores levels for one symbol.
func (s *LevelsStore) Set(levels models.BreakoutLevels) error {
	if err := levels.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[levels.Symbol] = levels
	return nil
}

// Levels returns a copy of all known breakout levels.
func (s *LevelsStore) Levels() map[string]models.BreakoutLevels {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.BreakoutLevels, len(s.levels))
	for symbol, levels := range s.levels {
		out[symbol] = levels
	}
	return out
}
