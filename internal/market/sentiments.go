package market

import (
	"sort"
	"sync"

	"github.com/mohamedkhairy/market-pulse/internal/models"
)

// Sentiments is the thread-safe registry of tracked symbols and their
// dashboard classification. Its key set is the tracked symbol universe and
// changes when the symbol-set control is invoked.
type Sentiments struct {
	mu sync.RWMutex
	m  map[string]models.Sentiment
}

// NewSentiments creates a registry from an initial classification map.
func NewSentiments(initial map[string]models.Sentiment) *Sentiments {
	m := make(map[string]models.Sentiment, len(initial))
	for symbol, sentiment := range initial {
		m[symbol] = sentiment
	}
	return &Sentiments{m: m}
}

// Get returns a symbol's classification, defaulting to neutral.
func (s *Sentiments) Get(symbol string) models.Sentiment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sentiment, ok := s.m[symbol]; ok {
		return sentiment
	}
	return models.SentimentNeutral
}

// Symbols returns the tracked symbol universe, sorted.
func (s *Sentiments) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbols := make([]string, 0, len(s.m))
	for symbol := range s.m {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Replace swaps in a new classification map and returns the symbols that
// were not tracked before (they need baseline seeding).
func (s *Sentiments) Replace(next map[string]models.Sentiment) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []string
	for symbol := range next {
		if _, ok := s.m[symbol]; !ok {
			added = append(added, symbol)
		}
	}
	sort.Strings(added)

	s.m = make(map[string]models.Sentiment, len(next))
	for symbol, sentiment := range next {
		s.m[symbol] = sentiment
	}
	return added
}
