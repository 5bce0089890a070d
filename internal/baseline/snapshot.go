package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mohamedkhairy/market-pulse/internal/market"
	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

// SnapshotEntry is one symbol's persisted end-of-day state.
type SnapshotEntry struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// DailySnapshot is the on-disk end-of-day state, keyed by symbol. It is
// written at shutdown and read back as the third average-volume fallback.
type DailySnapshot map[string]SnapshotEntry

// LoadSnapshot reads a daily snapshot file. A missing file is not an error;
// it returns an empty snapshot.
func LoadSnapshot(path string) (DailySnapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DailySnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap DailySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return snap, nil
}

// SaveSnapshot persists the current prices and session volumes.
func SaveSnapshot(path string, store *market.Store) error {
	snap := make(DailySnapshot)
	for symbol, state := range store.SnapshotAll() {
		snap[symbol] = SnapshotEntry{Price: state.Price, Volume: state.SessionVolume}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	logger.Info("Saved daily snapshot", logger.String("file", path), logger.Int("symbols", len(snap)))
	return nil
}

// SnapshotSource serves averages from the last persisted daily snapshot:
// one full session's volume spread over the lookback window.
type SnapshotSource struct {
	path         string
	lookbackDays int
}

// NewSnapshotSource creates the snapshot-file fallback source.
func NewSnapshotSource(path string, lookbackDays int) *SnapshotSource {
	if lookbackDays <= 0 {
		lookbackDays = 5
	}
	return &SnapshotSource{path: path, lookbackDays: lookbackDays}
}

func (s *SnapshotSource) Name() string { return "snapshot" }

func (s *SnapshotSource) AverageVolume(ctx context.Context, symbol string) (float64, error) {
	snap, err := LoadSnapshot(s.path)
	if err != nil {
		return 0, err
	}
	entry, ok := snap[symbol]
	if !ok || entry.Volume <= 0 {
		return 0, fmt.Errorf("no snapshot volume for %s", symbol)
	}
	return entry.Volume / float64(s.lookbackDays), nil
}
