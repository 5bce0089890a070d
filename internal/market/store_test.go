package market

import (
	"sync"
	"testing"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ApplyTradeAccumulatesVolume(t *testing.T) {
	store := NewStore(0)
	now := time.Now()

	store.Apply(models.TradeEvent{Symbol: "SPY", Price: 450.10, Size: 100}, now)
	store.Apply(models.TradeEvent{Symbol: "SPY", Price: 450.25, Size: 250}, now)
	snap := store.Apply(models.TradeEvent{Symbol: "SPY", Price: 450.05, Size: 50}, now)

	assert.Equal(t, 450.05, snap.Price)
	assert.Equal(t, 400.0, snap.SessionVolume)
}

func TestStore_QuoteSetsOpenOnlyOnce(t *testing.T) {
	store := NewStore(0)
	now := time.Now()

	snap := store.Apply(models.QuoteEvent{Symbol: "QQQ", Bid: 99, Ask: 101}, now)
	assert.Equal(t, 100.0, snap.Price)
	assert.Equal(t, 100.0, snap.OpenPrice)

	// A later quote moves the price but not the derived open.
	snap = store.Apply(models.QuoteEvent{Symbol: "QQQ", Bid: 101, Ask: 103}, now)
	assert.Equal(t, 102.0, snap.Price)
	assert.Equal(t, 100.0, snap.OpenPrice)
}

func TestStore_SummaryOverwritesDerivedOpen(t *testing.T) {
	store := NewStore(0)
	now := time.Now()

	store.Apply(models.QuoteEvent{Symbol: "QQQ", Bid: 99, Ask: 101}, now)
	snap := store.Apply(models.SummaryEvent{Symbol: "QQQ", OpenPrice: 98, HasOpen: true}, now)
	assert.Equal(t, 98.0, snap.OpenPrice)

	// A summary without a usable open leaves the current value alone.
	snap = store.Apply(models.SummaryEvent{Symbol: "QQQ", HasOpen: false}, now)
	assert.Equal(t, 98.0, snap.OpenPrice)
}

func TestStore_SetAvgVolumeFloorsNonPositive(t *testing.T) {
	store := NewStore(500_000)

	store.SetAvgVolume("SPY", 2_000_000)
	snap, ok := store.Snapshot("SPY")
	require.True(t, ok)
	assert.Equal(t, 2_000_000.0, snap.AvgVolume)

	store.SetAvgVolume("SPY", 0)
	snap, _ = store.Snapshot("SPY")
	assert.Equal(t, 500_000.0, snap.AvgVolume)
}

func TestStore_UnknownSymbolHasNoSnapshot(t *testing.T) {
	store := NewStore(0)
	_, ok := store.Snapshot("MISSING")
	assert.False(t, ok)
}

func TestStore_ResetSessionKeepsBaselines(t *testing.T) {
	store := NewStore(0)
	now := time.Now()

	store.SetAvgVolume("SPY", 3_000_000)
	store.SetPainPoint("SPY", models.PainPoint{MaxPain: 450, DTE: 3})
	store.Apply(models.TradeEvent{Symbol: "SPY", Price: 451, Size: 1000}, now)
	store.Apply(models.SummaryEvent{Symbol: "SPY", OpenPrice: 449, HasOpen: true}, now)

	store.ResetSession()

	snap, ok := store.Snapshot("SPY")
	require.True(t, ok)
	assert.Zero(t, snap.SessionVolume)
	assert.Zero(t, snap.OpenPrice)
	assert.Equal(t, 3_000_000.0, snap.AvgVolume)
	require.NotNil(t, snap.Pain)
	assert.Equal(t, 450.0, snap.Pain.MaxPain)
}

func TestStore_SnapshotIsolatedFromLaterWrites(t *testing.T) {
	store := NewStore(0)
	now := time.Now()

	snap := store.Apply(models.TradeEvent{Symbol: "SPY", Price: 450, Size: 100}, now)
	store.Apply(models.TradeEvent{Symbol: "SPY", Price: 455, Size: 100}, now)

	assert.Equal(t, 450.0, snap.Price)
	assert.Equal(t, 100.0, snap.SessionVolume)
}

func TestStore_ConcurrentApply(t *testing.T) {
	store := NewStore(0)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Apply(models.TradeEvent{Symbol: "SPY", Price: 450, Size: 1}, now)
			}
		}()
	}
	wg.Wait()

	snap, ok := store.Snapshot("SPY")
	require.True(t, ok)
	assert.Equal(t, 800.0, snap.SessionVolume)
}

func TestStore_ProfileReturnsCopy(t *testing.T) {
	store := NewStore(0)
	store.SetProfile("SPY", map[float64]float64{450: 1000, 451: 2000})

	profile := store.Profile("SPY")
	require.NotNil(t, profile)
	profile[450] = 0

	again := store.Profile("SPY")
	assert.Equal(t, 1000.0, again[450])

	assert.Nil(t, store.Profile("MISSING"))
}
