package baseline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/market"
	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource is a scripted VolumeSource.
type stubSource struct {
	name  string
	avg   float64
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) AverageVolume(ctx context.Context, symbol string) (float64, error) {
	s.calls++
	return s.avg, s.err
}

type stubPain struct {
	pain models.PainPoint
	err  error
}

func (s *stubPain) PainPoint(ctx context.Context, symbol string, now time.Time) (models.PainPoint, error) {
	return s.pain, s.err
}

type stubProfile struct {
	bars []Bar
	err  error
}

func (s *stubProfile) HourlyBars(ctx context.Context, symbol string, days int) ([]Bar, error) {
	return s.bars, s.err
}

func TestLoader_FirstHealthySourceWins(t *testing.T) {
	store := market.NewStore(0)
	primary := &stubSource{name: "primary", avg: 5_000_000}
	secondary := &stubSource{name: "secondary", avg: 9_000_000}

	loader := NewLoader(Config{}, store, []VolumeSource{primary, secondary}, nil, nil)
	loader.SeedAverageVolume(context.Background(), []string{"SPY"})

	snap, ok := store.Snapshot("SPY")
	require.True(t, ok)
	assert.Equal(t, 5_000_000.0, snap.AvgVolume)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls)
}

func TestLoader_FailingSourceFallsThrough(t *testing.T) {
	store := market.NewStore(0)
	primary := &stubSource{name: "primary", err: errors.New("upstream down")}
	zero := &stubSource{name: "zero", avg: 0}
	healthy := &stubSource{name: "healthy", avg: 2_500_000}

	loader := NewLoader(Config{}, store, []VolumeSource{primary, zero, healthy}, nil, nil)
	loader.SeedAverageVolume(context.Background(), []string{"SPY"})

	snap, _ := store.Snapshot("SPY")
	assert.Equal(t, 2_500_000.0, snap.AvgVolume)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, zero.calls)
}

func TestLoader_ExhaustedChainUsesFloor(t *testing.T) {
	store := market.NewStore(0)
	broken := &stubSource{name: "broken", err: errors.New("no data")}

	loader := NewLoader(Config{VolumeFloor: 1_000_000}, store, []VolumeSource{broken}, nil, nil)
	loader.SeedAverageVolume(context.Background(), []string{"SPY", "QQQ"})

	for _, symbol := range []string{"SPY", "QQQ"} {
		snap, ok := store.Snapshot(symbol)
		require.True(t, ok)
		assert.Equal(t, 1_000_000.0, snap.AvgVolume, symbol)
	}
	assert.Equal(t, 2, broken.calls)
}

func TestLoader_PainCycle(t *testing.T) {
	store := market.NewStore(0)
	pain := &stubPain{pain: models.PainPoint{MaxPain: 450, DTE: 3}}

	loader := NewLoader(Config{}, store, nil, nil, pain)
	loader.PainCycle(context.Background(), []string{"SPY"}, time.Now())

	snap, ok := store.Snapshot("SPY")
	require.True(t, ok)
	require.NotNil(t, snap.Pain)
	assert.Equal(t, 450.0, snap.Pain.MaxPain)
	assert.Equal(t, 3, snap.Pain.DTE)
}

func TestLoader_PainCycleErrorLeavesStateAlone(t *testing.T) {
	store := market.NewStore(0)
	store.SetPainPoint("SPY", models.PainPoint{MaxPain: 440})

	loader := NewLoader(Config{}, store, nil, nil, &stubPain{err: errors.New("chain unavailable")})
	loader.PainCycle(context.Background(), []string{"SPY"}, time.Now())

	snap, _ := store.Snapshot("SPY")
	require.NotNil(t, snap.Pain)
	assert.Equal(t, 440.0, snap.Pain.MaxPain)
}

func TestLoader_NilProvidersAreSkipped(t *testing.T) {
	store := market.NewStore(0)
	loader := NewLoader(Config{}, store, nil, nil, nil)

	// Must not panic.
	loader.PainCycle(context.Background(), []string{"SPY"}, time.Now())
	loader.ProfileCycle(context.Background(), []string{"SPY"})
}

func TestLoader_ProfileCycle(t *testing.T) {
	store := market.NewStore(0)
	profile := &stubProfile{bars: []Bar{
		{Close: 449.6, Volume: 100},
		{Close: 450.2, Volume: 200},
		{Close: 450.4, Volume: 300},
	}}

	loader := NewLoader(Config{}, store, nil, profile, nil)
	loader.ProfileCycle(context.Background(), []string{"SPY"})

	built := store.Profile("SPY")
	require.NotNil(t, built)
	assert.Equal(t, 600.0, built[450])
	assert.Empty(t, built[449])
}
