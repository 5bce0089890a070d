package baseline

import (
	"context"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/market"
	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

// ProfileProvider serves the hourly bars the volume profile is built from.
type ProfileProvider interface {
	HourlyBars(ctx context.Context, symbol string, days int) ([]Bar, error)
}

// PainProvider serves the options max-pain annotation.
type PainProvider interface {
	PainPoint(ctx context.Context, symbol string, now time.Time) (models.PainPoint, error)
}

// Config holds configuration for the baseline loader
type Config struct {
	VolumeFloor     float64
	ProfileDays     int
	PainInterval    time.Duration
	ProfileInterval time.Duration
}

// Loader seeds and refreshes per-symbol baselines in the live store: the
// average-volume fallback chain, the options max-pain annotation, and the
// volume profile. Every failure falls back or skips; nothing here is fatal.
type Loader struct {
	config  Config
	sources []VolumeSource
	profile ProfileProvider
	pain    PainProvider
	store   *market.Store
}

// NewLoader creates a new baseline loader. Sources are tried in the given
// order; profile and pain providers may be nil when unconfigured.
func NewLoader(config Config, store *market.Store, sources []VolumeSource, profile ProfileProvider, pain PainProvider) *Loader {
	if config.VolumeFloor <= 0 {
		config.VolumeFloor = market.DefaultVolumeFloor
	}
	if config.ProfileDays <= 0 {
		config.ProfileDays = 7
	}
	if config.PainInterval <= 0 {
		config.PainInterval = time.Hour
	}
	if config.ProfileInterval <= 0 {
		config.ProfileInterval = 24 * time.Hour
	}
	return &Loader{
		config:  config,
		sources: sources,
		profile: profile,
		pain:    pain,
		store:   store,
	}
}

// SeedAverageVolume resolves and stores the average-volume baseline for each
// symbol through the fallback chain.
func (l *Loader) SeedAverageVolume(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		avg := l.averageVolume(ctx, symbol)
		l.store.SetAvgVolume(symbol, avg)
		logger.Info("Seeded average volume",
			logger.String("symbol", symbol),
			logger.Float64("avg_volume", avg),
		)
	}
}

// averageVolume walks the fallback chain. The first positive average wins;
// exhausting the chain yields the floor constant.
func (l *Loader) averageVolume(ctx context.Context, symbol string) float64 {
	for _, source := range l.sources {
		avg, err := source.AverageVolume(ctx, symbol)
		if err != nil || avg <= 0 {
			logger.BaselineFallbacks.WithLabelValues(source.Name()).Inc()
			logger.Warn("Average-volume source unavailable, trying next",
				logger.String("symbol", symbol),
				logger.String("source", source.Name()),
				logger.ErrorField(err),
			)
			continue
		}
		return avg
	}
	return l.config.VolumeFloor
}

// PainCycle refreshes the max-pain annotation for every symbol once.
func (l *Loader) PainCycle(ctx context.Context, symbols []string, now time.Time) {
	if l.pain == nil {
		return
	}
	for _, symbol := range symbols {
		pain, err := l.pain.PainPoint(ctx, symbol, now)
		if err != nil {
			logger.Warn("Failed to fetch pain point",
				logger.String("symbol", symbol),
				logger.ErrorField(err),
			)
			continue
		}
		l.store.SetPainPoint(symbol, pain)
		logger.Debug("Updated pain point",
			logger.String("symbol", symbol),
			logger.Float64("max_pain", pain.MaxPain),
			logger.Int("dte", pain.DTE),
			logger.Bool("witching", pain.Witching),
		)
	}
}

// ProfileCycle rebuilds the volume profile for every symbol once.
func (l *Loader) ProfileCycle(ctx context.Context, symbols []string) {
	if l.profile == nil {
		return
	}
	for _, symbol := range symbols {
		bars, err := l.profile.HourlyBars(ctx, symbol, l.config.ProfileDays)
		if err != nil || len(bars) == 0 {
			logger.Warn("Failed to fetch volume profile bars",
				logger.String("symbol", symbol),
				logger.ErrorField(err),
			)
			continue
		}
		l.store.SetProfile(symbol, VolumeProfile(bars))
	}
}

// RunPainLoop refreshes pain points on the configured interval until ctx is
// cancelled. The first refresh runs immediately.
func (l *Loader) RunPainLoop(ctx context.Context, symbols func() []string) {
	l.PainCycle(ctx, symbols(), time.Now())

	ticker := time.NewTicker(l.config.PainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.PainCycle(ctx, symbols(), time.Now())
		}
	}
}

// RunProfileLoop rebuilds volume profiles on the configured interval until
// ctx is cancelled. The first build runs immediately.
func (l *Loader) RunProfileLoop(ctx context.Context, symbols func() []string) {
	l.ProfileCycle(ctx, symbols())

	ticker := time.NewTicker(l.config.ProfileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.ProfileCycle(ctx, symbols())
		}
	}
}
