package market

import (
	"math"

	"github.com/mohamedkhairy/market-pulse/internal/models"
)

// Indicators are the derived per-symbol metrics the dashboard renders.
type Indicators struct {
	RVOL          float64
	ChangePrice   float64
	ChangePercent float64
}

// ComputeIndicators derives relative volume and price change from a snapshot.
// Pure and safe under concurrent calls; division-by-zero cases yield zeros and
// no result is ever NaN or infinite.
func ComputeIndicators(snap Snapshot) Indicators {
	var ind Indicators
	if snap.AvgVolume > 0 {
		ind.RVOL = snap.SessionVolume / snap.AvgVolume
	}
	if snap.OpenPrice > 0 {
		ind.ChangePrice = snap.Price - snap.OpenPrice
		ind.ChangePercent = ind.ChangePrice / snap.OpenPrice * 100
	}
	ind.RVOL = sanitize(ind.RVOL)
	ind.ChangePrice = sanitize(ind.ChangePrice)
	ind.ChangePercent = sanitize(ind.ChangePercent)
	return ind
}

// BuildUpdate assembles the dashboard push event for a snapshot.
func BuildUpdate(snap Snapshot, sentiment models.Sentiment) models.IndicatorUpdate {
	ind := ComputeIndicators(snap)
	update := models.IndicatorUpdate{
		Symbol:        snap.Symbol,
		Price:         round2(snap.Price),
		RVOL:          round2(ind.RVOL),
		ChangePrice:   round2(ind.ChangePrice),
		ChangePercent: round2(ind.ChangePercent),
		Color:         models.ChangeColor(ind.ChangePercent),
		TextColor:     sentiment.TextColor(),
	}
	if snap.Pain != nil {
		update.MaxPain = snap.Pain.MaxPain
		update.DTE = snap.Pain.DTE
		update.Witching = snap.Pain.Witching
	}
	return update
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
