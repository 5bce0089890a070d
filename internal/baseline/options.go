package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/models"
)

// OptionsClient fetches the near-dated equity options chain from the
// brokerage API and reduces it to the max-pain annotation.
type OptionsClient struct {
	baseURL      string
	sessionToken func() string
	httpClient   *http.Client
}

// NewOptionsClient creates a new options chain client
func NewOptionsClient(baseURL string, sessionToken func() string, timeout time.Duration) *OptionsClient {
	return &OptionsClient{
		baseURL:      baseURL,
		sessionToken: sessionToken,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// PainPoint fetches the options chain expiring ~3 days out and returns the
// max-pain annotation for the symbol.
func (c *OptionsClient) PainPoint(ctx context.Context, symbol string, now time.Time) (models.PainPoint, error) {
	expiration := now.UTC().AddDate(0, 0, 3)
	url := fmt.Sprintf("%s/instruments/equity-options?symbol=%s&expiration-date=%s",
		c.baseURL, symbol, expiration.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.PainPoint{}, err
	}
	req.Header.Set("Authorization", c.sessionToken())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.PainPoint{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return models.PainPoint{}, fmt.Errorf("equity-options returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Items []struct {
				StrikePrice  flexFloat `json:"strike-price"`
				OpenInterest flexFloat `json:"open-interest"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.PainPoint{}, err
	}

	strikeOI := make(map[float64]float64, len(body.Data.Items))
	for _, item := range body.Data.Items {
		strikeOI[float64(item.StrikePrice)] += float64(item.OpenInterest)
	}

	maxPain, ok := MaxPain(strikeOI)
	if !ok {
		return models.PainPoint{}, fmt.Errorf("empty options chain for %s", symbol)
	}

	return models.PainPoint{
		MaxPain:  maxPain,
		DTE:      int(expiration.Sub(now.UTC()).Hours() / 24),
		Witching: IsWitching(now.UTC()),
	}, nil
}

// MaxPain returns the strike with maximum aggregate open interest. Ties go
// to the lower strike so the reduction is deterministic.
func MaxPain(strikeOI map[float64]float64) (float64, bool) {
	if len(strikeOI) == 0 {
		return 0, false
	}
	best := math.Inf(-1)
	bestStrike := 0.0
	for strike, oi := range strikeOI {
		if oi > best || (oi == best && strike < bestStrike) {
			best = oi
			bestStrike = strike
		}
	}
	return bestStrike, true
}

// IsWitching reports whether t falls on a quadruple-witching Friday: the
// third-or-later Friday of March, June, September or December.
func IsWitching(t time.Time) bool {
	if t.Weekday() != time.Friday || t.Day() <= 14 {
		return false
	}
	switch t.Month() {
	case time.March, time.June, time.September, time.December:
		return true
	}
	return false
}

// VolumeProfile buckets closes into whole-dollar bins and sums volume per
// bin. Advisory only.
func VolumeProfile(bars []Bar) map[float64]float64 {
	profile := make(map[float64]float64)
	for _, bar := range bars {
		profile[math.Round(bar.Close)] += bar.Volume
	}
	return profile
}
