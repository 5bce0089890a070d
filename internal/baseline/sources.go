package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// VolumeSource produces a trailing average daily volume for a symbol.
// Sources are tried in a fixed fallback order; a source that errors or
// returns a non-positive average is treated as unavailable.
type VolumeSource interface {
	Name() string
	AverageVolume(ctx context.Context, symbol string) (float64, error)
}

// flexFloat accepts JSON numbers that some venues quote as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat(num)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	num, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(num)
	return nil
}

// MetricsSource is the primary source: the brokerage market-metrics endpoint,
// authorized with the session token.
type MetricsSource struct {
	baseURL      string
	sessionToken func() string
	lookbackDays int
	httpClient   *http.Client
}

// NewMetricsSource creates the primary average-volume source. sessionToken is
// read per request so a refreshed login is picked up automatically.
func NewMetricsSource(baseURL string, sessionToken func() string, lookbackDays int, timeout time.Duration) *MetricsSource {
	return &MetricsSource{
		baseURL:      baseURL,
		sessionToken: sessionToken,
		lookbackDays: lookbackDays,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (s *MetricsSource) Name() string { return "market-metrics" }

func (s *MetricsSource) AverageVolume(ctx context.Context, symbol string) (float64, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -s.lookbackDays)
	url := fmt.Sprintf("%s/market-metrics/historic?symbols=%s&start-date=%s&end-date=%s",
		s.baseURL, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", s.sessionToken())
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("market-metrics returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Items []struct {
				Volume flexFloat `json:"volume"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if len(body.Data.Items) == 0 {
		return 0, fmt.Errorf("no historic volume for %s", symbol)
	}

	var total float64
	for _, item := range body.Data.Items {
		total += float64(item.Volume)
	}
	return total / float64(len(body.Data.Items)), nil
}

// Bar is one aggregate returned by the history source.
type Bar struct {
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

// HistorySource is the secondary source: a daily-aggregates endpoint in the
// polygon response shape. It also serves hourly bars for the volume profile.
type HistorySource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHistorySource creates the secondary average-volume source.
func NewHistorySource(baseURL string, timeout time.Duration) *HistorySource {
	return &HistorySource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HistorySource) Name() string { return "history" }

func (s *HistorySource) fetchBars(ctx context.Context, symbol, interval string, days int) ([]Bar, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	url := fmt.Sprintf("%s/aggs/%s/%s?start=%s&end=%s",
		s.baseURL, symbol, interval, start.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("history returned status %d", resp.StatusCode)
	}

	var body struct {
		Results []Bar `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

func (s *HistorySource) AverageVolume(ctx context.Context, symbol string) (float64, error) {
	bars, err := s.fetchBars(ctx, symbol, "1d", 7)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no daily bars for %s", symbol)
	}
	var total float64
	for _, bar := range bars {
		total += bar.Volume
	}
	return total / float64(len(bars)), nil
}

// HourlyBars returns hourly aggregates over the trailing window, used to
// build the volume-by-price profile.
func (s *HistorySource) HourlyBars(ctx context.Context, symbol string, days int) ([]Bar, error) {
	return s.fetchBars(ctx, symbol, "1h", days)
}
