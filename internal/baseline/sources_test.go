package baseline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSource_AverageVolume(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market-metrics/historic", r.URL.Path)
		assert.Equal(t, "SPY", r.URL.Query().Get("symbols"))
		assert.Equal(t, "session-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[
			{"volume":"1000000"},
			{"volume":2000000},
			{"volume":3000000}
		]}}`))
	}))
	defer server.Close()

	source := NewMetricsSource(server.URL, func() string { return "session-token" }, 5, 5*time.Second)
	avg, err := source.AverageVolume(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 2_000_000.0, avg)
}

func TestMetricsSource_NoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"items":[]}}`))
	}))
	defer server.Close()

	source := NewMetricsSource(server.URL, func() string { return "tok" }, 5, 5*time.Second)
	_, err := source.AverageVolume(context.Background(), "SPY")
	assert.Error(t, err)
}

func TestMetricsSource_TokenReadPerRequest(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"items":[{"volume":1}]}}`))
	}))
	defer server.Close()

	token := "first"
	source := NewMetricsSource(server.URL, func() string { return token }, 5, 5*time.Second)

	_, err := source.AverageVolume(context.Background(), "SPY")
	require.NoError(t, err)
	token = "second"
	_, err = source.AverageVolume(context.Background(), "SPY")
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestHistorySource_AverageVolume(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/aggs/SPY/1d", r.URL.Path)
		w.Write([]byte(`{"results":[{"c":450.1,"v":1000000},{"c":451.2,"v":3000000}]}`))
	}))
	defer server.Close()

	source := NewHistorySource(server.URL, 5*time.Second)
	avg, err := source.AverageVolume(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 2_000_000.0, avg)
}

func TestHistorySource_HourlyBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/aggs/SPY/1h", r.URL.Path)
		w.Write([]byte(`{"results":[{"c":450.1,"v":100},{"c":450.9,"v":200}]}`))
	}))
	defer server.Close()

	source := NewHistorySource(server.URL, 5*time.Second)
	bars, err := source.HourlyBars(context.Background(), "SPY", 7)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 450.1, bars[0].Close)
	assert.Equal(t, 200.0, bars[1].Volume)
}

func TestHistorySource_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewHistorySource(server.URL, 5*time.Second)
	_, err := source.AverageVolume(context.Background(), "SPY")
	assert.Error(t, err)
}

func TestFlexFloat(t *testing.T) {
	var v struct {
		A flexFloat `json:"a"`
		B flexFloat `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42.5,"b":"17.25"}`), &v))
	assert.Equal(t, flexFloat(42.5), v.A)
	assert.Equal(t, flexFloat(17.25), v.B)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"not a number"}`), &v))
}
