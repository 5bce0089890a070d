package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohamedkhairy/market-pulse/internal/config"
	"github.com/mohamedkhairy/market-pulse/internal/market"
	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/mohamedkhairy/market-pulse/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubController struct {
	applied map[string]models.Sentiment
	err     error
}

func (c *stubController) SetSymbols(ctx context.Context, sentiments map[string]models.Sentiment) error {
	c.applied = sentiments
	return c.err
}

func newTestServer(t *testing.T) (*Server, *market.Store, *monitor.LevelsStore, *stubController) {
	t.Helper()

	store := market.NewStore(0)
	sentiments := market.NewSentiments(map[string]models.Sentiment{
		"SPY": models.SentimentPositive,
		"VIX": models.SentimentNegative,
	})
	levels := monitor.NewLevelsStore()
	controller := &stubController{}

	server := NewServer(config.DashboardConfig{Port: 0}, store, sentiments, levels, NewHub(), controller)
	return server, store, levels, controller
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_IndicatorsSorted(t *testing.T) {
	server, store, _, _ := newTestServer(t)
	now := time.Now()

	store.Apply(models.TradeEvent{Symbol: "VIX", Price: 18.5, Size: 10}, now)
	store.Apply(models.TradeEvent{Symbol: "SPY", Price: 450.25, Size: 100}, now)

	w := doRequest(server, http.MethodGet, "/api/indicators", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Indicators []models.IndicatorUpdate `json:"indicators"`
		Count      int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "SPY", body.Indicators[0].Symbol)
	assert.Equal(t, "orange", body.Indicators[0].TextColor)
	assert.Equal(t, "VIX", body.Indicators[1].Symbol)
	assert.Equal(t, "pink", body.Indicators[1].TextColor)
}

func TestServer_SetAndListBreakouts(t *testing.T) {
	server, _, levels, _ := newTestServer(t)

	payload, err := json.Marshal(models.BreakoutLevels{
		Symbol:       "SPY",
		BreakoutUp:   455,
		BreakoutDown: 445,
		Long:         models.TradeLegs{Entry: 455, Target: 458, Stop: 453},
		Short:        models.TradeLegs{Entry: 445, Target: 442, Stop: 447},
		Probability:  0.8,
		BestHourCST:  10,
	})
	require.NoError(t, err)

	w := doRequest(server, http.MethodPost, "/api/breakouts", payload)
	require.Equal(t, http.StatusOK, w.Code)

	stored := levels.Levels()
	require.Len(t, stored, 1)
	assert.Equal(t, 455.0, stored["SPY"].BreakoutUp)

	w = doRequest(server, http.MethodGet, "/api/breakouts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Breakouts []models.BreakoutLevels `json:"breakouts"`
		Count     int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "SPY", body.Breakouts[0].Symbol)
}

func TestServer_SetBreakoutRejectsInvalid(t *testing.T) {
	server, _, levels, _ := newTestServer(t)

	// Up at or below down fails validation.
	w := doRequest(server, http.MethodPost, "/api/breakouts",
		[]byte(`{"symbol":"SPY","breakout_up":440,"breakout_down":450}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, levels.Levels())

	w = doRequest(server, http.MethodPost, "/api/breakouts", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_SetSymbols(t *testing.T) {
	server, _, _, controller := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/api/symbols",
		[]byte(`{"positive":["SPY","QQQ"],"neutral":["GLD"],"negative":["VIX"]}`))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, controller.applied, 4)
	assert.Equal(t, models.SentimentPositive, controller.applied["QQQ"])
	assert.Equal(t, models.SentimentNeutral, controller.applied["GLD"])
	assert.Equal(t, models.SentimentNegative, controller.applied["VIX"])
}

func TestServer_SetSymbolsRejectsEmpty(t *testing.T) {
	server, _, _, controller := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/api/symbols", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, controller.applied)
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub()

	// No clients: publish must not block or panic.
	hub.Publish(models.IndicatorUpdate{Symbol: "SPY", Price: 450})

	stats := hub.GetStats()
	assert.Equal(t, int64(1), stats.UpdatesPublished)
	assert.Zero(t, hub.ClientCount())
}
