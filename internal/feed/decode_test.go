package feed

import (
	"encoding/json"
	"testing"

	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFeedData_Trade(t *testing.T) {
	ev, err := decodeFeedData(json.RawMessage(`["Trade",["Trade","SPY",450.25,100]]`))
	require.NoError(t, err)

	trade, ok := ev.(models.TradeEvent)
	require.True(t, ok)
	assert.Equal(t, "SPY", trade.Symbol)
	assert.Equal(t, 450.25, trade.Price)
	assert.Equal(t, 100.0, trade.Size)
}

func TestDecodeFeedData_TradeWithStringFields(t *testing.T) {
	ev, err := decodeFeedData(json.RawMessage(`["Trade",["Trade","SPY","450.25","100"]]`))
	require.NoError(t, err)

	trade := ev.(models.TradeEvent)
	assert.Equal(t, 450.25, trade.Price)
	assert.Equal(t, 100.0, trade.Size)
}

func TestDecodeFeedData_TradeNaNSizeBecomesZero(t *testing.T) {
	ev, err := decodeFeedData(json.RawMessage(`["Trade",["Trade","SPY",450.25,"NaN"]]`))
	require.NoError(t, err)

	trade := ev.(models.TradeEvent)
	assert.Equal(t, 450.25, trade.Price)
	assert.Zero(t, trade.Size)
}

func TestDecodeFeedData_TradeNaNPriceRejected(t *testing.T) {
	_, err := decodeFeedData(json.RawMessage(`["Trade",["Trade","SPY","NaN",100]]`))
	assert.ErrorIs(t, err, models.ErrInvalidPrice)
}

func TestDecodeFeedData_Quote(t *testing.T) {
	ev, err := decodeFeedData(json.RawMessage(`["Quote",["Quote","QQQ",99.5,100.5]]`))
	require.NoError(t, err)

	quote, ok := ev.(models.QuoteEvent)
	require.True(t, ok)
	assert.Equal(t, "QQQ", quote.Symbol)
	assert.Equal(t, 99.5, quote.Bid)
	assert.Equal(t, 100.5, quote.Ask)
	assert.Equal(t, 100.0, quote.Mid())
}

func TestDecodeFeedData_Summary(t *testing.T) {
	ev, err := decodeFeedData(json.RawMessage(`["Summary",["Summary","SPY",449.75]]`))
	require.NoError(t, err)

	summary, ok := ev.(models.SummaryEvent)
	require.True(t, ok)
	assert.Equal(t, "SPY", summary.Symbol)
	assert.Equal(t, 449.75, summary.OpenPrice)
	assert.True(t, summary.HasOpen)
}

func TestDecodeFeedData_SummaryNaNOpen(t *testing.T) {
	ev, err := decodeFeedData(json.RawMessage(`["Summary",["Summary","SPY","NaN"]]`))
	require.NoError(t, err)

	summary := ev.(models.SummaryEvent)
	assert.False(t, summary.HasOpen)
}

func TestDecodeFeedData_Malformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not an array", `{"type":"Trade"}`},
		{"single element", `["Trade"]`},
		{"fields not array", `["Trade","SPY"]`},
		{"missing symbol", `["Trade",["Trade"]]`},
		{"empty symbol", `["Trade",["Trade",""]]`},
		{"short trade", `["Trade",["Trade","SPY",450.25]]`},
		{"short quote", `["Quote",["Quote","QQQ",99.5]]`},
		{"short summary", `["Summary",["Summary","SPY"]]`},
		{"unknown type", `["Greeks",["Greeks","SPY",1,2,3]]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeFeedData(json.RawMessage(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestFieldAsFloat(t *testing.T) {
	v, ok := fieldAsFloat(json.RawMessage(`42.5`))
	assert.True(t, ok)
	assert.Equal(t, 42.5, v)

	v, ok = fieldAsFloat(json.RawMessage(`"42.5"`))
	assert.True(t, ok)
	assert.Equal(t, 42.5, v)

	_, ok = fieldAsFloat(json.RawMessage(`"NaN"`))
	assert.False(t, ok)

	_, ok = fieldAsFloat(json.RawMessage(`"Infinity"`))
	assert.False(t, ok)

	_, ok = fieldAsFloat(json.RawMessage(`null`))
	assert.False(t, ok)

	_, ok = fieldAsFloat(json.RawMessage(`[1]`))
	assert.False(t, ok)
}
