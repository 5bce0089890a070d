package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/mohamedkhairy/market-pulse/internal/models"
)

// decodeFeedData decodes a FEED_DATA payload into typed market events.
// The compact payload is a pair [eventType, eventFields] where eventFields is
// a flat positional array: index 0 repeats the event type, index 1 is always
// the symbol, and the remaining positions are type-specific. A malformed
// payload drops only the affected event.
func decodeFeedData(data json.RawMessage) (models.MarketEvent, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("feed data is not an array: %w", err)
	}
	if len(pair) < 2 {
		return nil, models.ErrInvalidFrame
	}

	var eventType string
	if err := json.Unmarshal(pair[0], &eventType); err != nil {
		return nil, fmt.Errorf("event type is not a string: %w", err)
	}

	var fields []json.RawMessage
	if err := json.Unmarshal(pair[1], &fields); err != nil {
		return nil, fmt.Errorf("event fields are not an array: %w", err)
	}
	if len(fields) < 2 {
		return nil, models.ErrShortEventFields
	}

	var symbol string
	if err := json.Unmarshal(fields[1], &symbol); err != nil || symbol == "" {
		return nil, models.ErrInvalidSymbol
	}

	switch eventType {
	case eventTrade:
		if len(fields) < 4 {
			return nil, models.ErrShortEventFields
		}
		price, ok := fieldAsFloat(fields[2])
		if !ok {
			return nil, models.ErrInvalidPrice
		}
		size, ok := fieldAsFloat(fields[3])
		if !ok {
			size = 0
		}
		return models.TradeEvent{Symbol: symbol, Price: price, Size: size}, nil

	case eventQuote:
		if len(fields) < 4 {
			return nil, models.ErrShortEventFields
		}
		bid, okBid := fieldAsFloat(fields[2])
		ask, okAsk := fieldAsFloat(fields[3])
		if !okBid || !okAsk {
			return nil, models.ErrInvalidPrice
		}
		return models.QuoteEvent{Symbol: symbol, Bid: bid, Ask: ask}, nil

	case eventSummary:
		if len(fields) < 3 {
			return nil, models.ErrShortEventFields
		}
		open, ok := fieldAsFloat(fields[2])
		return models.SummaryEvent{Symbol: symbol, OpenPrice: open, HasOpen: ok && open > 0}, nil
	}

	return nil, models.ErrUnknownEventType
}

// fieldAsFloat reads a positional field that may arrive as a JSON number or
// as a quoted string (the venue sends "NaN" for absent values).
func fieldAsFloat(raw json.RawMessage) (float64, bool) {
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if math.IsNaN(num) || math.IsInf(num, 0) {
			return 0, false
		}
		return num, true
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}
	return num, true
}
