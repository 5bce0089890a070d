package feed

import "encoding/json"

// Frame type strings on the wire.
const (
	frameSetup            = "SETUP"
	frameAuth             = "AUTH"
	frameChannelRequest   = "CHANNEL_REQUEST"
	frameFeedSetup        = "FEED_SETUP"
	frameFeedSubscription = "FEED_SUBSCRIPTION"
	frameKeepalive        = "KEEPALIVE"
	frameFeedData         = "FEED_DATA"
)

// Event type strings on the wire.
const (
	eventTrade   = "Trade"
	eventQuote   = "Quote"
	eventSummary = "Summary"
)

// protocolVersion is the dxLink protocol version advertised in SETUP.
const protocolVersion = "0.1-DXF-JS/0.3.0"

// controlChannel is channel 0, carrying SETUP, AUTH and KEEPALIVE frames.
const controlChannel = 0

type setupFrame struct {
	Type                   string `json:"type"`
	Channel                int    `json:"channel"`
	Version                string `json:"version"`
	KeepaliveTimeout       int    `json:"keepaliveTimeout"`
	AcceptKeepaliveTimeout int    `json:"acceptKeepaliveTimeout"`
}

type authFrame struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
	Token   string `json:"token"`
}

type channelRequestFrame struct {
	Type       string            `json:"type"`
	Channel    int               `json:"channel"`
	Service    string            `json:"service"`
	Parameters map[string]string `json:"parameters"`
}

type feedSetupFrame struct {
	Type                    string              `json:"type"`
	Channel                 int                 `json:"channel"`
	AcceptAggregationPeriod float64             `json:"acceptAggregationPeriod"`
	AcceptDataFormat        string              `json:"acceptDataFormat"`
	AcceptEventFields       map[string][]string `json:"acceptEventFields"`
}

type subscriptionEntry struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type feedSubscriptionFrame struct {
	Type    string              `json:"type"`
	Channel int                 `json:"channel"`
	Reset   bool                `json:"reset"`
	Add     []subscriptionEntry `json:"add"`
}

type keepaliveFrame struct {
	Type    string `json:"type"`
	Channel int    `json:"channel"`
}

// inboundFrame is the envelope of every server-to-client message. Only
// FEED_DATA frames carry a payload this client cares about.
type inboundFrame struct {
	Type    string          `json:"type"`
	Channel int             `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func newSetupFrame(keepaliveTimeout int) setupFrame {
	return setupFrame{
		Type:                   frameSetup,
		Channel:                controlChannel,
		Version:                protocolVersion,
		KeepaliveTimeout:       keepaliveTimeout,
		AcceptKeepaliveTimeout: keepaliveTimeout,
	}
}

func newAuthFrame(token string) authFrame {
	return authFrame{Type: frameAuth, Channel: controlChannel, Token: token}
}

func newChannelRequestFrame(channel int) channelRequestFrame {
	return channelRequestFrame{
		Type:       frameChannelRequest,
		Channel:    channel,
		Service:    "FEED",
		Parameters: map[string]string{"contract": "AUTO"},
	}
}

func newFeedSetupFrame(channel int) feedSetupFrame {
	return feedSetupFrame{
		Type:                    frameFeedSetup,
		Channel:                 channel,
		AcceptAggregationPeriod: 0.1,
		AcceptDataFormat:        "COMPACT",
		AcceptEventFields: map[string][]string{
			eventTrade:   {"eventType", "eventSymbol", "price", "size"},
			eventQuote:   {"eventType", "eventSymbol", "bidPrice", "askPrice"},
			eventSummary: {"eventType", "eventSymbol", "dayOpenPrice"},
		},
	}
}

func newFeedSubscriptionFrame(channel int, symbols []string) feedSubscriptionFrame {
	add := make([]subscriptionEntry, 0, len(symbols)*3)
	for _, eventType := range []string{eventTrade, eventQuote, eventSummary} {
		for _, symbol := range symbols {
			add = append(add, subscriptionEntry{Type: eventType, Symbol: symbol})
		}
	}
	return feedSubscriptionFrame{
		Type:    frameFeedSubscription,
		Channel: channel,
		Reset:   true,
		Add:     add,
	}
}

func newKeepaliveFrame() keepaliveFrame {
	return keepaliveFrame{Type: frameKeepalive, Channel: controlChannel}
}
