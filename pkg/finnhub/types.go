package finnhub

// TradeMessage is the envelope Finnhub sends on its trade stream. Non-trade
// types (ping, subscription acks) carry no data.
type TradeMessage struct {
	Type string  `json:"type"`
	Data []Trade `json:"data"`
}

// Trade is one trade event within a TradeMessage.
type Trade struct {
	Symbol    string  `json:"s"` // venue-qualified symbol, e.g. "BINANCE:ETHUSDT"
	Price     float64 `json:"p"` // last price
	Timestamp int64   `json:"t"` // milliseconds since epoch
	Volume    float64 `json:"v"` // trade volume
}

// subscribeRequest is the client-to-server subscription payload.
type subscribeRequest struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}
