package monitor

// priceHistory is a bounded FIFO window of observed prices, one sample per
// monitor cycle. The oldest sample is evicted once capacity is exceeded.
type priceHistory struct {
	prices   []float64
	capacity int
}

func newPriceHistory(capacity int) *priceHistory {
	if capacity <= 1 {
		capacity = 20
	}
	return &priceHistory{
		prices:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Append records a price, evicting the oldest sample when full.
func (h *priceHistory) Append(price float64) {
	h.prices = append(h.prices, price)
	if len(h.prices) > h.capacity {
		h.prices = h.prices[1:]
	}
}

// Full reports whether the window holds capacity samples.
func (h *priceHistory) Full() bool {
	return len(h.prices) >= h.capacity
}

// RateOfChange returns (newest - oldest) / elapsedMinutes once the window is
// full, else 0. elapsedMinutes is the wall-clock span the full window covers.
func (h *priceHistory) RateOfChange(elapsedMinutes float64) float64 {
	if !h.Full() || elapsedMinutes <= 0 {
		return 0
	}
	return (h.prices[len(h.prices)-1] - h.prices[0]) / elapsedMinutes
}

// Reset clears the window for a new session.
func (h *priceHistory) Reset() {
	h.prices = h.prices[:0]
}
