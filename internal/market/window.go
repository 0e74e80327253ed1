package market

// Trade is one executed fill contributing to a VWAP.
type Trade struct {
	Price float64
	Size  float64
}

// Window keeps the most recent trades up to a fixed capacity. Adding beyond
// capacity evicts the oldest trade. Not safe for concurrent use; callers
// synchronize.
type Window struct {
	capacity int
	trades   []Trade
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{capacity: capacity, trades: make([]Trade, 0, capacity)}
}

// Add appends a trade, evicting the oldest when the window is full.
func (w *Window) Add(price, size float64) {
	if len(w.trades) == w.capacity {
		copy(w.trades, w.trades[1:])
		w.trades = w.trades[:len(w.trades)-1]
	}
	w.trades = append(w.trades, Trade{Price: price, Size: size})
}

func (w *Window) Len() int {
	return len(w.trades)
}

// Trades returns a copy, oldest first.
func (w *Window) Trades() []Trade {
	out := make([]Trade, len(w.trades))
	copy(out, w.trades)
	return out
}

// VWAP returns the volume-weighted average price over the window. The second
// return is false when the window is empty or total volume is zero.
func (w *Window) VWAP() (float64, bool) {
	return VWAPOver(w.trades)
}

// VWAPOver computes sum(price*size)/sum(size) over the given trades. The
// result is undefined (ok=false) for an empty set or zero total volume.
func VWAPOver(trades []Trade) (float64, bool) {
	var num, den float64
	for _, t := range trades {
		num += t.Price * t.Size
		den += t.Size
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// CombinedVWAP concatenates the two windows oldest-first, keeps the last
// `capacity` trades, and computes their VWAP.
func CombinedVWAP(capacity int, a, b *Window) (float64, bool) {
	merged := append(a.Trades(), b.Trades()...)
	if capacity > 0 && len(merged) > capacity {
		merged = merged[len(merged)-capacity:]
	}
	return VWAPOver(merged)
}

// PctDiff returns 100*(a-b)/b. Undefined when b is zero.
func PctDiff(a, b float64) (float64, bool) {
	if b == 0 {
		return 0, false
	}
	return 100 * (a - b) / b, true
}
