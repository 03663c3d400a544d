package rates

// WindowMs is the length of a budget window.
const WindowMs int64 = 60_000

type Window struct {
	Start int64
	Used  int
}

// Allow evaluates one request against a lazily reset window. The window only restarts
// when a request arrives after it expired, so boundaries drift with traffic.
// A limit <= 0 denies everything.
func Allow(w Window, nowMs int64, window int64, limit int) (Window, bool) {
	if nowMs-w.Start >= window {
		w.Start = nowMs
		w.Used = 0
	}
	if limit <= 0 || w.Used >= limit {
		return w, false
	}
	w.Used++
	return w, true
}

// Budget is a per-NPC table of windows for one throttled event kind.
type Budget struct {
	window  int64
	windows map[uint64]Window
}

func NewBudget() *Budget {
	return NewBudgetWindow(WindowMs)
}

func NewBudgetWindow(windowMs int64) *Budget {
	if windowMs <= 0 {
		windowMs = WindowMs
	}
	return &Budget{window: windowMs, windows: map[uint64]Window{}}
}

// TryConsume grants one event for key if the current window still has room.
// The first request for a key opens its window at nowMs.
func (b *Budget) TryConsume(key uint64, limit int, nowMs int64) bool {
	w, ok := b.windows[key]
	if !ok {
		w = Window{Start: nowMs}
	}
	w, granted := Allow(w, nowMs, b.window, limit)
	b.windows[key] = w
	return granted
}

func (b *Budget) Peek(key uint64) (Window, bool) {
	w, ok := b.windows[key]
	return w, ok
}

func (b *Budget) Forget(key uint64) {
	delete(b.windows, key)
}

func (b *Budget) Len() int { return len(b.windows) }
