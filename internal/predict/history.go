package predict

// Sample is a single timestamped pointer position.
type Sample struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Timestamp float64  `json:"timestamp_ms"`       // Milliseconds, caller-supplied clock
	Pressure  *float64 `json:"pressure,omitempty"` // Optional stylus/touch pressure [0, 1]
}

// History is a fixed-capacity ring buffer of recent samples held in
// insertion order. Insertion order is assumed to be temporal order; the
// buffer does not reorder or validate timestamps.
type History struct {
	buf   []Sample
	start int // index of the oldest sample
	n     int
}

// NewHistory creates a history holding at most capacity samples.
// Capacities below one are raised to one.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]Sample, capacity)}
}

// Add appends s, discarding the oldest sample when the buffer is full.
func (h *History) Add(s Sample) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = s
		h.n++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of samples held.
func (h *History) Len() int { return h.n }

// Cap returns the maximum number of samples held.
func (h *History) Cap() int { return len(h.buf) }

// Last returns the newest sample.
func (h *History) Last() (Sample, bool) {
	if h.n == 0 {
		return Sample{}, false
	}
	return h.at(h.n - 1), true
}

// at returns the i-th sample counting from the oldest.
func (h *History) at(i int) Sample {
	return h.buf[(h.start+i)%len(h.buf)]
}

// Recent returns a copy of the last n samples, oldest first.
func (h *History) Recent(n int) []Sample {
	return h.RecentInto(nil, n)
}

// RecentInto is Recent writing into dst's backing array when it is large
// enough, so per-sample callers can avoid allocating.
func (h *History) RecentInto(dst []Sample, n int) []Sample {
	if n > h.n {
		n = h.n
	}
	if n < 0 {
		n = 0
	}
	if cap(dst) < n {
		dst = make([]Sample, n)
	}
	dst = dst[:n]
	offset := h.n - n
	for i := 0; i < n; i++ {
		dst[i] = h.at(offset + i)
	}
	return dst
}

// Clear drops every sample without releasing the buffer.
func (h *History) Clear() {
	h.start = 0
	h.n = 0
}

// Resize changes the capacity, keeping the newest samples that fit.
func (h *History) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == len(h.buf) {
		return
	}
	kept := h.Recent(capacity)
	h.buf = make([]Sample, capacity)
	copy(h.buf, kept)
	h.start = 0
	h.n = len(kept)
}
