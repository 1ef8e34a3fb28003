package datastructure

// FixHistory. fixed capacity ring buffer of fixes, index 0 is the newest fix.
// pushing onto a full buffer overwrites the oldest fix.
type FixHistory struct {
	buf      []Fix
	head     int // slot of the newest fix
	size     int
	capacity int
}

func NewFixHistory(capacity int) *FixHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &FixHistory{
		buf:      make([]Fix, 0, min(capacity, 1024)),
		head:     -1,
		capacity: capacity,
	}
}

func (h *FixHistory) Capacity() int {
	return h.capacity
}

func (h *FixHistory) Len() int {
	return h.size
}

func (h *FixHistory) Empty() bool {
	return h.size == 0
}

// PushFront adds f as the newest fix. returns true if the oldest fix was evicted.
func (h *FixHistory) PushFront(f Fix) bool {
	if len(h.buf) < h.capacity {
		// still growing, buf is in insertion order
		h.buf = append(h.buf, f)
		h.head = len(h.buf) - 1
		h.size++
		return false
	}
	h.head = (h.head + 1) % len(h.buf)
	h.buf[h.head] = f
	return true
}

// At returns the i-th newest fix, At(0) is the newest.
func (h *FixHistory) At(i int) Fix {
	if i < 0 || i >= h.size {
		panic("fix history index out of range")
	}
	n := len(h.buf)
	return h.buf[((h.head-i)%n+n)%n]
}

func (h *FixHistory) Front() (Fix, bool) {
	if h.size == 0 {
		return Fix{}, false
	}
	return h.At(0), true
}

func (h *FixHistory) Back() (Fix, bool) {
	if h.size == 0 {
		return Fix{}, false
	}
	return h.At(h.size - 1), true
}

// ForEachNewestFirst calls fn from the newest to the oldest fix until fn returns false.
func (h *FixHistory) ForEachNewestFirst(fn func(i int, f Fix) bool) {
	for i := 0; i < h.size; i++ {
		if !fn(i, h.At(i)) {
			return
		}
	}
}

// ForEachOldestFirst calls fn from the oldest to the newest fix until fn returns false.
func (h *FixHistory) ForEachOldestFirst(fn func(i int, f Fix) bool) {
	for i := h.size - 1; i >= 0; i-- {
		if !fn(i, h.At(i)) {
			return
		}
	}
}

func (h *FixHistory) Clear() {
	h.buf = h.buf[:0]
	h.head = -1
	h.size = 0
}
