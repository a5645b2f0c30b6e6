package history

// History is a fixed-capacity FIFO set of order identifiers. Once full, each
// new identifier evicts the oldest one.
type History struct {
	items []string
	head  int
	size  int
	seen  map[string]struct{}
}

func New(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		items: make([]string, capacity),
		seen:  make(map[string]struct{}, capacity),
	}
}

func (h *History) Has(id string) bool {
	_, ok := h.seen[id]
	return ok
}

// Record inserts id. Recording an identifier that is already present is a
// no-op and does not refresh its position.
func (h *History) Record(id string) {
	if h.Has(id) {
		return
	}
	if h.size == len(h.items) {
		delete(h.seen, h.items[h.head])
		h.items[h.head] = id
		h.head = (h.head + 1) % len(h.items)
	} else {
		h.items[(h.head+h.size)%len(h.items)] = id
		h.size++
	}
	h.seen[id] = struct{}{}
}

// CheckAndRecord reports whether id is new and records it if so.
func (h *History) CheckAndRecord(id string) bool {
	if h.Has(id) {
		return false
	}
	h.Record(id)
	return true
}

func (h *History) Len() int {
	return h.size
}

func (h *History) Cap() int {
	return len(h.items)
}

// Items returns the identifiers oldest first.
func (h *History) Items() []string {
	out := make([]string, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.items[(h.head+i)%len(h.items)])
	}
	return out
}

// Restore records ids in order, so only the newest Cap() survive.
func (h *History) Restore(ids []string) {
	for _, id := range ids {
		h.Record(id)
	}
}
