package convert

// HistoryLimit is the number of past inputs and outputs a Session keeps.
const HistoryLimit = 3

// history is a bounded FIFO; the oldest entry is evicted first.
type history struct {
	entries []string
	limit   int
}

func newHistory(limit int) history {
	return history{limit: limit}
}

func (h *history) push(s string) {
	h.entries = append(h.entries, s)
	for len(h.entries) > h.limit {
		h.entries = h.entries[1:]
	}
}

// fromEnd returns the entry n positions before the last (0 = last), or ""
// when the history is not that long.
func (h *history) fromEnd(n int) string {
	i := len(h.entries) - 1 - n
	if i < 0 {
		return ""
	}
	return h.entries[i]
}

func (h *history) len() int {
	return len(h.entries)
}

func (h *history) snapshot() []string {
	return append([]string(nil), h.entries...)
}
