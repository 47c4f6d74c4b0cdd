package router

// History is a stack of visited paths. The zero value is empty; [History.Current] then reports "/".
type History struct {
	entries []string
}

// NewHistory creates a [History] whose only entry is initial.
func NewHistory(initial string) *History {
	return &History{entries: []string{clean(initial)}}
}

// Push records path as a new entry.
func (h *History) Push(path string) {
	h.entries = append(h.entries, clean(path))
}

// Replace overwrites the current entry with path, or pushes it when the history is empty.
func (h *History) Replace(path string) {
	if len(h.entries) == 0 {
		h.Push(path)
		return
	}
	h.entries[len(h.entries)-1] = clean(path)
}

func (h *History) record(path string, replace bool) {
	if replace {
		h.Replace(path)
		return
	}
	h.Push(path)
}

// Back drops the current entry and returns the one beneath it. It refuses to empty the stack.
func (h *History) Back() (string, bool) {
	if len(h.entries) < 2 {
		return h.Current(), false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return h.Current(), true
}

// Current returns the top entry.
func (h *History) Current() string {
	if len(h.entries) == 0 {
		return defaultRootRoute
	}
	return h.entries[len(h.entries)-1]
}

// Len reports the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the stack, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}
