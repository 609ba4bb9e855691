package domain

import "time"

// HistoryEntry is one answered query.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Mode      ToolMode  `json:"type"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// History is a newest-first list bounded by Cap.
type History struct {
	Cap     int
	Entries []HistoryEntry
}

// NewHistory returns an empty history with the given cap.
func NewHistory(limit int) *History {
	return &History{Cap: limit}
}

// Add inserts an entry at the front, evicting the oldest entries past the cap.
func (h *History) Add(e HistoryEntry) {
	h.Entries = append([]HistoryEntry{e}, h.Entries...)
	if h.Cap > 0 && len(h.Entries) > h.Cap {
		h.Entries = h.Entries[:h.Cap]
	}
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.Entries)
}
