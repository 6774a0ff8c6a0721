package timeseries

import (
	"sync"
	"sync/atomic"

	"PricePulse/internal/domain/models"
)

// Holder publishes the current Snapshot. Reads are lock-free; writers are serialized.
type Holder struct {
	cur     atomic.Pointer[Snapshot]
	mu      sync.Mutex
	version uint64
}

// NewHolder creates a holder with an empty snapshot installed.
func NewHolder() *Holder {
	h := &Holder{}
	h.cur.Store(Empty())
	return h
}

// Load returns the snapshot readers should use for one whole request.
func (h *Holder) Load() *Snapshot {
	return h.cur.Load()
}

// Swap installs s and returns the previous snapshot.
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.version > h.version {
		h.version = s.version
	}
	return h.cur.Swap(s)
}

// Replace rebuilds the table from rows and swaps it in.
func (h *Holder) Replace(rows []models.PriceRow) BuildStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version++
	s, stats := Build(rows, h.version)
	h.cur.Store(s)
	return stats
}

// Append rebuilds the table from the current rows plus rows and swaps it in.
func (h *Holder) Append(rows []models.PriceRow) BuildStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	merged := append(h.cur.Load().Rows(), rows...)
	h.version++
	s, stats := Build(merged, h.version)
	h.cur.Store(s)
	return stats
}
