package usecase

import (
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/textmatch"
)

// StoreStatus describes the active snapshot.
type StoreStatus struct {
	Ready      bool
	Version    uint64
	Products   int
	Categories int
	BuiltAt    time.Time
}

// Catalog answers listing queries against the active snapshot.
type Catalog struct {
	store SnapshotProvider
}

func NewCatalog(store SnapshotProvider) *Catalog {
	return &Catalog{store: store}
}

// Products returns up to limit products, most observed first, optionally
// restricted to one category.
func (c *Catalog) Products(limit int, category string) []models.ProductInfo {
	all := c.store.Load().Products()
	category = textmatch.NormalizeCategory(category)
	out := make([]models.ProductInfo, 0, min(limit, len(all)))
	for _, p := range all {
		if len(out) >= limit {
			break
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories lists category keys that have a series.
func (c *Catalog) Categories() []string {
	return c.store.Load().Categories()
}

// Status reports what the active snapshot holds. An empty store is not ready.
func (c *Catalog) Status() StoreStatus {
	snap := c.store.Load()
	return StoreStatus{
		Ready:      snap.ProductCount() > 0,
		Version:    snap.Version(),
		Products:   snap.ProductCount(),
		Categories: snap.CategoryCount(),
		BuiltAt:    snap.BuiltAt(),
	}
}
