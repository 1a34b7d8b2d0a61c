// Package history keeps the most recently viewed items.
package history

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ldi/planner/pkg/models"
)

// DefaultLimit is the number of entries kept when no limit is configured.
const DefaultLimit = 10

// Tracker records viewed items.
type Tracker interface {
	Add(item models.Item)
	History() []models.Item
}

// InMemory is a bounded most-recently-used list keyed by item ID.
// Viewing an item again moves it to the newest position; once the limit is
// exceeded the oldest entry is evicted.
type InMemory struct {
	limit   int
	entries *orderedmap.OrderedMap[int, models.Item]
}

func NewInMemory(limit int) *InMemory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &InMemory{
		limit:   limit,
		entries: orderedmap.New[int, models.Item](),
	}
}

// Add stores a copy of item. Nil items are ignored.
func (h *InMemory) Add(item models.Item) {
	if item == nil {
		return
	}
	id := item.Ref().ID
	h.entries.Delete(id)
	h.entries.Set(id, item.CloneItem())

	for h.entries.Len() > h.limit {
		h.entries.Delete(h.entries.Oldest().Key)
	}
}

// History returns copies of the tracked items, oldest first.
func (h *InMemory) History() []models.Item {
	out := make([]models.Item, 0, h.entries.Len())
	for pair := h.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.CloneItem())
	}
	return out
}

func (h *InMemory) Len() int {
	return h.entries.Len()
}
