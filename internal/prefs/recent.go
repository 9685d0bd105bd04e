package prefs

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/storage"
)

// DefaultRecentCapacity is the number of recent searches kept.
const DefaultRecentCapacity = 5

// RecentSearches is a bounded most-recent-first list without duplicates.
// Matching is case-sensitive.
type RecentSearches struct {
	mu       sync.Mutex
	items    []string
	capacity int
	list     persistedList
}

// NewRecentSearches creates an empty list; call Load to restore persisted entries.
// capacity <= 0 uses DefaultRecentCapacity.
func NewRecentSearches(store storage.Store, capacity int, logger *zap.Logger) *RecentSearches {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &RecentSearches{
		capacity: capacity,
		list:     persistedList{store: store, key: RecentSearchesKey, logger: nopIfNil(logger)},
	}
}

// Load replaces the in-memory list with the persisted one, truncated to capacity.
func (r *RecentSearches) Load(ctx context.Context) {
	items := r.list.load(ctx)
	if len(items) > r.capacity {
		items = items[:r.capacity]
	}
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
}

// Record moves city to the front (inserting it if new), truncates to capacity
// and persists. Blank input is ignored.
func (r *RecentSearches) Record(ctx context.Context, city string) {
	if strings.TrimSpace(city) == "" {
		return
	}
	r.mu.Lock()
	next := make([]string, 0, r.capacity)
	next = append(next, city)
	for _, it := range r.items {
		if it != city {
			next = append(next, it)
		}
	}
	if len(next) > r.capacity {
		next = next[:r.capacity]
	}
	r.items = next
	snapshot := clone(next)
	r.mu.Unlock()

	r.list.save(ctx, snapshot)
}

// List returns a copy of the entries, most recent first.
func (r *RecentSearches) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.items)
}
