package prefs

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/storage"
)

// Favorites is an insertion-ordered set of city names.
type Favorites struct {
	mu    sync.Mutex
	items []string
	list  persistedList
}

func NewFavorites(store storage.Store, logger *zap.Logger) *Favorites {
	return &Favorites{
		list: persistedList{store: store, key: FavoritesKey, logger: nopIfNil(logger)},
	}
}

// Load replaces the in-memory set with the persisted one.
func (f *Favorites) Load(ctx context.Context) {
	items := f.list.load(ctx)
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
}

// Add appends city if absent. It reports whether the set changed.
func (f *Favorites) Add(ctx context.Context, city string) bool {
	if strings.TrimSpace(city) == "" {
		return false
	}
	f.mu.Lock()
	if indexOf(f.items, city) >= 0 {
		f.mu.Unlock()
		return false
	}
	f.items = append(f.items, city)
	snapshot := clone(f.items)
	f.mu.Unlock()

	f.list.save(ctx, snapshot)
	return true
}

// Remove deletes city if present. It reports whether the set changed.
func (f *Favorites) Remove(ctx context.Context, city string) bool {
	f.mu.Lock()
	i := indexOf(f.items, city)
	if i < 0 {
		f.mu.Unlock()
		return false
	}
	f.items = append(f.items[:i:i], f.items[i+1:]...)
	snapshot := clone(f.items)
	f.mu.Unlock()

	f.list.save(ctx, snapshot)
	return true
}

// Toggle adds city when absent and removes it otherwise. It returns whether
// city is a favorite afterwards.
func (f *Favorites) Toggle(ctx context.Context, city string) bool {
	if f.Contains(city) {
		f.Remove(ctx, city)
		return false
	}
	return f.Add(ctx, city)
}

func (f *Favorites) Contains(city string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return indexOf(f.items, city) >= 0
}

// List returns a copy in insertion order.
func (f *Favorites) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.items)
}
