// Package prefs holds the user's persisted lists: recent searches and
// favorites. Both are JSON string arrays in a storage.Store. Storage failures
// are logged and counted, never returned.
package prefs

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/storage"
)

// Storage keys.
const (
	RecentSearchesKey = "recentSearches"
	FavoritesKey      = "favorites"
)

// persistedList reads and writes one []string under a key.
type persistedList struct {
	store  storage.Store
	key    string
	logger *zap.Logger
}

// load returns the stored list, or nil when it is absent, unreadable or malformed.
func (p persistedList) load(ctx context.Context) []string {
	raw, ok, err := p.store.Get(ctx, p.key)
	if err != nil {
		observability.StorageErrorsTotal.WithLabelValues("get", p.key).Inc()
		p.logger.Warn("failed to read preferences, starting empty",
			zap.String("key", p.key),
			zap.Error(err),
		)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		observability.StorageErrorsTotal.WithLabelValues("decode", p.key).Inc()
		p.logger.Warn("malformed preferences, starting empty",
			zap.String("key", p.key),
			zap.Error(err),
		)
		return nil
	}
	return dedupe(items)
}

func (p persistedList) save(ctx context.Context, items []string) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		p.logger.Error("failed to encode preferences", zap.String("key", p.key), zap.Error(err))
		return
	}
	if err := p.store.Set(ctx, p.key, string(b)); err != nil {
		observability.StorageErrorsTotal.WithLabelValues("set", p.key).Inc()
		p.logger.Warn("failed to persist preferences",
			zap.String("key", p.key),
			zap.Error(err),
		)
	}
}

// dedupe keeps the first occurrence of each entry.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func indexOf(items []string, s string) int {
	for i, it := range items {
		if it == s {
			return i
		}
	}
	return -1
}

func clone(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
