package suggest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogProvider_Suggest(t *testing.T) {
	p := NewCatalogProvider(nil)
	tests := []struct {
		query string
		want  []string
	}{
		{"lon", []string{"London", "Barcelona"}},
		{"LON", []string{"London", "Barcelona"}},
		{"lond", []string{"London"}},
		{"é", []string{}},
		{"", []string{}},
		{"l", []string{}},
		{" l ", []string{}},
		{"zz", []string{}},
		{"new", []string{"New York"}},
		{"an", []string{"Los Angeles", "Istanbul", "Bangkok"}},
		{"o", []string{}},
		{"on", []string{"London", "Barcelona", "Toronto", "Lisbon"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := p.Suggest(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogProvider_CapsResults(t *testing.T) {
	p := NewCatalogProvider(nil)
	got, err := p.Suggest(context.Background(), "a ")
	require.NoError(t, err)
	assert.Empty(t, got, "trimmed query of length 1 yields nothing")

	got, err = p.Suggest(context.Background(), "in")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), MaxResults)
}

func TestCatalogProvider_CustomCatalog(t *testing.T) {
	p := NewCatalogProvider([]string{"Reykjavik", "Rekyjavik Harbour"})
	got, err := p.Suggest(context.Background(), "reyk")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reykjavik"}, got)
}

type countingProvider struct {
	calls   atomic.Int32
	mu      sync.Mutex
	queries []string
	err     error
}

func (c *countingProvider) Suggest(ctx context.Context, q string) ([]string, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.queries = append(c.queries, q)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return NewCatalogProvider(nil).Suggest(ctx, q)
}

func TestDebounced_OnlyTrailingQueryReachesProvider(t *testing.T) {
	p := &countingProvider{}
	s := NewDebounced(p, 100*time.Millisecond, nil)

	var wg sync.WaitGroup
	results := make(chan []string, 3)
	for _, q := range []string{"lo", "lon", "lond"} {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			if got, ok := s.Lookup(context.Background(), q); ok {
				results <- got
			}
		}(q)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()
	close(results)

	var delivered [][]string
	for r := range results {
		delivered = append(delivered, r)
	}
	assert.Equal(t, [][]string{{"London"}}, delivered)
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, []string{"lond"}, p.queries)
}

func TestDebounced_ProviderUnavailableMeansNoSuggestions(t *testing.T) {
	p := &countingProvider{err: ErrProviderUnavailable}
	s := NewDebounced(p, 0, nil)

	got, ok := s.Lookup(context.Background(), "lon")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestDebounced_ShortQuerySkipsProvider(t *testing.T) {
	p := &countingProvider{}
	s := NewDebounced(p, 0, nil)

	got, ok := s.Lookup(context.Background(), "l")
	assert.True(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, int32(0), p.calls.Load())
}

// TestMinimumLengthCountsCharacters checks that the catalog and the debounced
// wrapper agree on multi-byte input.
func TestMinimumLengthCountsCharacters(t *testing.T) {
	catalog := NewCatalogProvider([]string{"Évora", "Zürich"})
	p := &countingProvider{}
	s := NewDebounced(p, 0, nil)

	got, err := catalog.Suggest(context.Background(), "é")
	require.NoError(t, err)
	assert.Empty(t, got)
	_, ok := s.Lookup(context.Background(), "é")
	assert.True(t, ok)
	assert.Equal(t, int32(0), p.calls.Load())

	got, err = catalog.Suggest(context.Background(), "ür")
	require.NoError(t, err)
	assert.Equal(t, []string{"Zürich"}, got)
	_, ok = s.Lookup(context.Background(), "ür")
	assert.True(t, ok)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestDebounced_LookupAsync(t *testing.T) {
	s := NewDebounced(NewCatalogProvider(nil), 30*time.Millisecond, nil)

	got := make(chan []string, 2)
	s.LookupAsync(context.Background(), "par", func(r []string) { got <- r })
	time.Sleep(5 * time.Millisecond)
	s.LookupAsync(context.Background(), "pra", func(r []string) { got <- r })

	select {
	case r := <-got:
		assert.Equal(t, []string{"Prague"}, r)
	case <-time.After(time.Second):
		t.Fatal("no suggestions delivered")
	}
	select {
	case r := <-got:
		t.Fatalf("superseded lookup delivered %v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebounced_Cancel(t *testing.T) {
	p := &countingProvider{}
	s := NewDebounced(p, 50*time.Millisecond, nil)

	done := make(chan bool, 1)
	go func() {
		_, ok := s.Lookup(context.Background(), "lon")
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	s.Cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Lookup did not return after Cancel")
	}
	assert.Equal(t, int32(0), p.calls.Load())
}
