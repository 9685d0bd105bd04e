package storage

import (
	"fmt"
	"io"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend               string // "memory", "file", "memcached" or "sqlite"
	Path                  string // file and sqlite backends
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend. The returned Closer must be closed on
// shutdown; it is a no-op for backends without resources.
func Open(opts Options) (Store, io.Closer, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nopCloser{}, nil
	case "file":
		s, err := NewFileStore(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case "memcached":
		s, err := NewMemcachedStore(opts.MemcachedAddrs, opts.MemcachedTimeout, opts.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "sqlite":
		s, err := NewSQLiteStore(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown backend %q", ErrStorage, opts.Backend)
	}
}
