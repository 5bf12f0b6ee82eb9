package pebble

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/tribunal/pkg/db"
)

var _ db.KVStore = (*KVStore)(nil)

// KVStore is a db.KVStore backed by pebble.
type KVStore struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	closed    bool
	mu        sync.RWMutex
}

type config struct {
	path     string
	cacheMiB int64
	noSync   bool
}

// Option configures NewKVStore.
type Option func(*config)

// WithPath stores data on disk under path. Without it the store lives in
// memory and is discarded on Close.
func WithPath(path string) Option {
	return func(c *config) { c.path = path }
}

// WithCacheSize sets the block cache size in MiB.
func WithCacheSize(mib int64) Option {
	return func(c *config) { c.cacheMiB = mib }
}

// WithoutSync skips the fsync after each write. Committed writes can be
// lost on a crash, so it is only meant for replays that can be rerun.
func WithoutSync() Option {
	return func(c *config) { c.noSync = true }
}

// NewKVStore opens a pebble database.
func NewKVStore(opts ...Option) (*KVStore, error) {
	cfg := config{cacheMiB: 64}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache := pebble.NewCache(cfg.cacheMiB * 1024 * 1024)
	defer cache.Unref()

	pebbleOpts := &pebble.Options{
		Cache:        cache,
		MemTableSize: 32 * 1024 * 1024, // 32MB
	}
	path := cfg.path
	if path == "" {
		pebbleOpts.FS = vfs.NewMem()
		path = "tribunal"
	}

	pdb, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, err
	}

	writeOpts := pebble.Sync
	if cfg.noSync {
		writeOpts = pebble.NoSync
	}
	return &KVStore{db: pdb, writeOpts: writeOpts}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Set(key, value, p.writeOpts)
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Delete(key, p.writeOpts)
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
