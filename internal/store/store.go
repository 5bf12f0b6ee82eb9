// Package store persists protocol entities in a db.KVStore. All writes go
// through a Txn, an in-memory overlay that is applied atomically by Commit
// or dropped by Discard.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/eigerco/tribunal/pkg/db"
	"github.com/eigerco/tribunal/pkg/db/pebble"
)

// DefaultCacheSize is the number of committed values kept in the read cache.
const DefaultCacheSize = 4096

var (
	ErrNotFound    = errors.New("entity not found")
	ErrStoreClosed = errors.New("store is closed")
	ErrTxnDone     = errors.New("transaction already committed or discarded")
)

// Store is the typed entity store.
type Store struct {
	db     db.KVStore
	cache  *lru.Cache[string, []byte]
	log    zerolog.Logger
	closed atomic.Bool
}

// New wraps kv with a read cache of cacheSize entries. A non-positive size
// selects DefaultCacheSize.
func New(kv db.KVStore, cacheSize int, logger zerolog.Logger) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Store{db: kv, cache: cache, log: logger}, nil
}

// Close closes the underlying key-value store.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cache.Purge()
	return s.db.Close()
}

// Begin starts a transaction. Transactions are not safe for concurrent use
// and must not overlap with another committing transaction on the same
// store; the caller serialises them.
func (s *Store) Begin() *Txn {
	return &Txn{store: s, writes: make(map[string]write)}
}

// View runs fn against a transaction that is always discarded.
func (s *Store) View(fn func(*Txn) error) error {
	txn := s.Begin()
	defer txn.Discard()
	return fn(txn)
}

func (s *Store) get(key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if v, ok := s.cache.Get(string(key)); ok {
		return v, nil
	}
	v, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", PrefixToString(key[0]), err)
	}
	s.cache.Add(string(key), v)
	return v, nil
}

type write struct {
	value   []byte
	deleted bool
}

// Txn is a write overlay over the committed store state.
type Txn struct {
	store  *Store
	writes map[string]write
	done   bool
}

// Commit writes the overlay in one batch.
func (t *Txn) Commit() error {
	if t.done {
		return ErrTxnDone
	}
	t.done = true
	if len(t.writes) == 0 {
		return nil
	}
	if t.store.closed.Load() {
		return ErrStoreClosed
	}

	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := t.store.db.NewBatch()
	defer batch.Close()
	for _, k := range keys {
		w := t.writes[k]
		var err error
		if w.deleted {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Put([]byte(k), w.value)
		}
		if err != nil {
			return fmt.Errorf("stage %s: %w", PrefixToString(k[0]), err)
		}
	}
	if err := batch.Commit(); err != nil {
		// The batch may have partially reached the cache's view of the world.
		t.store.cache.Purge()
		return fmt.Errorf("commit batch: %w", err)
	}

	for _, k := range keys {
		if w := t.writes[k]; w.deleted {
			t.store.cache.Remove(k)
		} else {
			t.store.cache.Add(k, w.value)
		}
	}
	t.store.log.Trace().Int("writes", batch.Len()).Msg("committed transaction")
	return nil
}

// Discard drops the overlay. It is safe to call after Commit.
func (t *Txn) Discard() {
	t.done = true
	t.writes = nil
}

func (t *Txn) get(key []byte, v any) error {
	if t.done {
		return ErrTxnDone
	}
	raw, err := t.raw(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", PrefixToString(key[0]), err)
	}
	return nil
}

func (t *Txn) raw(key []byte) ([]byte, error) {
	if w, ok := t.writes[string(key)]; ok {
		if w.deleted {
			return nil, ErrNotFound
		}
		return w.value, nil
	}
	return t.store.get(key)
}

func (t *Txn) put(key []byte, v any) error {
	if t.done {
		return ErrTxnDone
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", PrefixToString(key[0]), err)
	}
	t.writes[string(key)] = write{value: raw}
	return nil
}

func (t *Txn) delete(key []byte) error {
	if t.done {
		return ErrTxnDone
	}
	t.writes[string(key)] = write{deleted: true}
	return nil
}

// scan returns the values under prefix in key order, overlay included.
func (t *Txn) scan(prefix []byte) ([][]byte, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	if t.store.closed.Load() {
		return nil, ErrStoreClosed
	}

	merged := make(map[string][]byte)
	iter, err := t.store.db.NewIterator(prefix, db.PrefixEnd(prefix))
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()
	for iter.Next() {
		v, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", PrefixToString(prefix[0]), err)
		}
		merged[string(iter.Key())] = v
	}

	for k, w := range t.writes {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if w.deleted {
			delete(merged, k)
		} else {
			merged[k] = w.value
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = merged[k]
	}
	return values, nil
}

func scanAs[T any](t *Txn, prefix []byte) ([]T, error) {
	raws, err := t.scan(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(raws))
	for i, raw := range raws {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, fmt.Errorf("decode %s: %w", PrefixToString(prefix[0]), err)
		}
	}
	return out, nil
}
