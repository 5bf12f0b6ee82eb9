package pebble

import (
	"github.com/cockroachdb/pebble"

	"github.com/eigerco/tribunal/pkg/db"
)

// Batch stages writes for a single atomic commit. It is not safe for
// concurrent use.
type Batch struct {
	store *KVStore
	batch *pebble.Batch
	ops   int
	done  bool
}

func (p *KVStore) NewBatch() db.Batch {
	return &Batch{store: p, batch: p.db.NewBatch()}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done {
		return ErrBatchDone
	}
	b.ops++
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done {
		return ErrBatchDone
	}
	b.ops++
	return b.batch.Delete(key, nil)
}

// Len is the number of staged operations.
func (b *Batch) Len() int { return b.ops }

// Commit applies the staged operations and releases the batch. A failed
// commit leaves the batch open so the caller can still Close it.
func (b *Batch) Commit() error {
	if b.done {
		return ErrBatchDone
	}

	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	if b.store.closed {
		return ErrClosed
	}
	if err := b.batch.Commit(b.store.writeOpts); err != nil {
		return err
	}
	b.done = true
	return b.batch.Close()
}

func (b *Batch) Close() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.batch.Close()
}
