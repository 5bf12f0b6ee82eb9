package pebble

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/tribunal/pkg/db"
)

// Iterator walks a key range of a KVStore. Keys and values it returns are
// copies and stay valid after the iterator moves.
type Iterator struct {
	store   *KVStore
	iter    *pebble.Iterator
	started bool
	done    bool
}

func (p *KVStore) NewIterator(start, end []byte) (db.Iterator, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	if err != nil {
		return nil, fmt.Errorf(ErrInIteratorCreation, err)
	}
	return &Iterator{store: p, iter: iter}, nil
}

// Next advances to the next key. It returns false once the range is
// exhausted or the store has been closed.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	it.store.mu.RLock()
	defer it.store.mu.RUnlock()
	if it.store.closed {
		it.done = true
		return false
	}

	if it.started {
		it.done = !it.iter.Next()
	} else {
		it.started = true
		it.done = !it.iter.First()
	}
	return !it.done
}

// Key returns nil when the iterator is not positioned on a key.
func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return append([]byte(nil), it.iter.Key()...)
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.Valid() {
		return nil, ErrIteratorInvalid
	}
	val, err := it.iter.ValueAndErr()
	if err != nil {
		return nil, fmt.Errorf(ErrIteratorValue, err)
	}
	return append([]byte(nil), val...), nil
}

func (it *Iterator) Valid() bool {
	return it.started && !it.done && it.iter.Valid()
}

func (it *Iterator) Close() error {
	it.done = true
	return it.iter.Close()
}
