package db

// KVStore is the ordered key-value storage the protocol state lives in.
// Get returns ErrNotFound-style sentinels defined by the implementation.
type KVStore interface {
	Writer
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	NewBatch() Batch
	NewIterator(start, end []byte) (Iterator, error)
	Close() error
}

type Writer interface {
	Put(key []byte, value []byte) error
}

// Batch stages puts and deletes that Commit applies atomically. Close
// releases an uncommitted batch and is a no-op after Commit.
type Batch interface {
	Writer
	Delete(key []byte) error
	// Len is the number of staged operations.
	Len() int
	Commit() error
	Close() error
}

// Iterator walks the keys in [start, end) in ascending order. It starts
// before the first key, so Next must be called before Key or Value.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}

// PrefixEnd returns the smallest key greater than every key starting with
// prefix, for use as an exclusive iterator upper bound. A nil result means
// the range is unbounded.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
