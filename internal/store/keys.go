package store

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/eigerco/tribunal/internal/state"
)

// Prefix constants for all entity types
const (
	prefixParams byte = iota + 1
	prefixConfig
	prefixAccount
	prefixPool
	prefixSubject
	prefixDispute
	prefixEscrow
	prefixDefenderRecord
	prefixChallengerRecord
	prefixJurorRecord
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixParams:
		return "params"
	case prefixConfig:
		return "config"
	case prefixAccount:
		return "account"
	case prefixPool:
		return "pool"
	case prefixSubject:
		return "subject"
	case prefixDispute:
		return "dispute"
	case prefixEscrow:
		return "escrow"
	case prefixDefenderRecord:
		return "defenderRecord"
	case prefixChallengerRecord:
		return "challengerRecord"
	case prefixJurorRecord:
		return "jurorRecord"
	default:
		return "unknown"
	}
}

// hashID maps a variable length identifier onto a fixed width key part so
// that composite keys can be range scanned.
func hashID(id string) [32]byte {
	return blake2b.Sum256([]byte(id))
}

// makeKey creates a key from a prefix and parts
func makeKey(prefix byte, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	key = append(key, prefix)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

func roundBytes(round uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, round)
}

func subjectKey(prefix byte, id state.SubjectID) []byte {
	h := hashID(string(id))
	return makeKey(prefix, h[:])
}

func accountKey(owner state.Address) []byte {
	h := hashID(string(owner))
	return makeKey(prefixAccount, h[:])
}

func poolKey(role state.Role, owner state.Address) []byte {
	h := hashID(string(owner))
	return makeKey(prefixPool, []byte{byte(role)}, h[:])
}

// roundPrefix addresses every record of one role in one round of a subject.
func roundPrefix(prefix byte, id state.SubjectID, round uint64) []byte {
	h := hashID(string(id))
	return makeKey(prefix, h[:], roundBytes(round))
}

func recordKey(prefix byte, id state.SubjectID, round uint64, owner state.Address) []byte {
	o := hashID(string(owner))
	return append(roundPrefix(prefix, id, round), o[:]...)
}
