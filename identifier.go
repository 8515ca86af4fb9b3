// Package taskgraph implements a parallel task-graph executor: a library
// that accepts a flat collection of user-defined tasks with declared data
// dependencies, layers them into a dependency graph, and executes each
// layer in parallel across isolated workers while forwarding per-task
// outputs as inputs to downstream tasks.
package taskgraph

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/google/uuid"
)

// TaskIdentifier is a pair (ID, Context): ID groups a family of related
// tasks (e.g. a numeric kind code), Context distinguishes instances (e.g. a
// target name). Identity equality and lookup always route through Hash,
// never through the raw fields (spec.md §4.1).
type TaskIdentifier struct {
	ID      int64
	Context string
}

// NewTaskIdentifier constructs a fresh identifier pair.
func NewTaskIdentifier(id int64, context string) TaskIdentifier {
	return TaskIdentifier{ID: id, Context: context}
}

// NewSymbolicIdentifier mints an identifier whose ID is derived from a
// random UUID reduced to an int64, for callers that want an opaque,
// collision-resistant grouping key without picking one themselves (e.g.
// anonymous/generated tasks). The resulting identifier has the same shape
// as a hand-picked one and participates in hashing identically.
func NewSymbolicIdentifier(context string) TaskIdentifier {
	u := uuid.New()
	// Fold the 16 UUID bytes into an int64 via XOR; this is purely a seed
	// for identity, not a security property, so folding is adequate.
	var id int64
	b := u[:]
	for i := 0; i < len(b); i += 8 {
		chunk := make([]byte, 8)
		copy(chunk, b[i:])
		id ^= int64(binary.BigEndian.Uint64(chunk))
	}
	return TaskIdentifier{ID: id, Context: context}
}

// minimalBigEndian returns the smallest big-endian byte encoding of id,
// i.e. big.Int's Bytes() representation (no leading zero bytes, empty
// slice for zero).
func minimalBigEndian(id int64) []byte {
	return new(big.Int).SetInt64(id).Bytes()
}

// Hash computes the stable content-addressed identity of a TaskIdentifier:
// SHA-256 of minimalBigEndian(id) ∥ utf8(context), read as a big-endian
// unbounded integer (spec.md §4.1). Hash collisions are treated as
// impossible (cryptographic strength); this is the only legitimate
// equality/lookup key for identifiers anywhere in the system.
func (t TaskIdentifier) Hash() *big.Int {
	h := sha256.New()
	h.Write(minimalBigEndian(t.ID))
	h.Write([]byte(t.Context))
	sum := h.Sum(nil)
	return new(big.Int).SetBytes(sum)
}

// HashString returns the hex form of Hash, convenient as a map key where a
// comparable string is wanted instead of *big.Int (which is not comparable
// with ==).
func (t TaskIdentifier) HashString() string {
	return t.Hash().Text(16)
}

// Equal reports whether two identifiers share the same content hash.
func (t TaskIdentifier) Equal(other TaskIdentifier) bool {
	return t.HashString() == other.HashString()
}

func (t TaskIdentifier) String() string {
	if t.Context == "" {
		return t.HashString()
	}
	return t.Context
}
