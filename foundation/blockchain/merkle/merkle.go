// Package merkle provides a merkle tree over the transactions of a block
// so a block can commit to its contents with a single root hash.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// Hashable represents the data that is stored and verified by the tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// ErrNoData is returned when a tree is built without any values.
var ErrNoData = errors.New("can't construct tree with no data")

// =============================================================================

// Tree holds every level of the tree from the leaves up to the root. An
// odd level is padded by repeating its last hash.
type Tree[T Hashable[T]] struct {
	values       []T
	levels       [][][]byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy allows configuration of a different
// hash strategy than the default SHA-256.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a tree over the values in the order provided.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate replaces the content of the tree and rebuilds every level.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return ErrNoData
	}

	leaves := make([][]byte, len(values))
	for i, v := range values {
		h, err := v.Hash()
		if err != nil {
			return err
		}
		leaves[i] = h
	}

	levels := [][][]byte{leaves}
	for level := leaves; len(level) > 1; {
		next, err := t.combine(level)
		if err != nil {
			return err
		}
		levels = append(levels, next)
		level = next
	}

	// A single value still gets paired with itself so the root is
	// never the raw leaf hash.
	if len(leaves) == 1 {
		root, err := t.pair(leaves[0], leaves[0])
		if err != nil {
			return err
		}
		levels = append(levels, [][]byte{root})
	}

	t.values = append([]T(nil), values...)
	t.levels = levels

	return nil
}

// Root returns the merkle root.
func (t *Tree[T]) Root() []byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// RootHex returns the merkle root as a hex string.
func (t *Tree[T]) RootHex() string {
	return hex.EncodeToString(t.Root())
}

// Values returns a copy of the values the tree was built with.
func (t *Tree[T]) Values() []T {
	return append([]T(nil), t.values...)
}

// Proof returns the sibling hashes needed to walk from the value up to the
// root, and for each step whether the sibling sits on the right (1) or the
// left (0).
func (t *Tree[T]) Proof(value T) ([][]byte, []int64, error) {
	idx := t.indexOf(value)
	if idx < 0 {
		return nil, nil, fmt.Errorf("value not found in tree")
	}

	var path [][]byte
	var order []int64
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling >= len(level) {
			sibling = idx
		}

		path = append(path, level[sibling])
		if sibling >= idx {
			order = append(order, 1)
		} else {
			order = append(order, 0)
		}

		idx /= 2
	}

	return path, order, nil
}

// VerifyTree recomputes every level from the values and reports whether
// the result matches the stored root.
func (t *Tree[T]) VerifyTree() (bool, error) {
	fresh := Tree[T]{hashStrategy: t.hashStrategy}
	if err := fresh.Generate(t.values); err != nil {
		return false, err
	}

	return bytes.Equal(fresh.Root(), t.Root()), nil
}

// VerifyData reports whether the value is in the tree and its proof
// still resolves to the stored root.
func (t *Tree[T]) VerifyData(value T) (bool, error) {
	if t.indexOf(value) < 0 {
		return false, nil
	}

	h, err := value.Hash()
	if err != nil {
		return false, err
	}

	path, order, err := t.Proof(value)
	if err != nil {
		return false, err
	}

	for i, sibling := range path {
		if order[i] == 1 {
			h, err = t.pair(h, sibling)
		} else {
			h, err = t.pair(sibling, h)
		}
		if err != nil {
			return false, err
		}
	}

	return bytes.Equal(h, t.Root()), nil
}

// String returns the hashes of every level, leaves first.
func (t *Tree[T]) String() string {
	var b strings.Builder
	for i, level := range t.levels {
		fmt.Fprintf(&b, "level %d:", i)
		for _, h := range level {
			fmt.Fprintf(&b, " %x", h)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================

func (t *Tree[T]) indexOf(value T) int {
	for i, v := range t.values {
		if v.Equals(value) {
			return i
		}
	}
	return -1
}

func (t *Tree[T]) combine(level [][]byte) ([][]byte, error) {
	next := make([][]byte, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		right := i + 1
		if right == len(level) {
			right = i
		}

		h, err := t.pair(level[i], level[right])
		if err != nil {
			return nil, err
		}
		next = append(next, h)
	}
	return next, nil
}

func (t *Tree[T]) pair(left, right []byte) ([]byte, error) {
	h := t.hashStrategy()
	if _, err := h.Write(left); err != nil {
		return nil, err
	}
	if _, err := h.Write(right); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
