package tree

import (
	"errors"
)

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

var (
	ErrKeyNotFound     = errors.New("[llrb] key not found")
	ErrKeyExists       = errors.New("[llrb] key exists, replace disabled")
	ErrEmptyTree       = errors.New("[llrb] empty tree")
	ErrIndexOutOfRange = errors.New("[llrb] index out of range")
	ErrUnorderableKey  = errors.New("[llrb] unorderable key")
)

// RBNode is the read-only view of a tree node.
type RBNode[K any, V any] interface {
	Key() K
	Val() V
	Color() RBColor
	// Size is the number of nodes in the subtree rooted here.
	Size() int64
	Left() RBNode[K, V]
	Right() RBNode[K, V]
}

// Iterator walks a bounded key window lazily.
// The tree must not be mutated until the iteration is done.
type Iterator[K any, V any] interface {
	HasNext() bool
	Next() (key K, val V)
}

// LLRBTree is a left-leaning red-black tree (2-3 version) ordered symbol table.
// It is not safe for concurrent use.
type LLRBTree[K any, V any] interface {
	Len() int64
	Height() int
	Root() RBNode[K, V]
	Compare(i, j K) int64

	Search(key K) (V, error)
	Contains(key K) bool
	// Insert adds the key or overwrites the value of an equal key.
	// With ifNotPresent, an existing key is reported by ErrKeyExists.
	Insert(key K, val V, ifNotPresent ...bool) error
	Remove(key K) (V, error)
	RemoveMin() (K, V, error)
	RemoveMax() (K, V, error)
	Clear()

	Min() (K, error)
	Max() (K, error)
	Floor(key K) (K, error)
	Ceiling(key K) (K, error)
	Rank(key K) (int64, error)
	Select(idx int64) (K, error)
	// Index is the rank of a present key, optionally restricted to the
	// window [window[0], window[1]).
	Index(key K, window ...int64) (int64, error)
	// Width counts the keys in [min(lo, hi), max(lo, hi)).
	Width(lo, hi K) (int64, error)

	Iterator(opts ...IteratorOpt[K]) (Iterator[K, V], error)
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)

	Validate() error
	String() string
}
