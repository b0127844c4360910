package kv

import (
	"errors"
	"io"

	"github.com/benz9527/xsymtab/lib/tree"
)

var ErrMalformedPair = errors.New("[kv] malformed key value pair")

type Pair[K any, V any] struct {
	Key K
	Val V
}

func NewPair[K any, V any](key K, val V) Pair[K, V] {
	return Pair[K, V]{Key: key, Val: val}
}

// SortedMap is a mapping view over an LLRB tree. Keys are kept in the
// order of the comparator. It is not safe for concurrent use, see
// NewThreadSafeSortedMap.
type SortedMap[K any, V any] interface {
	Len() int64
	Contains(key K) bool
	// Get is strict, an absent key is reported by tree.ErrKeyNotFound.
	Get(key K) (V, error)
	// GetOrDefault maps an absent key to defaultVal. Other failures, like
	// an unorderable key, are still reported.
	GetOrDefault(key K, defaultVal V) (V, error)
	Set(key K, val V) error
	SetIfAbsent(key K, val V) error
	Delete(key K) (V, error)
	PopMin() (Pair[K, V], error)
	// PopItem is an alias of PopMin.
	PopItem() (Pair[K, V], error)
	PopMax() (Pair[K, V], error)
	// Update sets the pairs in order, a later duplicate key overrides
	// the earlier one.
	Update(pairs ...Pair[K, V]) error
	Clear()

	Min() (K, error)
	Max() (K, error)
	Floor(key K) (K, error)
	Ceiling(key K) (K, error)
	Rank(key K) (int64, error)
	Select(idx int64) (K, error)
	Index(key K, window ...int64) (int64, error)
	Width(lo, hi K) (int64, error)

	Keys(opts ...tree.IteratorOpt[K]) ([]K, error)
	Values(opts ...tree.IteratorOpt[K]) ([]V, error)
	Items(opts ...tree.IteratorOpt[K]) ([]Pair[K, V], error)
	Iterator(opts ...tree.IteratorOpt[K]) (tree.Iterator[K, V], error)
	Foreach(action func(idx int64, key K, val V) bool)

	Validate() error
	String() string
}

// SortedSet is a set view over an LLRB tree.
type SortedSet[E any] interface {
	Len() int64
	Contains(elem E) bool
	// Add replaces an equal older element.
	Add(elem E) error
	// Discard is silent on an absent element.
	Discard(elem E) error
	// Remove is strict, an absent element is reported by tree.ErrKeyNotFound.
	Remove(elem E) error
	PopMin() (E, error)
	// Pop is an alias of PopMin.
	Pop() (E, error)
	PopMax() (E, error)
	Union(elems ...E) error
	UnionWith(other SortedSet[E]) error
	Clear()

	Min() (E, error)
	Max() (E, error)
	Floor(elem E) (E, error)
	Ceiling(elem E) (E, error)
	Rank(elem E) (int64, error)
	Select(idx int64) (E, error)
	Index(elem E, window ...int64) (int64, error)
	Width(lo, hi E) (int64, error)

	Elements(opts ...tree.IteratorOpt[E]) ([]E, error)
	Iterator(opts ...tree.IteratorOpt[E]) (tree.Iterator[E, E], error)
	Foreach(action func(idx int64, elem E) bool)

	Validate() error
	String() string
}

// ThreadSafeSortedMap serializes every operation by a RWMutex per instance.
type ThreadSafeSortedMap[K any, V any] interface {
	SortedMap[K, V]
	// Purge closes the io.Closer values and clears the map.
	Purge() error
}

type ThreadSafeSortedSet[E any] interface {
	SortedSet[E]
}

type Closable interface {
	io.Closer
}

type sortedOptions struct {
	desc bool
}

type SortedOpt func(*sortedOptions)

// WithSortedDesc reverses the comparator order.
func WithSortedDesc() SortedOpt {
	return func(o *sortedOptions) {
		o.desc = true
	}
}

func loadSortedOptions(opts ...SortedOpt) *sortedOptions {
	o := &sortedOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
