package kv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/benz9527/xsymtab/lib/infra"
	"github.com/benz9527/xsymtab/lib/tree"
)

var _ SortedMap[int, struct{}] = (*sortedMap[int, struct{}])(nil)

type sortedMap[K any, V any] struct {
	tree tree.LLRBTree[K, V]
}

func (m *sortedMap[K, V]) Len() int64 {
	return m.tree.Len()
}

func (m *sortedMap[K, V]) Contains(key K) bool {
	return m.tree.Contains(key)
}

func (m *sortedMap[K, V]) Get(key K) (V, error) {
	return m.tree.Search(key)
}

func (m *sortedMap[K, V]) GetOrDefault(key K, defaultVal V) (V, error) {
	val, err := m.tree.Search(key)
	if errors.Is(err, tree.ErrKeyNotFound) {
		return defaultVal, nil
	}
	return val, err
}

func (m *sortedMap[K, V]) Set(key K, val V) error {
	return m.tree.Insert(key, val)
}

func (m *sortedMap[K, V]) SetIfAbsent(key K, val V) error {
	return m.tree.Insert(key, val, true)
}

func (m *sortedMap[K, V]) Delete(key K) (V, error) {
	return m.tree.Remove(key)
}

func (m *sortedMap[K, V]) PopMin() (Pair[K, V], error) {
	key, val, err := m.tree.RemoveMin()
	if err != nil {
		return Pair[K, V]{}, err
	}
	return NewPair(key, val), nil
}

func (m *sortedMap[K, V]) PopItem() (Pair[K, V], error) {
	return m.PopMin()
}

func (m *sortedMap[K, V]) PopMax() (Pair[K, V], error) {
	key, val, err := m.tree.RemoveMax()
	if err != nil {
		return Pair[K, V]{}, err
	}
	return NewPair(key, val), nil
}

// Update stops at the first failed pair, the former pairs are kept.
func (m *sortedMap[K, V]) Update(pairs ...Pair[K, V]) error {
	for i, p := range pairs {
		if err := m.tree.Insert(p.Key, p.Val); err != nil {
			return infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[kv] update pair %d", i))
		}
	}
	return nil
}

func (m *sortedMap[K, V]) Clear() {
	m.tree.Clear()
}

func (m *sortedMap[K, V]) Min() (K, error) {
	return m.tree.Min()
}

func (m *sortedMap[K, V]) Max() (K, error) {
	return m.tree.Max()
}

func (m *sortedMap[K, V]) Floor(key K) (K, error) {
	return m.tree.Floor(key)
}

func (m *sortedMap[K, V]) Ceiling(key K) (K, error) {
	return m.tree.Ceiling(key)
}

func (m *sortedMap[K, V]) Rank(key K) (int64, error) {
	return m.tree.Rank(key)
}

func (m *sortedMap[K, V]) Select(idx int64) (K, error) {
	return m.tree.Select(idx)
}

func (m *sortedMap[K, V]) Index(key K, window ...int64) (int64, error) {
	return m.tree.Index(key, window...)
}

func (m *sortedMap[K, V]) Width(lo, hi K) (int64, error) {
	return m.tree.Width(lo, hi)
}

func (m *sortedMap[K, V]) Items(opts ...tree.IteratorOpt[K]) ([]Pair[K, V], error) {
	iter, err := m.tree.Iterator(opts...)
	if err != nil {
		return nil, err
	}
	items := make([]Pair[K, V], 0, 16)
	for iter.HasNext() {
		key, val := iter.Next()
		items = append(items, NewPair(key, val))
	}
	return items, nil
}

func (m *sortedMap[K, V]) Keys(opts ...tree.IteratorOpt[K]) ([]K, error) {
	items, err := m.Items(opts...)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p Pair[K, V], _ int) K {
		return p.Key
	}), nil
}

func (m *sortedMap[K, V]) Values(opts ...tree.IteratorOpt[K]) ([]V, error) {
	items, err := m.Items(opts...)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p Pair[K, V], _ int) V {
		return p.Val
	}), nil
}

func (m *sortedMap[K, V]) Iterator(opts ...tree.IteratorOpt[K]) (tree.Iterator[K, V], error) {
	return m.tree.Iterator(opts...)
}

func (m *sortedMap[K, V]) Foreach(action func(idx int64, key K, val V) bool) {
	if action == nil {
		return
	}
	m.tree.Foreach(func(idx int64, _ tree.RBColor, key K, val V) bool {
		return action(idx, key, val)
	})
}

func (m *sortedMap[K, V]) Validate() error {
	return m.tree.Validate()
}

// String formats as SortedMap({k1: v1, k2: v2}).
func (m *sortedMap[K, V]) String() string {
	builder := &strings.Builder{}
	builder.WriteString("SortedMap({")
	m.tree.Foreach(func(idx int64, _ tree.RBColor, key K, val V) bool {
		if idx > 0 {
			builder.WriteString(", ")
		}
		_, _ = fmt.Fprintf(builder, "%v: %v", key, val)
		return true
	})
	builder.WriteString("})")
	return builder.String()
}

// UpdateFromMap loads a builtin map, the order of the source map does
// not matter since its keys are distinct.
func UpdateFromMap[K comparable, V any](m SortedMap[K, V], src map[K]V) error {
	if len(src) <= 0 {
		return nil
	}
	return m.Update(lo.Map(lo.Entries(src), func(e lo.Entry[K, V], _ int) Pair[K, V] {
		return NewPair(e.Key, e.Value)
	})...)
}

func NewSortedMap[K infra.OrderedKey, V any](opts ...SortedOpt) SortedMap[K, V] {
	return NewSortedMapFunc[K, V](infra.OrderedKeyCompare[K], opts...)
}

func NewSortedMapFunc[K any, V any](cmp infra.Comparator[K], opts ...SortedOpt) SortedMap[K, V] {
	return newSortedMap[K, V](cmp, opts...)
}

func newSortedMap[K any, V any](cmp infra.Comparator[K], opts ...SortedOpt) *sortedMap[K, V] {
	o := loadSortedOptions(opts...)
	treeOpts := make([]tree.LLRBTreeOpt[K, V], 0, 1)
	if o.desc {
		treeOpts = append(treeOpts, tree.WithLLRBTreeDesc[K, V]())
	}
	return &sortedMap[K, V]{
		tree: tree.NewLLRBTreeFunc[K, V](cmp, treeOpts...),
	}
}

func NewSortedMapFrom[K infra.OrderedKey, V any](src map[K]V, opts ...SortedOpt) (SortedMap[K, V], error) {
	m := NewSortedMap[K, V](opts...)
	if err := UpdateFromMap[K, V](m, src); err != nil {
		return nil, err
	}
	return m, nil
}

func NewSortedMapFromPairs[K infra.OrderedKey, V any](pairs []Pair[K, V], opts ...SortedOpt) (SortedMap[K, V], error) {
	m := NewSortedMap[K, V](opts...)
	if err := m.Update(pairs...); err != nil {
		return nil, err
	}
	return m, nil
}
