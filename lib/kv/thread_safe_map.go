package kv

import (
	"io"
	"reflect"
	"sync"

	"go.uber.org/multierr"

	"github.com/benz9527/xsymtab/lib/infra"
	"github.com/benz9527/xsymtab/lib/tree"
)

var (
	_ ThreadSafeSortedMap[int, struct{}] = (*threadSafeSortedMap[int, struct{}])(nil)
	_ ThreadSafeSortedSet[int]           = (*threadSafeSortedSet[int])(nil)
)

type threadSafeSortedMap[K any, V any] struct {
	lock           sync.RWMutex
	m              *sortedMap[K, V]
	isClosableItem bool
}

func (t *threadSafeSortedMap[K, V]) Len() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Len()
}

func (t *threadSafeSortedMap[K, V]) Contains(key K) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Contains(key)
}

func (t *threadSafeSortedMap[K, V]) Get(key K) (V, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Get(key)
}

func (t *threadSafeSortedMap[K, V]) GetOrDefault(key K, defaultVal V) (V, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.GetOrDefault(key, defaultVal)
}

func (t *threadSafeSortedMap[K, V]) Set(key K, val V) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.Set(key, val)
}

func (t *threadSafeSortedMap[K, V]) SetIfAbsent(key K, val V) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.SetIfAbsent(key, val)
}

func (t *threadSafeSortedMap[K, V]) Delete(key K) (V, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.Delete(key)
}

func (t *threadSafeSortedMap[K, V]) PopMin() (Pair[K, V], error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.PopMin()
}

func (t *threadSafeSortedMap[K, V]) PopItem() (Pair[K, V], error) {
	return t.PopMin()
}

func (t *threadSafeSortedMap[K, V]) PopMax() (Pair[K, V], error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.PopMax()
}

func (t *threadSafeSortedMap[K, V]) Update(pairs ...Pair[K, V]) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.m.Update(pairs...)
}

func (t *threadSafeSortedMap[K, V]) Clear() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.m.Clear()
}

func (t *threadSafeSortedMap[K, V]) Min() (K, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Min()
}

func (t *threadSafeSortedMap[K, V]) Max() (K, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Max()
}

func (t *threadSafeSortedMap[K, V]) Floor(key K) (K, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Floor(key)
}

func (t *threadSafeSortedMap[K, V]) Ceiling(key K) (K, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Ceiling(key)
}

func (t *threadSafeSortedMap[K, V]) Rank(key K) (int64, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Rank(key)
}

func (t *threadSafeSortedMap[K, V]) Select(idx int64) (K, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Select(idx)
}

func (t *threadSafeSortedMap[K, V]) Index(key K, window ...int64) (int64, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Index(key, window...)
}

func (t *threadSafeSortedMap[K, V]) Width(lo, hi K) (int64, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Width(lo, hi)
}

func (t *threadSafeSortedMap[K, V]) Keys(opts ...tree.IteratorOpt[K]) ([]K, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Keys(opts...)
}

func (t *threadSafeSortedMap[K, V]) Values(opts ...tree.IteratorOpt[K]) ([]V, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Values(opts...)
}

func (t *threadSafeSortedMap[K, V]) Items(opts ...tree.IteratorOpt[K]) ([]Pair[K, V], error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Items(opts...)
}

// Iterator walks a snapshot of the items, it holds no lock.
func (t *threadSafeSortedMap[K, V]) Iterator(opts ...tree.IteratorOpt[K]) (tree.Iterator[K, V], error) {
	items, err := t.Items(opts...)
	if err != nil {
		return nil, err
	}
	return &snapshotIterator[K, V]{items: items}, nil
}

// Foreach runs the action on a snapshot, the action is free to
// access the map.
func (t *threadSafeSortedMap[K, V]) Foreach(action func(idx int64, key K, val V) bool) {
	if action == nil {
		return
	}
	items, _ := t.Items()
	for i, item := range items {
		if !action(int64(i), item.Key, item.Val) {
			return
		}
	}
}

func (t *threadSafeSortedMap[K, V]) Validate() error {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.Validate()
}

func (t *threadSafeSortedMap[K, V]) String() string {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.m.String()
}

func (t *threadSafeSortedMap[K, V]) Purge() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	var merr error
	if t.isClosableItem {
		t.m.Foreach(func(idx int64, key K, val V) bool {
			c, ok := any(val).(Closable)
			if !ok {
				return true
			}
			if rv := reflect.ValueOf(c); rv.Kind() == reflect.Pointer && rv.IsNil() {
				return true
			}
			merr = multierr.Append(merr, c.Close())
			return true
		})
	}
	t.m.Clear()
	return infra.WrapErrorStack(merr)
}

func isClosable[V any]() bool {
	typ := reflect.TypeOf((*V)(nil)).Elem()
	return typ.Implements(reflect.TypeOf((*io.Closer)(nil)).Elem())
}

func NewThreadSafeSortedMap[K infra.OrderedKey, V any](opts ...SortedOpt) ThreadSafeSortedMap[K, V] {
	return NewThreadSafeSortedMapFunc[K, V](infra.OrderedKeyCompare[K], opts...)
}

func NewThreadSafeSortedMapFunc[K any, V any](cmp infra.Comparator[K], opts ...SortedOpt) ThreadSafeSortedMap[K, V] {
	return &threadSafeSortedMap[K, V]{
		m:              newSortedMap[K, V](cmp, opts...),
		isClosableItem: isClosable[V](),
	}
}

type snapshotIterator[K any, V any] struct {
	items []Pair[K, V]
	idx   int
}

func (iter *snapshotIterator[K, V]) HasNext() bool {
	return iter.idx < len(iter.items)
}

func (iter *snapshotIterator[K, V]) Next() (K, V) {
	if !iter.HasNext() {
		panic("[kv] iterator exhausted")
	}
	item := iter.items[iter.idx]
	iter.idx++
	return item.Key, item.Val
}

type threadSafeSortedSet[E any] struct {
	lock sync.RWMutex
	s    *sortedSet[E]
}

func (t *threadSafeSortedSet[E]) Len() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Len()
}

func (t *threadSafeSortedSet[E]) Contains(elem E) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Contains(elem)
}

func (t *threadSafeSortedSet[E]) Add(elem E) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.s.Add(elem)
}

func (t *threadSafeSortedSet[E]) Discard(elem E) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.s.Discard(elem)
}

func (t *threadSafeSortedSet[E]) Remove(elem E) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.s.Remove(elem)
}

func (t *threadSafeSortedSet[E]) PopMin() (E, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.s.PopMin()
}

func (t *threadSafeSortedSet[E]) Pop() (E, error) {
	return t.PopMin()
}

func (t *threadSafeSortedSet[E]) PopMax() (E, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.s.PopMax()
}

func (t *threadSafeSortedSet[E]) Union(elems ...E) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.s.Union(elems...)
}

// UnionWith takes the other elements before locking, the other set
// may be this one.
func (t *threadSafeSortedSet[E]) UnionWith(other SortedSet[E]) error {
	if other == nil {
		return nil
	}
	elems, err := other.Elements()
	if err != nil {
		return err
	}
	return t.Union(elems...)
}

func (t *threadSafeSortedSet[E]) Clear() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.s.Clear()
}

func (t *threadSafeSortedSet[E]) Min() (E, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Min()
}

func (t *threadSafeSortedSet[E]) Max() (E, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Max()
}

func (t *threadSafeSortedSet[E]) Floor(elem E) (E, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Floor(elem)
}

func (t *threadSafeSortedSet[E]) Ceiling(elem E) (E, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Ceiling(elem)
}

func (t *threadSafeSortedSet[E]) Rank(elem E) (int64, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Rank(elem)
}

func (t *threadSafeSortedSet[E]) Select(idx int64) (E, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Select(idx)
}

func (t *threadSafeSortedSet[E]) Index(elem E, window ...int64) (int64, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Index(elem, window...)
}

func (t *threadSafeSortedSet[E]) Width(lo, hi E) (int64, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Width(lo, hi)
}

func (t *threadSafeSortedSet[E]) Elements(opts ...tree.IteratorOpt[E]) ([]E, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Elements(opts...)
}

func (t *threadSafeSortedSet[E]) Iterator(opts ...tree.IteratorOpt[E]) (tree.Iterator[E, E], error) {
	elems, err := t.Elements(opts...)
	if err != nil {
		return nil, err
	}
	items := make([]Pair[E, E], 0, len(elems))
	for _, elem := range elems {
		items = append(items, NewPair(elem, elem))
	}
	return &snapshotIterator[E, E]{items: items}, nil
}

func (t *threadSafeSortedSet[E]) Foreach(action func(idx int64, elem E) bool) {
	if action == nil {
		return
	}
	elems, _ := t.Elements()
	for i, elem := range elems {
		if !action(int64(i), elem) {
			return
		}
	}
}

func (t *threadSafeSortedSet[E]) Validate() error {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.Validate()
}

func (t *threadSafeSortedSet[E]) String() string {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.s.String()
}

func NewThreadSafeSortedSet[E infra.OrderedKey](opts ...SortedOpt) ThreadSafeSortedSet[E] {
	return NewThreadSafeSortedSetFunc[E](infra.OrderedKeyCompare[E], opts...)
}

func NewThreadSafeSortedSetFunc[E any](cmp infra.Comparator[E], opts ...SortedOpt) ThreadSafeSortedSet[E] {
	return &threadSafeSortedSet[E]{
		s: newSortedSet[E](cmp, opts...),
	}
}
