package kv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benz9527/xsymtab/lib/infra"
	"github.com/benz9527/xsymtab/lib/tree"
)

var _ SortedSet[int] = (*sortedSet[int])(nil)

// sortedSet stores the element as both key and value. The key keeps
// the position, the value is the latest added one of the equal elements.
type sortedSet[E any] struct {
	tree tree.LLRBTree[E, E]
}

func (s *sortedSet[E]) Len() int64 {
	return s.tree.Len()
}

func (s *sortedSet[E]) Contains(elem E) bool {
	return s.tree.Contains(elem)
}

func (s *sortedSet[E]) Add(elem E) error {
	return s.tree.Insert(elem, elem)
}

func (s *sortedSet[E]) Discard(elem E) error {
	if _, err := s.tree.Remove(elem); err != nil && !errors.Is(err, tree.ErrKeyNotFound) {
		return err
	}
	return nil
}

func (s *sortedSet[E]) Remove(elem E) error {
	_, err := s.tree.Remove(elem)
	return err
}

func (s *sortedSet[E]) PopMin() (E, error) {
	_, elem, err := s.tree.RemoveMin()
	return elem, err
}

func (s *sortedSet[E]) Pop() (E, error) {
	return s.PopMin()
}

func (s *sortedSet[E]) PopMax() (E, error) {
	_, elem, err := s.tree.RemoveMax()
	return elem, err
}

func (s *sortedSet[E]) Union(elems ...E) error {
	for i, elem := range elems {
		if err := s.tree.Insert(elem, elem); err != nil {
			return infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[kv] union element %d", i))
		}
	}
	return nil
}

func (s *sortedSet[E]) UnionWith(other SortedSet[E]) error {
	if other == nil {
		return nil
	}
	elems, err := other.Elements()
	if err != nil {
		return err
	}
	return s.Union(elems...)
}

func (s *sortedSet[E]) Clear() {
	s.tree.Clear()
}

// latest maps a located key to the stored element.
func (s *sortedSet[E]) latest(key E, err error) (E, error) {
	if err != nil {
		return key, err
	}
	return s.tree.Search(key)
}

func (s *sortedSet[E]) Min() (E, error) {
	return s.latest(s.tree.Min())
}

func (s *sortedSet[E]) Max() (E, error) {
	return s.latest(s.tree.Max())
}

func (s *sortedSet[E]) Floor(elem E) (E, error) {
	return s.latest(s.tree.Floor(elem))
}

func (s *sortedSet[E]) Ceiling(elem E) (E, error) {
	return s.latest(s.tree.Ceiling(elem))
}

func (s *sortedSet[E]) Rank(elem E) (int64, error) {
	return s.tree.Rank(elem)
}

func (s *sortedSet[E]) Select(idx int64) (E, error) {
	return s.latest(s.tree.Select(idx))
}

func (s *sortedSet[E]) Index(elem E, window ...int64) (int64, error) {
	return s.tree.Index(elem, window...)
}

func (s *sortedSet[E]) Width(lo, hi E) (int64, error) {
	return s.tree.Width(lo, hi)
}

func (s *sortedSet[E]) Elements(opts ...tree.IteratorOpt[E]) ([]E, error) {
	iter, err := s.tree.Iterator(opts...)
	if err != nil {
		return nil, err
	}
	elems := make([]E, 0, 16)
	for iter.HasNext() {
		_, elem := iter.Next()
		elems = append(elems, elem)
	}
	return elems, nil
}

func (s *sortedSet[E]) Iterator(opts ...tree.IteratorOpt[E]) (tree.Iterator[E, E], error) {
	return s.tree.Iterator(opts...)
}

func (s *sortedSet[E]) Foreach(action func(idx int64, elem E) bool) {
	if action == nil {
		return
	}
	s.tree.Foreach(func(idx int64, _ tree.RBColor, _ E, elem E) bool {
		return action(idx, elem)
	})
}

func (s *sortedSet[E]) Validate() error {
	return s.tree.Validate()
}

// String formats as SortedSet({e1, e2}).
func (s *sortedSet[E]) String() string {
	builder := &strings.Builder{}
	builder.WriteString("SortedSet({")
	s.tree.Foreach(func(idx int64, _ tree.RBColor, _ E, elem E) bool {
		if idx > 0 {
			builder.WriteString(", ")
		}
		_, _ = fmt.Fprintf(builder, "%v", elem)
		return true
	})
	builder.WriteString("})")
	return builder.String()
}

func NewSortedSet[E infra.OrderedKey](opts ...SortedOpt) SortedSet[E] {
	return NewSortedSetFunc[E](infra.OrderedKeyCompare[E], opts...)
}

func NewSortedSetFunc[E any](cmp infra.Comparator[E], opts ...SortedOpt) SortedSet[E] {
	return newSortedSet[E](cmp, opts...)
}

func newSortedSet[E any](cmp infra.Comparator[E], opts ...SortedOpt) *sortedSet[E] {
	o := loadSortedOptions(opts...)
	treeOpts := make([]tree.LLRBTreeOpt[E, E], 0, 1)
	if o.desc {
		treeOpts = append(treeOpts, tree.WithLLRBTreeDesc[E, E]())
	}
	return &sortedSet[E]{
		tree: tree.NewLLRBTreeFunc[E, E](cmp, treeOpts...),
	}
}

func NewSortedSetFrom[E infra.OrderedKey](elems []E, opts ...SortedOpt) (SortedSet[E], error) {
	s := NewSortedSet[E](opts...)
	if err := s.Union(elems...); err != nil {
		return nil, err
	}
	return s, nil
}
