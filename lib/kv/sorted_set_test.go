package kv

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xsymtab/lib/infra"
	"github.com/benz9527/xsymtab/lib/tree"
)

func TestSortedSet_SimpleCRUD(t *testing.T) {
	s, err := NewSortedSetFrom([]int{5, 3, 8, 1, 4, 7, 9, 2, 6, 0, 3})
	require.NoError(t, err)
	require.Equal(t, int64(10), s.Len())
	require.Equal(t, "SortedSet({0, 1, 2, 3, 4, 5, 6, 7, 8, 9})", s.String())

	require.NoError(t, s.Remove(5))
	require.False(t, s.Contains(5))
	require.ErrorIs(t, s.Remove(5), tree.ErrKeyNotFound)
	require.NoError(t, s.Discard(5))
	require.NoError(t, s.Discard(4))
	require.Equal(t, int64(8), s.Len())

	e, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, 0, e)
	e, err = s.PopMax()
	require.NoError(t, err)
	require.Equal(t, 9, e)

	elems, err := s.Elements()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 6, 7, 8}, elems)
	elems, err = s.Elements(tree.WithIteratorLowerBound(3), tree.WithIteratorReverse[int]())
	require.NoError(t, err)
	require.Equal(t, []int{8, 7, 6, 3}, elems)

	s.Clear()
	_, err = s.PopMin()
	require.ErrorIs(t, err, tree.ErrEmptyTree)
	require.NoError(t, s.Validate())
}

func TestSortedSet_Union(t *testing.T) {
	s1 := NewSortedSet[string]()
	require.NoError(t, s1.Union("b", "d", "f"))
	s2 := NewSortedSet[string]()
	require.NoError(t, s2.Union("a", "b", "c"))

	require.NoError(t, s1.UnionWith(s2))
	elems, err := s1.Elements()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d", "f"}, elems)
	require.Equal(t, int64(3), s2.Len())

	require.NoError(t, s1.UnionWith(s1))
	require.Equal(t, int64(5), s1.Len())
	require.NoError(t, s1.UnionWith(nil))

	err = NewSortedSet[float64]().Union(1, math.NaN())
	require.ErrorIs(t, err, tree.ErrUnorderableKey)
	require.Contains(t, err.Error(), "union element 1")
}

func TestSortedSet_AddReplacesEqualElement(t *testing.T) {
	type user struct {
		id   int
		name string
	}
	s := NewSortedSetFunc[user](func(i, j user) int64 {
		return infra.OrderedKeyCompare(i.id, j.id)
	})
	require.NoError(t, s.Add(user{id: 2, name: "old"}))
	require.NoError(t, s.Add(user{id: 1, name: "first"}))
	require.NoError(t, s.Add(user{id: 2, name: "new"}))
	require.Equal(t, int64(2), s.Len())

	u, err := s.Max()
	require.NoError(t, err)
	require.Equal(t, "new", u.name)
	u, err = s.Select(1)
	require.NoError(t, err)
	require.Equal(t, "new", u.name)
	u, err = s.Floor(user{id: 3})
	require.NoError(t, err)
	require.Equal(t, "new", u.name)
	u, err = s.Ceiling(user{id: 0})
	require.NoError(t, err)
	require.Equal(t, "first", u.name)
	u, err = s.PopMax()
	require.NoError(t, err)
	require.Equal(t, "new", u.name)
}

func TestSortedSet_OrderStatistics(t *testing.T) {
	s := NewSortedSet[int](WithSortedDesc())
	require.NoError(t, s.Union(10, 20, 30, 40, 50))
	k, err := s.Min()
	require.NoError(t, err)
	require.Equal(t, 50, k)
	r, err := s.Rank(25)
	require.NoError(t, err)
	require.Equal(t, int64(3), r)
	idx, err := s.Index(20, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), idx)
	w, err := s.Width(45, 15)
	require.NoError(t, err)
	require.Equal(t, int64(3), w)

	builder := &strings.Builder{}
	s.Foreach(func(idx int64, elem int) bool {
		builder.WriteString(strings.Repeat("*", int(idx)))
		return true
	})
	require.Equal(t, 10, builder.Len())

	iter, err := s.Iterator(tree.WithIteratorUpperBound(30))
	require.NoError(t, err)
	require.True(t, iter.HasNext())
	key, elem := iter.Next()
	require.Equal(t, 50, key)
	require.Equal(t, 50, elem)
}
