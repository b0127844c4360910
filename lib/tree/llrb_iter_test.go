package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect[K any, V any](t *testing.T, tree LLRBTree[K, V], opts ...IteratorOpt[K]) []K {
	iter, err := tree.Iterator(opts...)
	require.NoError(t, err)
	res := make([]K, 0, 8)
	for iter.HasNext() {
		k, _ := iter.Next()
		res = append(res, k)
	}
	return res
}

func TestLLRBTree_Iterator(t *testing.T) {
	tree := NewLLRBTree[int, string]()
	for _, k := range []int{5, 3, 8, 1, 4, 7, 9, 2, 6, 0} {
		require.NoError(t, tree.Insert(k*10, ""))
	}

	testcases := []struct {
		name     string
		opts     []IteratorOpt[int]
		expected []int
	}{
		{
			name:     "all",
			expected: []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90},
		},
		{
			name:     "all reverse",
			opts:     []IteratorOpt[int]{WithIteratorReverse[int]()},
			expected: []int{90, 80, 70, 60, 50, 40, 30, 20, 10, 0},
		},
		{
			name:     "lower bound present",
			opts:     []IteratorOpt[int]{WithIteratorLowerBound(30)},
			expected: []int{30, 40, 50, 60, 70, 80, 90},
		},
		{
			name:     "lower bound absent",
			opts:     []IteratorOpt[int]{WithIteratorLowerBound(35)},
			expected: []int{40, 50, 60, 70, 80, 90},
		},
		{
			name:     "upper bound excluded",
			opts:     []IteratorOpt[int]{WithIteratorUpperBound(30)},
			expected: []int{0, 10, 20},
		},
		{
			name:     "window",
			opts:     []IteratorOpt[int]{WithIteratorLowerBound(15), WithIteratorUpperBound(65)},
			expected: []int{20, 30, 40, 50, 60},
		},
		{
			name: "window reverse",
			opts: []IteratorOpt[int]{
				WithIteratorLowerBound(20),
				WithIteratorUpperBound(70),
				WithIteratorReverse[int](),
			},
			expected: []int{60, 50, 40, 30, 20},
		},
		{
			name:     "empty window",
			opts:     []IteratorOpt[int]{WithIteratorLowerBound(60), WithIteratorUpperBound(20)},
			expected: []int{},
		},
		{
			name:     "out of keys",
			opts:     []IteratorOpt[int]{WithIteratorLowerBound(100)},
			expected: []int{},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			require.Equal(tt, tc.expected, collect[int, string](tt, tree, tc.opts...))
		})
	}
}

func TestLLRBTree_IteratorRestartable(t *testing.T) {
	tree := newShuffledTree(t, 300, 1)
	first := collect[int, int](t, tree)
	second := collect[int, int](t, tree)
	require.Equal(t, first, second)
	require.Len(t, first, 300)

	iter, err := tree.Iterator(WithIteratorLowerBound(299))
	require.NoError(t, err)
	require.True(t, iter.HasNext())
	k, v := iter.Next()
	require.Equal(t, 299, k)
	require.Equal(t, 299, v)
	require.False(t, iter.HasNext())
	require.Panics(t, func() {
		iter.Next()
	})
}

func TestLLRBTree_IteratorEmpty(t *testing.T) {
	tree := NewLLRBTree[string, int]()
	require.Empty(t, collect[string, int](t, tree))
	require.Empty(t, collect[string, int](t, tree, WithIteratorReverse[string]()))
	tree.Foreach(func(idx int64, color RBColor, key string, val int) bool {
		require.FailNow(t, "foreach on empty tree")
		return true
	})
}

func TestLLRBTree_ForeachStop(t *testing.T) {
	tree := newShuffledTree(t, 100, 1)
	visited := 0
	tree.Foreach(func(idx int64, color RBColor, key int, val int) bool {
		require.Equal(t, int(idx), key)
		visited++
		return idx < 9
	})
	require.Equal(t, 10, visited)
}
