package tree

import (
	"fmt"
	"math"
	"math/bits"
	randv2 "math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xsymtab/lib/infra"
)

func TestNilNode(t *testing.T) {
	var nilNode RBNode[uint64, uint64] = nil
	require.True(t, nilNode == nil)

	var nilNode2 *llrbNode[uint64, uint64] = nil
	nilNode = nilNode2
	require.True(t, nilNode != nil)
	require.Nil(t, nilNode)
	require.Equal(t, int64(0), nilNode2.Size())
	require.False(t, nilNode2.isRed())
	require.Nil(t, nilNode2.Left())
	require.Nil(t, nilNode2.Right())
}

func requireLLRB[K any, V any](t *testing.T, tree LLRBTree[K, V]) {
	require.NoError(t, RedViolationValidate[K, V](tree))
	require.NoError(t, BlackViolationValidate[K, V](tree))
	require.NoError(t, SizeViolationValidate[K, V](tree))
	require.NoError(t, OrderViolationValidate[K, V](tree))
	require.NoError(t, tree.Validate())
}

func TestLLRBTreeRotateAndMoveRed(t *testing.T) {
	type checkData struct {
		color RBColor
		key   uint64
	}
	check := func(tree LLRBTree[uint64, uint64], expected []checkData) {
		require.Equal(t, int64(len(expected)), tree.Len())
		tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
			require.Equal(t, expected[idx].color, color)
			require.Equal(t, expected[idx].key, key)
			return true
		})
		requireLLRB[uint64, uint64](t, tree)
	}

	tree := NewLLRBTree[uint64, uint64]()

	require.NoError(t, tree.Insert(1, 1))
	check(tree, []checkData{{Black, 1}})

	// Right red link rotates left.
	require.NoError(t, tree.Insert(2, 1))
	check(tree, []checkData{{Red, 1}, {Black, 2}})

	// Temporary 4-node splits by color flip.
	require.NoError(t, tree.Insert(3, 1))
	check(tree, []checkData{{Black, 1}, {Black, 2}, {Black, 3}})

	require.NoError(t, tree.Insert(4, 1))
	check(tree, []checkData{{Black, 1}, {Black, 2}, {Red, 3}, {Black, 4}})
	require.Equal(t, "LLRBTree(2 (1 () ()) (4 (3 () ()) ()))", tree.String())

	// Borrow from the right sibling 3-node.
	val, err := tree.Remove(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), val)
	check(tree, []checkData{{Black, 2}, {Black, 3}, {Black, 4}})
	require.Equal(t, "LLRBTree(3 (2 () ()) (4 () ()))", tree.String())

	key, _, err := tree.RemoveMin()
	require.NoError(t, err)
	require.Equal(t, uint64(2), key)
	check(tree, []checkData{{Red, 3}, {Black, 4}})

	key, _, err = tree.RemoveMax()
	require.NoError(t, err)
	require.Equal(t, uint64(4), key)
	check(tree, []checkData{{Black, 3}})

	key, _, err = tree.RemoveMax()
	require.NoError(t, err)
	require.Equal(t, uint64(3), key)
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.Equal(t, "LLRBTree()", tree.String())
}

func TestLLRBTree_Scenarios(t *testing.T) {
	keys := func(tree LLRBTree[int, string]) []int {
		res := make([]int, 0, tree.Len())
		iter, err := tree.Iterator()
		require.NoError(t, err)
		for iter.HasNext() {
			k, _ := iter.Next()
			res = append(res, k)
		}
		return res
	}
	expected := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	t.Run("ascending insert", func(tt *testing.T) {
		tree := NewLLRBTree[int, string]()
		for i := 0; i < 10; i++ {
			require.NoError(tt, tree.Insert(i, fmt.Sprint(i)))
		}
		require.Equal(tt, int64(10), tree.Len())
		require.Equal(tt, expected, keys(tree))
		k, err := tree.Select(3)
		require.NoError(tt, err)
		require.Equal(tt, 3, k)
		r, err := tree.Rank(7)
		require.NoError(tt, err)
		require.Equal(tt, int64(7), r)
		requireLLRB[int, string](tt, tree)
	})

	t.Run("mixed insert then delete", func(tt *testing.T) {
		tree := NewLLRBTree[int, string]()
		for _, i := range []int{5, 3, 8, 1, 4, 7, 9, 2, 6, 0} {
			require.NoError(tt, tree.Insert(i, fmt.Sprint(i)))
		}
		require.Equal(tt, expected, keys(tree))
		requireLLRB[int, string](tt, tree)

		val, err := tree.Remove(5)
		require.NoError(tt, err)
		require.Equal(tt, "5", val)
		require.False(tt, tree.Contains(5))
		require.Equal(tt, int64(9), tree.Len())
		require.Equal(tt, []int{0, 1, 2, 3, 4, 6, 7, 8, 9}, keys(tree))
		requireLLRB[int, string](tt, tree)

		_, err = tree.Remove(5)
		require.ErrorIs(tt, err, ErrKeyNotFound)
		require.Equal(tt, int64(9), tree.Len())
	})

	t.Run("empty tree", func(tt *testing.T) {
		tree := NewLLRBTree[int, string]()
		_, err := tree.Min()
		require.ErrorIs(tt, err, ErrEmptyTree)
		_, err = tree.Max()
		require.ErrorIs(tt, err, ErrEmptyTree)
		_, _, err = tree.RemoveMin()
		require.ErrorIs(tt, err, ErrEmptyTree)
		_, _, err = tree.RemoveMax()
		require.ErrorIs(tt, err, ErrEmptyTree)
		_, err = tree.Select(0)
		require.ErrorIs(tt, err, ErrIndexOutOfRange)
		_, err = tree.Floor(5)
		require.ErrorIs(tt, err, ErrKeyNotFound)
		_, err = tree.Ceiling(5)
		require.ErrorIs(tt, err, ErrKeyNotFound)
		_, err = tree.Search(5)
		require.ErrorIs(tt, err, ErrKeyNotFound)
		require.Equal(tt, 0, tree.Height())
		require.NoError(tt, tree.Validate())
	})

	t.Run("floor and ceiling", func(tt *testing.T) {
		tree := NewLLRBTree[int, string]()
		require.NoError(tt, tree.Insert(-1, "a"))
		require.NoError(tt, tree.Insert(5, "b"))
		require.NoError(tt, tree.Insert(10, "c"))
		k, err := tree.Floor(7)
		require.NoError(tt, err)
		require.Equal(tt, 5, k)
		k, err = tree.Ceiling(7)
		require.NoError(tt, err)
		require.Equal(tt, 10, k)
		k, err = tree.Floor(5)
		require.NoError(tt, err)
		require.Equal(tt, 5, k)
		_, err = tree.Floor(-5)
		require.ErrorIs(tt, err, ErrKeyNotFound)
		_, err = tree.Ceiling(20)
		require.ErrorIs(tt, err, ErrKeyNotFound)
	})

	t.Run("overwrite", func(tt *testing.T) {
		tree := NewLLRBTree[int, string]()
		require.NoError(tt, tree.Insert(5, "x"))
		require.NoError(tt, tree.Insert(5, "y"))
		require.Equal(tt, int64(1), tree.Len())
		val, err := tree.Search(5)
		require.NoError(tt, err)
		require.Equal(tt, "y", val)

		require.ErrorIs(tt, tree.Insert(5, "z", true), ErrKeyExists)
		val, err = tree.Search(5)
		require.NoError(tt, err)
		require.Equal(tt, "y", val)
		require.Equal(tt, int64(1), tree.Len())
	})
}

func TestLLRBTree_HeightBound(t *testing.T) {
	n := 2048
	bound := 2 * (bits.Len(uint(n)) - 1)
	testcases := []struct {
		name string
		keys []int
	}{
		{
			name: "ascending",
			keys: func() []int {
				arr := make([]int, n)
				for i := range arr {
					arr[i] = i
				}
				return arr
			}(),
		},
		{
			name: "descending",
			keys: func() []int {
				arr := make([]int, n)
				for i := range arr {
					arr[i] = n - i
				}
				return arr
			}(),
		},
		{
			name: "shuffled",
			keys: randv2.Perm(n),
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			tree := NewLLRBTree[int, struct{}]()
			for _, k := range tc.keys {
				require.NoError(tt, tree.Insert(k, struct{}{}))
			}
			require.Equal(tt, int64(n), tree.Len())
			require.LessOrEqual(tt, tree.Height(), bound)
			requireLLRB[int, struct{}](tt, tree)
		})
	}
}

func llrbRandomInsertAndRemoveRunCore(t *testing.T, total int, violationCheck bool) {
	tree := NewLLRBTree[int, int]()
	shadow := make(map[int]int, total)

	for i, k := range randv2.Perm(total) {
		k = k * 2
		require.NoError(t, tree.Insert(k, i))
		shadow[k] = i
		if violationCheck {
			requireLLRB[int, int](t, tree)
		}
	}
	require.Equal(t, int64(len(shadow)), tree.Len())

	for i := 0; i < total; i++ {
		k := randv2.IntN(total * 2)
		expected, ok := shadow[k]
		switch randv2.IntN(4) {
		case 0:
			require.NoError(t, tree.Insert(k, -i))
			shadow[k] = -i
		case 1:
			key, val, err := tree.RemoveMin()
			if len(shadow) == 0 {
				require.ErrorIs(t, err, ErrEmptyTree)
				break
			}
			require.NoError(t, err)
			require.Equal(t, shadow[key], val)
			delete(shadow, key)
		default:
			val, err := tree.Remove(k)
			if !ok {
				require.ErrorIs(t, err, ErrKeyNotFound)
				break
			}
			require.NoError(t, err)
			require.Equal(t, expected, val)
			delete(shadow, k)
			require.False(t, tree.Contains(k))
		}
		require.Equal(t, int64(len(shadow)), tree.Len())
		if violationCheck {
			requireLLRB[int, int](t, tree)
		}
	}

	survivors := make([]int, 0, len(shadow))
	for k := range shadow {
		survivors = append(survivors, k)
	}
	slices.Sort(survivors)
	tree.Foreach(func(idx int64, color RBColor, key int, val int) bool {
		require.Equal(t, survivors[idx], key)
		require.Equal(t, shadow[key], val)
		return true
	})
	requireLLRB[int, int](t, tree)

	for tree.Len() > 0 {
		_, _, err := tree.RemoveMax()
		require.NoError(t, err)
	}
	require.Nil(t, tree.Root())
}

func TestLLRBTreeRandomInsertAndRemove(t *testing.T) {
	testcases := []struct {
		name           string
		total          int
		violationCheck bool
	}{
		{
			name:  "no violation check 100000",
			total: 100000,
		},
		{
			name:           "violation check 1000",
			total:          1000,
			violationCheck: true,
		},
		{
			name:           "violation check 3000",
			total:          3000,
			violationCheck: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			llrbRandomInsertAndRemoveRunCore(tt, tc.total, tc.violationCheck)
		})
	}
}

func TestLLRBTree_RemoveMinMaxDrain(t *testing.T) {
	tree := NewLLRBTree[int, int]()
	for _, k := range randv2.Perm(500) {
		require.NoError(t, tree.Insert(k, k*k))
	}
	for i := 0; i < 250; i++ {
		k, v, err := tree.RemoveMin()
		require.NoError(t, err)
		require.Equal(t, i, k)
		require.Equal(t, i*i, v)
		k, v, err = tree.RemoveMax()
		require.NoError(t, err)
		require.Equal(t, 499-i, k)
		require.Equal(t, (499-i)*(499-i), v)
		requireLLRB[int, int](t, tree)
	}
	require.Equal(t, int64(0), tree.Len())
}

func TestLLRBTree_Desc(t *testing.T) {
	tree := NewLLRBTree[int64, string](WithLLRBTreeDesc[int64, string]())
	for i := int64(0); i < 100; i++ {
		require.NoError(t, tree.Insert(i, fmt.Sprint(i)))
	}
	tree.Foreach(func(idx int64, color RBColor, key int64, val string) bool {
		require.Equal(t, 99-idx, key)
		return true
	})
	k, err := tree.Min()
	require.NoError(t, err)
	require.Equal(t, int64(99), k)
	r, err := tree.Rank(90)
	require.NoError(t, err)
	require.Equal(t, int64(9), r)
	k, err = tree.Floor(1000)
	require.ErrorIs(t, err, ErrKeyNotFound)
	k, err = tree.Ceiling(1000)
	require.NoError(t, err)
	require.Equal(t, int64(99), k)
	requireLLRB[int64, string](t, tree)
}

func TestLLRBTree_UnorderableKey(t *testing.T) {
	t.Run("nan", func(tt *testing.T) {
		tree := NewLLRBTree[float64, int]()
		for i := 0; i < 16; i++ {
			require.NoError(tt, tree.Insert(float64(i)/2, i))
		}
		before := tree.String()
		nan := math.NaN()

		err := tree.Insert(nan, 0)
		require.ErrorIs(tt, err, ErrUnorderableKey)
		require.ErrorAs(tt, err, new(infra.ErrorStack))
		_, err = tree.Remove(nan)
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Search(nan)
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Floor(nan)
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Ceiling(nan)
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Rank(nan)
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Index(nan)
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Width(0, nan)
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Iterator(WithIteratorUpperBound(nan))
		require.ErrorIs(tt, err, ErrUnorderableKey)
		require.False(tt, tree.Contains(nan))

		require.Equal(tt, int64(16), tree.Len())
		require.Equal(tt, before, tree.String())
		requireLLRB[float64, int](tt, tree)
	})

	t.Run("mixed types", func(tt *testing.T) {
		// Numbers and strings are not ordered against each other.
		cmp := func(i, j any) int64 {
			switch x := i.(type) {
			case int:
				if y, ok := j.(int); ok {
					return infra.OrderedKeyCompare(x, y)
				}
			case string:
				if y, ok := j.(string); ok {
					return infra.OrderedKeyCompare(x, y)
				}
			}
			return infra.Incomparable
		}
		tree := NewLLRBTreeFunc[any, int](cmp)
		for i := 0; i < 32; i++ {
			require.NoError(tt, tree.Insert(i, i))
		}
		before := tree.String()

		require.ErrorIs(tt, tree.Insert("a", 1), ErrUnorderableKey)
		_, err := tree.Remove("a")
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Floor("a")
		require.ErrorIs(tt, err, ErrUnorderableKey)
		_, err = tree.Rank("a")
		require.ErrorIs(tt, err, ErrUnorderableKey)
		require.False(tt, tree.Contains("a"))

		require.Equal(tt, int64(32), tree.Len())
		require.Equal(tt, before, tree.String())
		requireLLRB[any, int](tt, tree)
	})
}

func TestLLRBTree_CustomComparator(t *testing.T) {
	type version struct {
		major, minor int
	}
	tree := NewLLRBTreeFunc[version, string](func(i, j version) int64 {
		if res := infra.OrderedKeyCompare(i.major, j.major); res != 0 {
			return res
		}
		return infra.OrderedKeyCompare(i.minor, j.minor)
	})
	for _, v := range []version{{1, 2}, {0, 9}, {1, 0}, {2, 0}, {1, 10}} {
		require.NoError(t, tree.Insert(v, fmt.Sprintf("v%d.%d", v.major, v.minor)))
	}
	k, err := tree.Select(2)
	require.NoError(t, err)
	require.Equal(t, version{1, 2}, k)
	k, err = tree.Floor(version{1, 5})
	require.NoError(t, err)
	require.Equal(t, version{1, 2}, k)
	require.Panics(t, func() {
		NewLLRBTreeFunc[version, string](nil)
	})
	requireLLRB[version, string](t, tree)
}

func TestLLRBTree_Clear(t *testing.T) {
	tree := NewLLRBTree[string, int]()
	for i := 0; i < 100; i++ {
		require.NoError(t, tree.Insert(fmt.Sprintf("k%03d", i), i))
	}
	tree.Clear()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.False(t, tree.Contains("k000"))
	require.NoError(t, tree.Insert("k000", 1))
	require.Equal(t, int64(1), tree.Len())
}

func BenchmarkLLRBTree_Random(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewLLRBTree[int, []byte]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		err := tree.Insert(rngArr[i], testByBytes)
		if err != nil {
			panic(err)
		}
	}
}

func BenchmarkLLRBTree_Serial(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewLLRBTree[int, []byte]()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Insert(i, testByBytes)
	}
}

func BenchmarkLLRBTree_RemoveMin(b *testing.B) {
	b.StopTimer()
	tree := NewLLRBTree[int, struct{}]()
	for i := 0; i < b.N; i++ {
		_ = tree.Insert(i, struct{}{})
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = tree.RemoveMin()
	}
}
