package tree

import (
	"github.com/benz9527/xsymtab/lib/infra"
)

func (tree *llrbTree[K, V]) Min() (K, error) {
	if tree.root == nil {
		var key K
		return key, ErrEmptyTree
	}
	return tree.root.minimum().key, nil
}

func (tree *llrbTree[K, V]) Max() (K, error) {
	if tree.root == nil {
		var key K
		return key, ErrEmptyTree
	}
	return tree.root.maximum().key, nil
}

// Floor is the largest key less than or equal to key.
func (tree *llrbTree[K, V]) Floor(key K) (K, error) {
	var _key K
	if err := tree.checkOrderable(key); err != nil {
		return _key, err
	}
	var candidate *llrbNode[K, V]
	for aux := tree.root; aux != nil; {
		res := tree.cmp(key, aux.key)
		if res == infra.Incomparable {
			return _key, tree.unorderable(key)
		} else if res == 0 {
			return aux.key, nil
		} else if res < 0 {
			aux = aux.left
		} else {
			// The floor is aux or a larger key in the right subtree.
			candidate, aux = aux, aux.right
		}
	}
	if candidate == nil {
		return _key, ErrKeyNotFound
	}
	return candidate.key, nil
}

// Ceiling is the smallest key greater than or equal to key.
func (tree *llrbTree[K, V]) Ceiling(key K) (K, error) {
	var _key K
	if err := tree.checkOrderable(key); err != nil {
		return _key, err
	}
	var candidate *llrbNode[K, V]
	for aux := tree.root; aux != nil; {
		res := tree.cmp(key, aux.key)
		if res == infra.Incomparable {
			return _key, tree.unorderable(key)
		} else if res == 0 {
			return aux.key, nil
		} else if res > 0 {
			aux = aux.right
		} else {
			candidate, aux = aux, aux.left
		}
	}
	if candidate == nil {
		return _key, ErrKeyNotFound
	}
	return candidate.key, nil
}

// Rank counts the keys strictly less than key. The key is not
// required to be present.
func (tree *llrbTree[K, V]) Rank(key K) (int64, error) {
	if err := tree.checkOrderable(key); err != nil {
		return 0, err
	}
	rank := int64(0)
	for aux := tree.root; aux != nil; {
		res := tree.cmp(key, aux.key)
		if res == infra.Incomparable {
			return 0, tree.unorderable(key)
		} else if res == 0 {
			return rank + aux.left.Size(), nil
		} else if res < 0 {
			aux = aux.left
		} else {
			rank += 1 + aux.left.Size()
			aux = aux.right
		}
	}
	return rank, nil
}

// Select is the key of rank idx, the inverse of Rank.
func (tree *llrbTree[K, V]) Select(idx int64) (K, error) {
	if idx < 0 || idx >= tree.Len() {
		var key K
		return key, ErrIndexOutOfRange
	}
	aux := tree.root
	for {
		lsize := aux.left.Size()
		if idx < lsize {
			aux = aux.left
		} else if idx > lsize {
			idx -= lsize + 1
			aux = aux.right
		} else {
			return aux.key, nil
		}
	}
}

func (tree *llrbTree[K, V]) Index(key K, window ...int64) (int64, error) {
	x, err := tree.locate(key)
	if err != nil {
		return -1, err
	}
	if x == nil {
		return -1, ErrKeyNotFound
	}
	rank, err := tree.Rank(key)
	if err != nil {
		return -1, err
	}
	if /* start */ len(window) > 0 && rank < window[0] {
		return -1, ErrKeyNotFound
	}
	if /* stop */ len(window) > 1 && rank >= window[1] {
		return -1, ErrKeyNotFound
	}
	return rank, nil
}

func (tree *llrbTree[K, V]) Width(lo, hi K) (int64, error) {
	if err := tree.checkOrderable(lo); err != nil {
		return 0, err
	}
	if err := tree.checkOrderable(hi); err != nil {
		return 0, err
	}
	res := tree.cmp(lo, hi)
	if res == infra.Incomparable {
		return 0, tree.unorderable(hi)
	} else if res > 0 {
		lo, hi = hi, lo
	}
	loRank, err := tree.Rank(lo)
	if err != nil {
		return 0, err
	}
	hiRank, err := tree.Rank(hi)
	if err != nil {
		return 0, err
	}
	return hiRank - loRank, nil
}
