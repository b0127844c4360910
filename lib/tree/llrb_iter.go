package tree

import (
	"math/bits"
)

type iteratorBounds[K any] struct {
	lo, hi       K
	hasLo, hasHi bool
	reverse      bool
}

type IteratorOpt[K any] func(*iteratorBounds[K])

// WithIteratorLowerBound includes keys greater than or equal to lo.
func WithIteratorLowerBound[K any](lo K) IteratorOpt[K] {
	return func(b *iteratorBounds[K]) {
		b.lo, b.hasLo = lo, true
	}
}

// WithIteratorUpperBound includes keys strictly less than hi.
func WithIteratorUpperBound[K any](hi K) IteratorOpt[K] {
	return func(b *iteratorBounds[K]) {
		b.hi, b.hasHi = hi, true
	}
}

func WithIteratorReverse[K any]() IteratorOpt[K] {
	return func(b *iteratorBounds[K]) {
		b.reverse = true
	}
}

var _ Iterator[int, struct{}] = (*llrbIterator[int, struct{}])(nil)

// llrbIterator keeps the pending ancestors of the next key on an
// explicit stack. The stack never grows beyond the tree height.
type llrbIterator[K any, V any] struct {
	tree   *llrbTree[K, V]
	bounds iteratorBounds[K]
	stack  []*llrbNode[K, V]
}

func (tree *llrbTree[K, V]) Iterator(opts ...IteratorOpt[K]) (Iterator[K, V], error) {
	b := iteratorBounds[K]{}
	for _, o := range opts {
		if o != nil {
			o(&b)
		}
	}
	if b.hasLo {
		if err := tree.checkOrderable(b.lo); err != nil {
			return nil, err
		}
	}
	if b.hasHi {
		if err := tree.checkOrderable(b.hi); err != nil {
			return nil, err
		}
	}

	iter := &llrbIterator[K, V]{
		tree:   tree,
		bounds: b,
		// 2 * log2(n) is the upper bound of the height.
		stack: make([]*llrbNode[K, V], 0, 2*bits.Len64(uint64(tree.Len()))+1),
	}
	if b.reverse {
		iter.pushRight(tree.root)
	} else {
		iter.pushLeft(tree.root)
	}
	return iter, nil
}

func (iter *llrbIterator[K, V]) belowLo(key K) bool {
	return iter.bounds.hasLo && iter.tree.cmp(key, iter.bounds.lo) < 0
}

func (iter *llrbIterator[K, V]) reachHi(key K) bool {
	return iter.bounds.hasHi && iter.tree.cmp(key, iter.bounds.hi) >= 0
}

// pushLeft pushes the left spine of aux, subtrees entirely below
// the lower bound are skipped.
func (iter *llrbIterator[K, V]) pushLeft(aux *llrbNode[K, V]) {
	for aux != nil {
		if iter.belowLo(aux.key) {
			aux = aux.right
			continue
		}
		iter.stack = append(iter.stack, aux)
		aux = aux.left
	}
}

// pushRight pushes the right spine of aux, subtrees entirely at or
// above the upper bound are skipped.
func (iter *llrbIterator[K, V]) pushRight(aux *llrbNode[K, V]) {
	for aux != nil {
		if iter.reachHi(aux.key) {
			aux = aux.left
			continue
		}
		iter.stack = append(iter.stack, aux)
		aux = aux.right
	}
}

func (iter *llrbIterator[K, V]) HasNext() bool {
	size := len(iter.stack)
	if size <= 0 {
		return false
	}
	top := iter.stack[size-1].key
	if iter.bounds.reverse {
		return !iter.belowLo(top)
	}
	return !iter.reachHi(top)
}

// Next must be guarded by HasNext, it panics on an exhausted iterator.
func (iter *llrbIterator[K, V]) Next() (K, V) {
	if !iter.HasNext() {
		panic("[llrb] iterator exhausted")
	}
	size := len(iter.stack)
	aux := iter.stack[size-1]
	iter.stack[size-1] = nil
	iter.stack = iter.stack[:size-1]
	if iter.bounds.reverse {
		iter.pushRight(aux.left)
	} else {
		iter.pushLeft(aux.right)
	}
	return aux.key, aux.val
}

func (tree *llrbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	aux := tree.root
	if aux == nil || action == nil {
		return
	}

	stack := make([]*llrbNode[K, V], 0, 2*bits.Len64(uint64(tree.Len()))+1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key, aux.val) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; aux != nil; aux = aux.left {
			stack = append(stack, aux)
		}
	}
}
