package tree

import (
	"fmt"
	"strings"

	"github.com/benz9527/xsymtab/lib/infra"
)

var _ LLRBTree[int, struct{}] = (*llrbTree[int, struct{}])(nil)

// References:
// https://www.cs.princeton.edu/~rs/talks/LLRB/LLRB.pdf
// https://algs4.cs.princeton.edu/33balanced/RedBlackBST.java.html
// LLRB properties (isomorphic to 2-3 tree):
// p1. Symmetric order, left keys < key < right keys.
// p2. Red links lean left, no node has a red right link.
// p3. No node has two red links connected to it. (red-violation)
// p4. Every path from the root to a nil link has the same number
//   of black links. (black-violation)
// p5. The root is black.
// p6. The node size is 1 + left size + right size.
// So the height is no more than 2 * log2(n).
type llrbTree[K any, V any] struct {
	root   *llrbNode[K, V]
	cmp    infra.Comparator[K]
	isDesc bool
}

func (tree *llrbTree[K, V]) Len() int64 {
	return tree.root.Size()
}

func (tree *llrbTree[K, V]) Height() int {
	return tree.root.height()
}

func (tree *llrbTree[K, V]) Root() RBNode[K, V] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

func (tree *llrbTree[K, V]) Compare(i, j K) int64 {
	return tree.cmp(i, j)
}

func (tree *llrbTree[K, V]) unorderable(key K) error {
	return infra.WrapErrorStackWithMessage(
		ErrUnorderableKey,
		fmt.Sprintf("[llrb] key %v is not in a total order with the tree keys", key),
	)
}

// A key must be equal to itself.
func (tree *llrbTree[K, V]) checkOrderable(key K) error {
	if tree.cmp(key, key) != 0 {
		return tree.unorderable(key)
	}
	return nil
}

// locate walks the search path of key and checks every comparison
// on it. The insertion and deletion descent start along the same
// path, so an unorderable key is reported before any mutation.
func (tree *llrbTree[K, V]) locate(key K) (*llrbNode[K, V], error) {
	if err := tree.checkOrderable(key); err != nil {
		return nil, err
	}
	for aux := tree.root; aux != nil; {
		res := tree.cmp(key, aux.key)
		if res == infra.Incomparable {
			return nil, tree.unorderable(key)
		} else if /* equal */ res == 0 {
			return aux, nil
		} else /* less */ if res < 0 {
			aux = aux.left
		} else /* greater */ {
			aux = aux.right
		}
	}
	return nil, nil
}

func (tree *llrbTree[K, V]) Search(key K) (V, error) {
	x, err := tree.locate(key)
	if err != nil {
		var val V
		return val, err
	}
	if x == nil {
		var val V
		return val, ErrKeyNotFound
	}
	return x.val, nil
}

// Contains reports false for an unorderable key.
func (tree *llrbTree[K, V]) Contains(key K) bool {
	x, err := tree.locate(key)
	return err == nil && x != nil
}

func (tree *llrbTree[K, V]) Insert(key K, val V, ifNotPresent ...bool) error {
	x, err := tree.locate(key)
	if err != nil {
		return err
	}
	if x != nil {
		if /* disabled */ len(ifNotPresent) > 0 && ifNotPresent[0] {
			return ErrKeyExists
		}
		x.val = val
		return nil
	}

	tree.root = tree.insert(tree.root, key, val)
	tree.root.color = Black
	return nil
}

/*
i1: Reach a nil link, attach a new red node.

i2: Right link is red and left link is black, rotate left.

	  [H]                [S]
	  / \    rotate(H)   / \
	[L] <S>  ========>  <H> ..
	                    /
	                  [L]

i3: Left link and left-left link are red, rotate right.
Then enter i4 to fix.

	      [H]              <L>
	      / \  rotate(H)   / \
	    <L> ..  =======> <X> <H>
	    /                      \
	  <X>                      ..

i4: Both links are red (temporary 4-node), flip colors
to pass the red link up to the parent.
*/
func (tree *llrbTree[K, V]) insert(h *llrbNode[K, V], key K, val V) *llrbNode[K, V] {
	if /* i1 */ h == nil {
		return newLLRBNode[K, V](key, val)
	}

	res := tree.cmp(key, h.key)
	if /* equal */ res == 0 {
		h.val = val
	} else /* less */ if res < 0 {
		h.left = tree.insert(h.left, key, val)
	} else /* greater */ {
		h.right = tree.insert(h.right, key, val)
	}
	/* i2 - i4 */
	return fixup(h)
}

func (tree *llrbTree[K, V]) Remove(key K) (V, error) {
	x, err := tree.locate(key)
	if err != nil {
		var val V
		return val, err
	}
	if x == nil {
		var val V
		return val, ErrKeyNotFound
	}
	val := x.val

	tree.paintRootRedIf2Node()
	tree.root = tree.remove(tree.root, key)
	tree.paintRootBlack()
	return val, nil
}

func (tree *llrbTree[K, V]) RemoveMin() (K, V, error) {
	if tree.root == nil {
		var (
			key K
			val V
		)
		return key, val, ErrEmptyTree
	}
	_min := tree.root.minimum()
	key, val := _min.key, _min.val

	tree.paintRootRedIf2Node()
	tree.root = removeMin(tree.root)
	tree.paintRootBlack()
	return key, val, nil
}

func (tree *llrbTree[K, V]) RemoveMax() (K, V, error) {
	if tree.root == nil {
		var (
			key K
			val V
		)
		return key, val, ErrEmptyTree
	}
	_max := tree.root.maximum()
	key, val := _max.key, _max.val

	tree.paintRootRedIf2Node()
	tree.root = removeMax(tree.root)
	tree.paintRootBlack()
	return key, val, nil
}

// The removal descends with the current node red, the root
// is the only one that has to be painted before the descent.
func (tree *llrbTree[K, V]) paintRootRedIf2Node() {
	if !tree.root.left.isRed() && !tree.root.right.isRed() {
		tree.root.color = Red
	}
}

func (tree *llrbTree[K, V]) paintRootBlack() {
	if tree.root != nil {
		tree.root.color = Black
	}
}

/*
The removal never descends into a 2-node. Before going down,
a red link is pushed into the next node by moveRedLeft or
moveRedRight, so the target is finally removed from a 3-node
or 4-node leaf without breaking the black balance.

r1: Go left, the left link and the left-left link are black,
move red left.

r2: Go right or hit, the left link is red, rotate right to
make the right side a 3-node.

r3: Hit and no right link, the node is a red leaf, remove it.

r4: Go right or hit, the right link and the right-left link
are black, move red right.

r5: Hit with a right subtree, replace the node by its successor,
then remove the successor (the right subtree minimum).

Every return path fixes up the node.
*/
func (tree *llrbTree[K, V]) remove(h *llrbNode[K, V], key K) *llrbNode[K, V] {
	if /* less */ tree.cmp(key, h.key) < 0 {
		if /* r1 */ !h.left.isRed() && !h.left.left.isRed() {
			h = moveRedLeft(h)
		}
		h.left = tree.remove(h.left, key)
		return fixup(h)
	}

	if /* r2 */ h.left.isRed() {
		h = rotateRight(h)
	}
	if /* r3 */ tree.cmp(key, h.key) == 0 && h.right == nil {
		return nil
	}
	if /* r4 */ !h.right.isRed() && !h.right.left.isRed() {
		h = moveRedRight(h)
	}
	if /* r5 */ tree.cmp(key, h.key) == 0 {
		succ := h.right.minimum()
		h.key, h.val = succ.key, succ.val
		h.right = removeMin(h.right)
	} else /* greater */ {
		h.right = tree.remove(h.right, key)
	}
	return fixup(h)
}

// The minimum node has no left link, and it has no right link
// neither (p2 and p4). Remove it directly.
func removeMin[K any, V any](h *llrbNode[K, V]) *llrbNode[K, V] {
	if h.left == nil {
		return nil
	}
	if !h.left.isRed() && !h.left.left.isRed() {
		h = moveRedLeft(h)
	}
	h.left = removeMin(h.left)
	return fixup(h)
}

func removeMax[K any, V any](h *llrbNode[K, V]) *llrbNode[K, V] {
	if h.left.isRed() {
		h = rotateRight(h)
	}
	if h.right == nil {
		return nil
	}
	if !h.right.isRed() && !h.right.left.isRed() {
		h = moveRedRight(h)
	}
	h.right = removeMax(h.right)
	return fixup(h)
}

// Clear drops the whole tree in constant time.
func (tree *llrbTree[K, V]) Clear() {
	tree.root = nil
}

// String dumps the tree as a Lisp-style list, (key left right).
func (tree *llrbTree[K, V]) String() string {
	builder := &strings.Builder{}
	builder.WriteString("LLRBTree")
	if tree.root == nil {
		builder.WriteString("()")
		return builder.String()
	}
	lispDump[K, V](builder, tree.root)
	return builder.String()
}

func lispDump[K any, V any](builder *strings.Builder, node *llrbNode[K, V]) {
	if node == nil {
		builder.WriteString("()")
		return
	}
	builder.WriteString("(")
	builder.WriteString(fmt.Sprint(node.key))
	builder.WriteString(" ")
	lispDump[K, V](builder, node.left)
	builder.WriteString(" ")
	lispDump[K, V](builder, node.right)
	builder.WriteString(")")
}

type LLRBTreeOpt[K any, V any] func(*llrbTree[K, V])

func WithLLRBTreeDesc[K any, V any]() LLRBTreeOpt[K, V] {
	return func(tree *llrbTree[K, V]) {
		tree.isDesc = true
	}
}

func NewLLRBTree[K infra.OrderedKey, V any](opts ...LLRBTreeOpt[K, V]) LLRBTree[K, V] {
	return NewLLRBTreeFunc[K, V](infra.OrderedKeyCompare[K], opts...)
}

// NewLLRBTreeFunc builds a tree for keys without builtin order.
// The cmp must be a strict total order over all keys stored in
// the tree, and report Incomparable for keys out of that order.
func NewLLRBTreeFunc[K any, V any](cmp infra.Comparator[K], opts ...LLRBTreeOpt[K, V]) LLRBTree[K, V] {
	if cmp == nil {
		panic("[llrb] nil key comparator")
	}
	tree := &llrbTree[K, V]{
		cmp:    cmp,
		isDesc: false,
	}
	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	if tree.isDesc {
		tree.cmp = infra.Reverse[K](tree.cmp)
	}
	return tree
}
