package tree

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/benz9527/xsymtab/lib/infra"
)

// llrb rule validation utilities.

var (
	errRedViolation       = errors.New("[llrb] red violation")
	errRightLeanViolation = errors.New("[llrb] right-leaning red link")
	errBlackViolation     = errors.New("[llrb] black violation")
	errSizeViolation      = errors.New("[llrb] size violation")
	errOrderViolation     = errors.New("[llrb] order violation")
)

func isRed[K any, V any](node RBNode[K, V]) bool {
	return node != nil && node.Color() == Red
}

// Preorder traversal, a red node must not have a red left child
// and no node has a red right child. The root is black.
func RedViolationValidate[K any, V any](tree LLRBTree[K, V]) error {
	root := tree.Root()
	if root == nil {
		return nil
	}
	if isRed[K, V](root) {
		return fmt.Errorf("%w: red root %v", errRedViolation, root.Key())
	}

	stack := make([]RBNode[K, V], 0, tree.Height())
	defer func() {
		clear(stack)
	}()
	stack = append(stack, root)
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		l, r := aux.Left(), aux.Right()
		if isRed[K, V](r) {
			return fmt.Errorf("%w: at %v", errRightLeanViolation, aux.Key())
		}
		if isRed[K, V](aux) && isRed[K, V](l) {
			return fmt.Errorf("%w: at %v", errRedViolation, aux.Key())
		}
		if r != nil {
			stack = append(stack, r)
		}
		if l != nil {
			stack = append(stack, l)
		}
	}
	return nil
}

/*
<X> is a RED link.
[X] is a BLACK link (or NIL).

	          [13]
	          /  \
	       <8>    [15]
	       / \    /
	     [6] [11]<14>
	     /
	   <1>

2-3 tree like:

	         [8 --- 13]
	        /    |     \
	    [1-6]  [11]  [14-15]

Every path from the root to a nil link crosses the same number
of black links.
*/
func BlackViolationValidate[K any, V any](tree LLRBTree[K, V]) error {
	if _, ok := blackHeight[K, V](tree.Root()); !ok {
		return errBlackViolation
	}
	return nil
}

func blackHeight[K any, V any](node RBNode[K, V]) (int, bool) {
	if node == nil {
		return 0, true
	}
	lh, ok := blackHeight[K, V](node.Left())
	if !ok {
		return 0, false
	}
	rh, ok := blackHeight[K, V](node.Right())
	if !ok || lh != rh {
		return 0, false
	}
	if isRed[K, V](node) {
		return lh, true
	}
	return lh + 1, true
}

func SizeViolationValidate[K any, V any](tree LLRBTree[K, V]) error {
	if _, err := checkSize[K, V](tree.Root()); err != nil {
		return err
	}
	return nil
}

func checkSize[K any, V any](node RBNode[K, V]) (int64, error) {
	if node == nil {
		return 0, nil
	}
	l, err := checkSize[K, V](node.Left())
	if err != nil {
		return 0, err
	}
	r, err := checkSize[K, V](node.Right())
	if err != nil {
		return 0, err
	}
	if node.Size() != 1+l+r {
		return 0, fmt.Errorf("%w: at %v, size %d, actual %d",
			errSizeViolation, node.Key(), node.Size(), 1+l+r)
	}
	return node.Size(), nil
}

// Inorder traversal, every key is strictly greater than its predecessor.
func OrderViolationValidate[K any, V any](tree LLRBTree[K, V]) error {
	var (
		prev    K
		hasPrev bool
		err     error
	)
	tree.Foreach(func(idx int64, color RBColor, key K, val V) bool {
		if hasPrev && tree.Compare(prev, key) >= 0 {
			err = fmt.Errorf("%w: index %d, %v then %v", errOrderViolation, idx, prev, key)
			return false
		}
		prev, hasPrev = key, true
		return true
	})
	return err
}

func (tree *llrbTree[K, V]) Validate() error {
	return infra.WrapErrorStack(multierr.Combine(
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		SizeViolationValidate[K, V](tree),
		OrderViolationValidate[K, V](tree),
	))
}
