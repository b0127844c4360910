package tree

type llrbNode[K any, V any] struct {
	left  *llrbNode[K, V]
	right *llrbNode[K, V]
	key   K
	val   V
	size  int64
	color RBColor
}

// New node is red, it joins the existing 2-node or 3-node of its parent.
func newLLRBNode[K any, V any](key K, val V) *llrbNode[K, V] {
	return &llrbNode[K, V]{
		key:   key,
		val:   val,
		size:  1,
		color: Red,
	}
}

func (node *llrbNode[K, V]) Key() K {
	return node.key
}

func (node *llrbNode[K, V]) Val() V {
	return node.val
}

func (node *llrbNode[K, V]) Color() RBColor {
	return node.color
}

func (node *llrbNode[K, V]) Size() int64 {
	if node == nil {
		return 0
	}
	return node.size
}

func (node *llrbNode[K, V]) Left() RBNode[K, V] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *llrbNode[K, V]) Right() RBNode[K, V] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *llrbNode[K, V]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *llrbNode[K, V]) resize() {
	node.size = 1 + node.left.Size() + node.right.Size()
}

func (node *llrbNode[K, V]) height() int {
	if node == nil {
		return 0
	}
	return 1 + max(node.left.height(), node.right.height())
}

func (node *llrbNode[K, V]) minimum() *llrbNode[K, V] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *llrbNode[K, V]) maximum() *llrbNode[K, V] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

func (c RBColor) flip() RBColor {
	if c == Red {
		return Black
	}
	return Red
}

/*
<X> is a RED link (node).
[X] is a BLACK link (node).

rotateLeft(H) requires H's right link is red.
S inherits H's color and size, H turns into S's red left link.

	   |                       |
	  [H]                     [S]
	  / \    rotateLeft(H)    / \
	 L  <S>  ============>  <H>  Sd
	    / \                 / \
	  Sc   Sd              L   Sc
*/
func rotateLeft[K any, V any](h *llrbNode[K, V]) *llrbNode[K, V] {
	if h == nil || !h.right.isRed() {
		// impossible run to here
		panic( /* debug assertion */ "[llrb] left rotate node h is nil or h.right is not red")
	}
	x := h.right
	h.right, x.left = x.left, h
	x.color, h.color = h.color, Red
	x.size = h.size
	h.resize()
	return x
}

/*
rotateRight(H) requires H's left link is red.

	      |                      |
	     [H]                    [S]
	     / \   rotateRight(H)   / \
	   <S>  R  ============>  Sc  <H>
	   / \                        / \
	 Sc   Sd                    Sd   R
*/
func rotateRight[K any, V any](h *llrbNode[K, V]) *llrbNode[K, V] {
	if h == nil || !h.left.isRed() {
		// impossible run to here
		panic( /* debug assertion */ "[llrb] right rotate node h is nil or h.left is not red")
	}
	x := h.left
	h.left, x.right = x.right, h
	x.color, h.color = h.color, Red
	x.size = h.size
	h.resize()
	return x
}

/*
flipColors splits a temporary 4-node on the way up (insertion),
or merges a 4-node from parent and siblings on the way down (deletion).

	   |                 ||
	  [H]               <H>
	  / \    ======>    / \
	<L> <R>           [L] [R]
*/
func flipColors[K any, V any](h *llrbNode[K, V]) {
	h.color = h.color.flip()
	h.left.color = h.left.color.flip()
	h.right.color = h.right.color.flip()
}

// fixup restores the left-leaning invariants on the way up.
func fixup[K any, V any](h *llrbNode[K, V]) *llrbNode[K, V] {
	if h.right.isRed() && !h.left.isRed() {
		h = rotateLeft(h)
	}
	if h.left.isRed() && h.left.left.isRed() {
		h = rotateRight(h)
	}
	if h.left.isRed() && h.right.isRed() {
		flipColors(h)
	}
	h.resize()
	return h
}

/*
moveRedLeft requires H is red, H.left and H.left.left are black.
It makes H.left or one of its children red, borrowing from the
right sibling if it is a 3-node.

	     <H>                 [H]                    <Sc>
	     / \      flip       / \     borrow from    /  \
	   [L] [S]  ======>    <L> <S>   ==========>  [H]  [S]
	       /                   /                  /
	     <Sc>                <Sc>               <L>
*/
func moveRedLeft[K any, V any](h *llrbNode[K, V]) *llrbNode[K, V] {
	flipColors(h)
	if h.right.left.isRed() {
		h.right = rotateRight(h.right)
		h = rotateLeft(h)
		flipColors(h)
	}
	return h
}

// moveRedRight requires H is red, H.right and H.right.left are black.
// It makes H.right or one of its children red, borrowing from the
// left sibling if it is a 3-node.
func moveRedRight[K any, V any](h *llrbNode[K, V]) *llrbNode[K, V] {
	flipColors(h)
	if h.left.left.isRed() {
		h = rotateRight(h)
		flipColors(h)
	}
	return h
}
