// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package rbtree implements the connection table: an ordered map from
// integer connection handles to live connection records, backed by a
// red-black tree with a shared sentinel node so that rotations and
// fixups never need a nil check.
//
// The algorithm shapes (sentinel, successor-substitution delete, the
// insert/delete fixup cases) are the classic textbook ones.
package rbtree

type color bool

const (
	red   color = true
	black color = false
)

type node[V any] struct {
	key    int64
	value  V
	color  color
	left   *node[V]
	right  *node[V]
	parent *node[V]
}

// Tree is an ordered map keyed by int64, implemented as a red-black tree.
// The zero value is not usable; construct with New. A Tree is not safe
// for concurrent use without external synchronization.
type Tree[V any] struct {
	root     *node[V]
	sentinel *node[V]
	size     int
}

// New returns an empty connection table.
func New[V any]() *Tree[V] {
	t := &Tree[V]{}
	t.sentinel = &node[V]{color: black}
	t.root = t.sentinel
	return t
}

// Len reports the number of entries currently in the table.
func (t *Tree[V]) Len() int {
	return t.size
}

// Lookup returns the value stored under key, or the zero value and false
// if key is not present.
func (t *Tree[V]) Lookup(key int64) (V, bool) {
	n := t.find(key)
	if n == t.sentinel {
		var zero V
		return zero, false
	}
	return n.value, true
}

func (t *Tree[V]) find(key int64) *node[V] {
	n := t.root
	for n != t.sentinel && n.key != key {
		if key < n.key {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// Insert adds key->value to the table. Duplicate keys are undefined
// behavior: callers guarantee handles are unique while their connection
// is open.
func (t *Tree[V]) Insert(key int64, value V) {
	z := &node[V]{key: key, value: value, left: t.sentinel, right: t.sentinel}

	if t.root == t.sentinel {
		z.color = black
		z.parent = nil
		t.root = z
		t.size++
		return
	}

	y := t.root
	for {
		if z.key < y.key {
			if y.left == t.sentinel {
				y.left = z
				break
			}
			y = y.left
		} else {
			if y.right == t.sentinel {
				y.right = z
				break
			}
			y = y.right
		}
	}
	z.parent = y
	z.color = red
	t.insertFixup(z)
	t.size++
}

// Delete removes key from the table. It is a no-op if key is absent.
func (t *Tree[V]) Delete(key int64) {
	n := t.find(key)
	if n == t.sentinel {
		return
	}
	t.delete(n)
	t.size--
}

// InOrder visits every entry in ascending key order. visit must not
// mutate the tree; structural mutation during a walk is not supported.
func (t *Tree[V]) InOrder(visit func(key int64, value V)) {
	t.inorder(t.root, visit)
}

func (t *Tree[V]) inorder(n *node[V], visit func(key int64, value V)) {
	if n == t.sentinel {
		return
	}
	t.inorder(n.left, visit)
	visit(n.key, n.value)
	t.inorder(n.right, visit)
}

func (t *Tree[V]) leftRotate(x *node[V]) {
	y := x.right
	x.right = y.left
	if y.left != t.sentinel {
		y.left.parent = x
	}
	y.parent = x.parent
	if x == t.root {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *Tree[V]) rightRotate(x *node[V]) {
	y := x.left
	x.left = y.right
	if y.right != t.sentinel {
		y.right.parent = x
	}
	y.parent = x.parent
	if x == t.root {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

// insertFixup restores the red-black invariants after a red leaf insert.
// Case 1: z's uncle is red (recolor and move up).
// Case 2: z's uncle is black and z is a right child (rotate to case 3).
// Case 3: z's uncle is black and z is a left child (rotate and recolor).
func (t *Tree[V]) insertFixup(z *node[V]) {
	for z != t.root && z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *Tree[V]) minimum(n *node[V]) *node[V] {
	for n.left != t.sentinel {
		n = n.left
	}
	return n
}

// delete splices n out of the tree using successor substitution when n
// has two real children, then runs the fixup if a black node was
// spliced out.
func (t *Tree[V]) delete(n *node[V]) {
	var subst, x *node[V]

	if n.left == t.sentinel {
		x = n.right
		subst = n
	} else if n.right == t.sentinel {
		x = n.left
		subst = n
	} else {
		subst = t.minimum(n.right)
		if subst.left != t.sentinel {
			x = subst.left
		} else {
			x = subst.right
		}
	}

	if subst == t.root {
		t.root = x
		x.color = black
		return
	}

	substColor := subst.color

	if subst == subst.parent.left {
		subst.parent.left = x
	} else {
		subst.parent.right = x
	}

	if subst == n {
		x.parent = subst.parent
	} else {
		if subst.parent == n {
			x.parent = subst
		} else {
			x.parent = subst.parent
		}

		subst.left = n.left
		subst.right = n.right
		subst.parent = n.parent
		subst.color = n.color

		if n == t.root {
			t.root = subst
		} else if n == n.parent.left {
			n.parent.left = subst
		} else {
			n.parent.right = subst
		}

		if subst.left != t.sentinel {
			subst.left.parent = subst
		}
		if subst.right != t.sentinel {
			subst.right.parent = subst
		}
	}

	if substColor == black {
		t.deleteFixup(x)
	}
}

// deleteFixup restores the red-black invariants after splicing out a
// black node. w is x's sibling; cases 1-4 mirror the textbook algorithm.
func (t *Tree[V]) deleteFixup(x *node[V]) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
