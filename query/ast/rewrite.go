package ast

// NextUnresolvedTerm walks the tree breadth first, left child before right,
// and returns the term of the first literal it meets. ok is false only for
// an empty tree.
func (n *Node) NextUnresolvedTerm() (term string, ok bool) {
	if n == nil {
		return "", false
	}

	// Subtrees of identical shape produce the same literals at the same
	// relative depth, so only the first of them needs to be queued.
	visited := map[string]struct{}{n.String(): {}}
	queue := []*Node{n}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.Kind == KindLiteral {
			return current.Term, true
		}

		for _, child := range [...]*Node{current.Left, current.Right} {
			if child == nil {
				continue
			}
			key := child.String()
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
			queue = append(queue, child)
		}
	}

	return "", false
}

// Terms returns every literal term in breadth-first order, duplicates
// included.
func (n *Node) Terms() []string {
	if n == nil {
		return nil
	}

	var terms []string
	queue := []*Node{n}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.Kind == KindLiteral {
			terms = append(terms, current.Term)
			continue
		}
		queue = append(queue, current.Left, current.Right)
	}

	return terms
}

// Absorb bakes the outcome of one term lookup into the tree. On every path
// from the root, the shallowest operator with a literal child equal to term
// is replaced by one of its children, following the absorption laws:
//
//	x + y = x  if x is true,  y if x is false
//	x * y = y  if x is true,  x if x is false
//
// A literal that decides its operator stays in place and stands for its own,
// already known, value. Absorb reports whether it changed anything; call it
// until it returns false to remove every occurrence it can reach.
func (n *Node) Absorb(term string, found bool) bool {
	if n.IsLeaf() {
		return false
	}

	if n.Left.isTerm(term) || n.Right.isTerm(term) {
		n.collapse(term, found)
		return true
	}

	left := n.Left.Absorb(term, found)
	right := n.Right.Absorb(term, found)

	return left || right
}

// collapse replaces n with one of its children. At least one child must be
// a literal equal to term; the left child wins when both are.
func (n *Node) collapse(term string, found bool) {
	// OR keeps a true literal, AND keeps a false one.
	keepMatched := (n.Kind == KindOr) == found

	var keep *Node
	if n.Left.isTerm(term) {
		if keepMatched {
			keep = n.Left
		} else {
			keep = n.Right
		}
	} else {
		if keepMatched {
			keep = n.Right
		} else {
			keep = n.Left
		}
	}

	*n = *keep
}
