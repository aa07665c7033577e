package ast

// Kind tags the content of a Node.
type Kind uint8

const (
	// KindLiteral is a leaf holding a search term.
	KindLiteral Kind = iota
	// KindOr is satisfied if either child is.
	KindOr
	// KindAnd is satisfied if both children are.
	KindAnd
)

func (k Kind) String() string {
	switch k {
	case KindOr:
		return "+"
	case KindAnd:
		return "*"
	default:
		return "literal"
	}
}

// Node is a node of a parsed query. Operator nodes always own exactly two
// children and literal nodes own none; a node never has a single child.
// Nodes are not shared between trees or between positions of one tree.
type Node struct {
	Kind  Kind
	Term  string
	Left  *Node
	Right *Node
}

func NewLiteral(term string) *Node {
	return &Node{Kind: KindLiteral, Term: term}
}

// NewOperator joins left and right under an OR or AND node.
func NewOperator(kind Kind, left, right *Node) *Node {
	if kind == KindLiteral {
		panic("ast: literal kind used as operator")
	}
	return &Node{Kind: kind, Left: left, Right: right}
}

func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

func (n *Node) isTerm(term string) bool {
	return n.Kind == KindLiteral && n.Term == term
}

// Equal reports whether n and other have the same shape and content.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Term != other.Term {
		return false
	}
	return n.Left.Equal(other.Left) && n.Right.Equal(other.Right)
}

// Size returns the number of nodes in the tree.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	return 1 + n.Left.Size() + n.Right.Size()
}

// Eval computes the value of the whole tree, looking up every literal it
// visits with isTrue. It does not modify the tree.
func (n *Node) Eval(isTrue func(term string) bool) bool {
	switch n.Kind {
	case KindOr:
		return n.Left.Eval(isTrue) || n.Right.Eval(isTrue)
	case KindAnd:
		return n.Left.Eval(isTrue) && n.Right.Eval(isTrue)
	default:
		return isTrue(n.Term)
	}
}
