package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lit(term string) *Node { return NewLiteral(term) }

func or(left, right *Node) *Node { return NewOperator(KindOr, left, right) }

func and(left, right *Node) *Node { return NewOperator(KindAnd, left, right) }

func TestIsLeaf(t *testing.T) {
	assert.True(t, lit("A").IsLeaf())
	assert.False(t, or(lit("A"), lit("B")).IsLeaf())
}

func TestEqual(t *testing.T) {
	a := and(or(lit("A"), lit("B")), lit("C"))
	b := and(or(lit("A"), lit("B")), lit("C"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(and(or(lit("A"), lit("B")), lit("D"))))
	assert.False(t, a.Equal(or(or(lit("A"), lit("B")), lit("C"))))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Node)(nil).Equal(nil))
}

func TestNextUnresolvedTerm(t *testing.T) {
	tests := []struct {
		name     string
		tree     *Node
		expected string
	}{
		{name: "single literal", tree: lit("A"), expected: "A"},
		{name: "left first on same level", tree: or(lit("A"), lit("B")), expected: "A"},
		// (A + B) * (C + F) * (D + E)
		{
			name:     "shallowest wins",
			tree:     and(and(or(lit("A"), lit("B")), or(lit("C"), lit("F"))), or(lit("D"), lit("E"))),
			expected: "D",
		},
		{name: "right literal on shallower level", tree: and(or(lit("A"), lit("B")), lit("C")), expected: "C"},
		{name: "duplicate subtrees", tree: and(or(lit("A"), lit("B")), or(lit("A"), lit("B"))), expected: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, ok := tt.tree.NextUnresolvedTerm()
			require.True(t, ok)
			assert.Equal(t, tt.expected, term)
		})
	}

	_, ok := (*Node)(nil).NextUnresolvedTerm()
	assert.False(t, ok)
}

func TestTerms(t *testing.T) {
	tree := and(and(or(lit("A"), lit("B")), lit("A")), or(lit("D"), lit("E")))
	assert.Equal(t, []string{"A", "D", "E", "A", "B"}, tree.Terms())
}

func TestAbsorbTable(t *testing.T) {
	tests := []struct {
		name     string
		tree     *Node
		found    bool
		expected string
	}{
		{name: "or left found", tree: or(lit("X"), lit("Y")), found: true, expected: "X"},
		{name: "or left missing", tree: or(lit("X"), lit("Y")), found: false, expected: "Y"},
		{name: "or right found", tree: or(lit("Y"), lit("X")), found: true, expected: "X"},
		{name: "or right missing", tree: or(lit("Y"), lit("X")), found: false, expected: "Y"},
		{name: "and left found", tree: and(lit("X"), lit("Y")), found: true, expected: "Y"},
		{name: "and left missing", tree: and(lit("X"), lit("Y")), found: false, expected: "X"},
		{name: "and right found", tree: and(lit("Y"), lit("X")), found: true, expected: "Y"},
		{name: "and right missing", tree: and(lit("Y"), lit("X")), found: false, expected: "X"},
		{name: "or keeps subtree", tree: or(lit("X"), and(lit("A"), lit("B"))), found: false, expected: "(A * B)"},
		{name: "and keeps subtree", tree: and(or(lit("A"), lit("B")), lit("X")), found: true, expected: "(A + B)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, tt.tree.Absorb("X", tt.found))
			assert.Equal(t, tt.expected, tt.tree.String())
		})
	}
}

func TestAbsorbShallowestOnly(t *testing.T) {
	// X + (X * A): the root is collapsed and the nested X is never visited.
	tree := or(lit("X"), and(lit("X"), lit("A")))

	require.True(t, tree.Absorb("X", false))
	assert.Equal(t, "(X * A)", tree.String())

	require.True(t, tree.Absorb("X", false))
	assert.Equal(t, "X", tree.String())

	assert.False(t, tree.Absorb("X", false))
}

func TestAbsorbEveryBranch(t *testing.T) {
	tree := and(or(lit("A"), lit("B")), or(lit("C"), lit("A")))

	require.True(t, tree.Absorb("A", false))
	assert.Equal(t, "(B * C)", tree.String())
}

func TestAbsorbIdempotent(t *testing.T) {
	tree := and(or(lit("A"), lit("B")), or(lit("C"), lit("D")))

	for tree.Absorb("A", true) {
	}
	assert.Equal(t, "(C + D)", tree.String())

	before := tree.String()
	assert.False(t, tree.Absorb("A", true))
	assert.Equal(t, before, tree.String())
}

func TestAbsorbUnknownTerm(t *testing.T) {
	tree := or(lit("A"), lit("B"))
	assert.False(t, tree.Absorb("Z", true))
	assert.False(t, lit("A").Absorb("A", true))
}

func TestAbsorbKeepsRootPointer(t *testing.T) {
	root := or(lit("A"), and(lit("B"), lit("C")))
	left := root.Right.Left

	for root.Absorb("A", false) {
	}
	assert.Equal(t, KindAnd, root.Kind)
	assert.Same(t, left, root.Left)
	assert.Equal(t, "(B * C)", root.String())
}

func TestSize(t *testing.T) {
	tree := and(or(lit("A"), lit("B")), lit("C"))
	assert.Equal(t, 5, tree.Size())

	tree.Absorb("C", true)
	assert.Equal(t, 3, tree.Size())
}

func TestEval(t *testing.T) {
	tree := and(lit("A"), or(lit("B"), lit("C")))
	truth := func(values ...string) func(string) bool {
		return func(term string) bool {
			for _, v := range values {
				if v == term {
					return true
				}
			}
			return false
		}
	}

	assert.False(t, tree.Eval(truth()))
	assert.True(t, tree.Eval(truth("A", "B")))
	assert.False(t, tree.Eval(truth("C")))
	assert.True(t, tree.Eval(truth("A", "C")))
}

func TestPrint(t *testing.T) {
	tree := and(or(lit("A"), lit("B")), or(lit("C"), and(lit("D"), lit("E"))))

	var b strings.Builder
	require.NoError(t, tree.Print(&b))

	expected := `*
├─ +
│  ├─ A
│  └─ B
└─ +
   ├─ C
   └─ *
      ├─ D
      └─ E
`
	assert.Equal(t, expected, b.String())
}

func TestNewOperatorRejectsLiteralKind(t *testing.T) {
	assert.Panics(t, func() { NewOperator(KindLiteral, lit("A"), lit("B")) })
}
