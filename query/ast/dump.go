package ast

import (
	"bufio"
	"io"
	"strings"
)

// Dump writes the canonical, fully parenthesized infix form of the tree.
func (n *Node) Dump(b *strings.Builder) {
	if n.Kind == KindLiteral {
		b.WriteString(n.Term)
		return
	}

	b.WriteByte('(')
	n.Left.Dump(b)
	b.WriteByte(' ')
	b.WriteString(n.Kind.String())
	b.WriteByte(' ')
	n.Right.Dump(b)
	b.WriteByte(')')
}

func (n *Node) String() string {
	if n == nil {
		return ""
	}
	b := &strings.Builder{}
	n.Dump(b)
	return b.String()
}

// Print renders the tree one node per line:
//
//	*
//	├─ +
//	│  ├─ A
//	│  └─ B
//	└─ C
func (n *Node) Print(w io.Writer) error {
	bw := bufio.NewWriter(w)
	n.print(bw, "", "")
	return bw.Flush()
}

func (n *Node) print(w *bufio.Writer, prefix, childPrefix string) {
	w.WriteString(prefix)
	if n.Kind == KindLiteral {
		w.WriteString(n.Term)
	} else {
		w.WriteString(n.Kind.String())
	}
	w.WriteByte('\n')

	if n.IsLeaf() {
		return
	}

	n.Left.print(w, childPrefix+"├─ ", childPrefix+"│  ")
	n.Right.print(w, childPrefix+"└─ ", childPrefix+"   ")
}
