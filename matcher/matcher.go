package matcher

import "strings"

// Matcher decides whether a single search term occurs in a document.
// Implementations must be pure: the same arguments always give the same answer.
type Matcher interface {
	Match(term, document string, ignoreCase bool) (bool, error)
}

// Func adapts a plain function to the Matcher interface.
type Func func(term, document string, ignoreCase bool) (bool, error)

func (f Func) Match(term, document string, ignoreCase bool) (bool, error) {
	return f(term, document, ignoreCase)
}

// Substring reports exact substring containment. With ignoreCase both the
// term and the document are lower-cased before comparing.
type Substring struct{}

func NewSubstring() Substring {
	return Substring{}
}

func (Substring) Match(term, document string, ignoreCase bool) (bool, error) {
	if ignoreCase {
		return strings.Contains(strings.ToLower(document), strings.ToLower(term)), nil
	}
	return strings.Contains(document, term), nil
}
