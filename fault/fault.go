package fault

import (
	"errors"
	"fmt"
)

type Code string

const (
	UnknownCode  Code = "unknown"
	NotFoundCode Code = "not_found"
	BadInputCode Code = "bad_input"
)

type FieldErrorsMetadata map[string][]string

// SyntaxMetadata points at the query atom a syntax issue was detected at.
// Position is a rune offset into the query, or the query length when the
// issue is at end of input.
type SyntaxMetadata struct {
	Position int    `json:"position"`
	Token    string `json:"token,omitempty"`
}

type Fault struct {
	code     Code
	message  string
	metadata any
	original error
}

func New(code Code, message string) Fault {
	return Fault{
		code:    code,
		message: message,
	}
}

func (f Fault) WithMetadata(metadata any) Fault {
	e := f
	e.metadata = metadata
	return e
}

func (f Fault) WithOriginal(original error) Fault {
	e := f
	e.original = original
	return e
}

func (f Fault) Code() Code {
	return f.code
}

func (f Fault) Message() string {
	return f.message
}

func (f Fault) Metadata() any {
	return f.metadata
}

func (f Fault) Original() error {
	return f.original
}

func (f Fault) Error() string {
	if f.original != nil {
		return fmt.Sprintf("%s: %v", f.message, f.original)
	}
	return f.message
}

func (f Fault) Unwrap() error {
	return f.original
}

// CodeOf returns the code of the first Fault found in err's chain,
// or UnknownCode if there is none.
func CodeOf(err error) Code {
	var f Fault
	if errors.As(err, &f) {
		return f.code
	}
	return UnknownCode
}
