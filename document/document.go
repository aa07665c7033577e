package document

import "context"

// Source provides the fully materialized text of a document.
type Source interface {
	Name() string
	Read(ctx context.Context) (string, error)
}
