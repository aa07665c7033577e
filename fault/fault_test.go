package fault

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultWrapping(t *testing.T) {
	f := New(NotFoundCode, "cannot read document").WithOriginal(fs.ErrNotExist)

	assert.Equal(t, "cannot read document: file does not exist", f.Error())
	assert.ErrorIs(t, f, fs.ErrNotExist)

	wrapped := fmt.Errorf("search failed: %w", f)

	var got Fault
	require.ErrorAs(t, wrapped, &got)
	assert.Equal(t, NotFoundCode, got.Code())
	assert.Equal(t, NotFoundCode, CodeOf(wrapped))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, UnknownCode, CodeOf(errors.New("boom")))
	assert.Equal(t, UnknownCode, CodeOf(nil))
}

func TestWithMetadataDoesNotMutate(t *testing.T) {
	base := New(BadInputCode, "bad")
	withMeta := base.WithMetadata(SyntaxMetadata{Position: 3, Token: ")"})

	assert.Nil(t, base.Metadata())
	assert.Equal(t, SyntaxMetadata{Position: 3, Token: ")"}, withMeta.Metadata())
}
