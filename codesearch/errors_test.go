package codesearch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codesearch/codesearch/codesearch/query"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrIO, "write chunk", cause)
	assert.Equal(t, "io: write chunk: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "invalid_argument: must be positive (field=project_id)", InvalidArgument("project_id", "must be positive").Error())
	assert.Equal(t, "", (*Error)(nil).Error())
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(ErrNotFound, "no such repository"))
	assert.True(t, IsKind(err, ErrNotFound))
	assert.False(t, IsKind(err, ErrSQL))
	assert.False(t, IsKind(errors.New("plain"), ErrSQL))
}

func TestWrapQueryKeepsQueryKind(t *testing.T) {
	_, lexErr := query.Tokenize(`a\`)
	wrapped := wrapQuery(ErrSyntax, "tokenize query", lexErr)
	assert.Equal(t, ErrLex, wrapped.Kind)
	assert.True(t, IsClientError(wrapped))

	other := wrapQuery(ErrSQL, "search", errors.New("boom"))
	assert.Equal(t, ErrSQL, other.Kind)
	assert.False(t, IsClientError(other))
	assert.False(t, IsClientError(errors.New("plain")))
}
