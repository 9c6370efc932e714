package modelstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindHelpers(t *testing.T) {
	tests := []struct {
		kind  Kind
		check func(error) bool
	}{
		{KindSchema, IsSchemaError},
		{KindQuery, IsQueryError},
		{KindConnection, IsConnectionError},
		{KindMisuse, IsMisuseError},
	}

	for _, tt := range tests {
		err := newError(tt.kind, "write", "users", errors.New("boom"))
		assert.True(t, tt.check(err), "kind %s", tt.kind)

		// Helpers see through wrapping.
		wrapped := fmt.Errorf("outer: %w", err)
		assert.True(t, tt.check(wrapped), "wrapped kind %s", tt.kind)

		for _, other := range tests {
			if other.kind != tt.kind {
				assert.False(t, other.check(err), "kind %s matched %s", tt.kind, other.kind)
			}
		}
	}

	assert.False(t, IsSchemaError(errors.New("plain")))
	assert.False(t, IsSchemaError(nil))
}

func TestErrorMessage(t *testing.T) {
	err := newError(KindSchema, "resolve", "users", errors.New("boom"))
	assert.Equal(t, "SCHEMA: resolve users: boom", err.Error())

	noTable := newError(KindConnection, "open", "", errors.New("boom"))
	assert.Equal(t, "CONNECTION: open: boom", noTable.Error())
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := newError(KindQuery, "read", "users", inner)
	assert.ErrorIs(t, err, inner)
}
