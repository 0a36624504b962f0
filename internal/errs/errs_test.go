package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUnwrapsToKind(t *testing.T) {
	errOrderMissing := New(ErrNotFound, "order_not_found")

	assert.Equal(t, "order_not_found", errOrderMissing.Error())
	assert.True(t, errors.Is(errOrderMissing, ErrNotFound))
	assert.False(t, errors.Is(errOrderMissing, ErrConflict))
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", errOrderMissing)))
}

func TestKindAndCode(t *testing.T) {
	errAlready := New(ErrConflict, "already_settled")
	wrapped := fmt.Errorf("settle SO-250101-001: %w", errAlready)

	assert.Equal(t, ErrConflict, Kind(wrapped))
	assert.Equal(t, "already_settled", Code(wrapped))
	assert.True(t, IsRetryable(wrapped))

	assert.Nil(t, Kind(errors.New("boom")))
	assert.Equal(t, "", Code(errors.New("boom")))
	assert.Equal(t, "invalid_state", Code(ErrInvalidState))
}
