package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := EncodeCursor(Cursor{ID: 42, At: at})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor.ID)
	assert.True(t, at.Equal(cursor.At))

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestTrimBuildsNextToken(t *testing.T) {
	page := Pagination{PageSize: 2}
	items := []int{3, 2, 1}

	trimmed, info := Trim(items, page, func(v int) Cursor {
		return Cursor{ID: int64(v), At: time.Unix(int64(v), 0).UTC()}
	})

	assert.Equal(t, []int{3, 2}, trimmed)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)

	trimmed, info = Trim([]int{1}, page, func(int) Cursor { return Cursor{} })
	assert.Equal(t, []int{1}, trimmed)
	assert.False(t, info.HasMore)
}

func TestPageSizeBounds(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Size())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Size())
}
