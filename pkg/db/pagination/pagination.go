package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Cursor points at the last row of the previous page in
// (timestamp desc, id desc) order.
type Cursor struct {
	ID int64     `json:"id,string"`
	At time.Time `json:"at"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil || cursor.ID == 0 {
		return nil, ErrInvalidPageToken
	}
	return &cursor, nil
}

// Apply adds keyset conditions on (tsColumn, id) and fetches one extra row
// so the caller can tell whether another page exists.
func Apply(stmt *gorm.DB, page Pagination, tsColumn string) (*gorm.DB, error) {
	if page.PageToken != "" {
		cursor, err := DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where(
			fmt.Sprintf("(%s < ? OR (%s = ? AND id < ?))", tsColumn, tsColumn),
			cursor.At, cursor.At, cursor.ID,
		)
	}
	return stmt.Order(tsColumn + " desc, id desc").Limit(page.Size() + 1), nil
}

// Trim cuts the probe row returned by Apply and builds the page info.
func Trim[T any](items []T, page Pagination, cursorOf func(T) Cursor) ([]T, PageInfo) {
	size := page.Size()
	if len(items) <= size {
		return items, PageInfo{}
	}
	items = items[:size]
	token, err := EncodeCursor(cursorOf(items[len(items)-1]))
	if err != nil {
		return items, PageInfo{}
	}
	return items, PageInfo{NextPageToken: token, HasMore: true}
}
