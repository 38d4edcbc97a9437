package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type OffsetPage[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newOffsetPage[T any](items []T, total int64, page, pageSize int) *OffsetPage[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &OffsetPage[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Page is a validated 1-based offset page request.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// NormalizePage clamps the size to [1, maxSize], using def when size is unset,
// and the number to the range whose offset fits in an int.
func NormalizePage(number, size, def, maxSize int) Page {
	if size < 1 {
		size = def
	}
	if size > maxSize {
		size = maxSize
	}
	if size < 1 {
		size = 1
	}
	if number < 1 {
		number = 1
	}
	if last := math.MaxInt/size + 1; number > last {
		number = last
	}
	return Page{Number: number, Size: size}
}

type OrderCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

func EncodeCursor(cursor OrderCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor returns a cursor positioned before every row when encoded is empty.
func DecodeCursor(encoded string) (OrderCursor, error) {
	var cursor OrderCursor
	if encoded == "" {
		return OrderCursor{
			CreatedAt: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
			ID:        math.MaxInt64,
		}, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, fmt.Errorf("decode cursor: %w", err)
	}

	if err := json.Unmarshal(data, &cursor); err != nil {
		return cursor, fmt.Errorf("decode cursor: %w", err)
	}
	return cursor, nil
}
