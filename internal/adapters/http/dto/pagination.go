package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// MaxLimit is the maximum allowed items per page.
const MaxLimit = 100

// ErrInvalidCursor is returned when cursor decoding fails.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest holds the optional paging parameters of list endpoints.
// Without a limit the whole collection is returned in one page.
type PaginationRequest struct {
	// Cursor is an opaque string from a previous response's NextCursor.
	Cursor string `form:"cursor"`

	// Limit is the page size (1-100).
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// PaginatedResponse is a page of a list.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	Total      int    `json:"total"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// cursorData is the payload of a cursor. The store is an ordered sequence
// so a position is enough.
type cursorData struct {
	Offset int `json:"o"`
}

// EncodeCursor encodes an offset as an opaque cursor.
func EncodeCursor(offset int) string {
	data, err := json.Marshal(cursorData{Offset: offset})
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor decodes a cursor. The empty cursor is offset zero.
func DecodeCursor(encoded string) (int, error) {
	if encoded == "" {
		return 0, nil
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	var data cursorData
	if err := json.Unmarshal(raw, &data); err != nil || data.Offset < 0 {
		return 0, ErrInvalidCursor
	}

	return data.Offset, nil
}

// Paginate slices items into the page selected by req. A cursor past the end
// yields an empty page.
func Paginate[T any](items []T, req PaginationRequest) (*PaginatedResponse[T], error) {
	offset, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	total := len(items)
	offset = min(offset, total)

	end := total
	if req.Limit > 0 {
		end = min(offset+min(req.Limit, MaxLimit), total)
	}

	page := make([]T, end-offset)
	copy(page, items[offset:end])

	resp := &PaginatedResponse[T]{Items: page, Total: total, HasMore: end < total}
	if resp.HasMore {
		resp.NextCursor = EncodeCursor(end)
	}

	return resp, nil
}
