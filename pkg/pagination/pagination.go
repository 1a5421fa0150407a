// Package pagination implements keyset paging over (created_at, id), newest
// first. Cursors are opaque URL-safe strings.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var cursorEncoding = base64.RawURLEncoding

// Params are the paging inputs parsed from a list request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the sort key of the last row on a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Page is returned next to every list result.
type Page struct {
	Limit      int    `json:"limit"`
	Current    string `json:"current,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// NormalizeLimit applies DefaultLimit to non-positive limits and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer is one more than the page size so a next page can be detected.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func EncodeCursor(c Cursor) string {
	return cursorEncoding.EncodeToString([]byte(c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()))
}

// ParseCursor returns nil for a blank cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := cursorEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	at, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, errors.New("invalid cursor format")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	rowID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: createdAt, ID: rowID}, nil
}

// Seek returns a gorm scope that orders alias.created_at and alias.id
// descending, starts after the cursor in params and fetches LimitWithBuffer
// rows. Pass the result to Trim.
func Seek(alias string, params Params) (func(*gorm.DB) *gorm.DB, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	createdAt, id := alias+".created_at", alias+".id"
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where(fmt.Sprintf("(%[1]s < ?) OR (%[1]s = ? AND %[2]s < ?)", createdAt, id),
				cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order(createdAt + " DESC").Order(id + " DESC").Limit(LimitWithBuffer(params.Limit))
	}, nil
}

// Trim cuts rows fetched with LimitWithBuffer down to the page size. The
// next cursor points at the last kept row.
func Trim[T any](rows []T, params Params, cursorOf func(T) Cursor) ([]T, Page) {
	limit := NormalizeLimit(params.Limit)
	page := Page{Limit: limit, Current: strings.TrimSpace(params.Cursor)}
	if len(rows) <= limit {
		return rows, page
	}
	rows = rows[:limit]
	page.NextCursor = EncodeCursor(cursorOf(rows[limit-1]))
	return rows, page
}
