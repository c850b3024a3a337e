// Package books holds the book catalog: records, filtering, pagination and
// the persistence contract.
package books

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("books: not found")
	ErrInvalidInput = errors.New("books: invalid input")
)

const maxFieldLen = 100

// Book is a catalog record. Every book has exactly one owner; ownership does
// not change after creation.
type Book struct {
	ID              string
	Title           string
	Author          string
	PublicationDate *time.Time
	UserID          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Filter narrows list results. Zero values mean "no constraint".
type Filter struct {
	TitleContains string
	DateFrom      *time.Time
	DateTo        *time.Time
}

// Page selects one page of results. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Update carries a full or partial mutation. Nil fields are untouched for
// partial updates; full updates set every field.
type Update struct {
	Title           *string
	Author          *string
	PublicationDate *time.Time
	ClearDate       bool
}
