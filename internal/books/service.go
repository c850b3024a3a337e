package books

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookvault.org/internal/ids"
)

// Service validates and persists book mutations. Authorization happens at
// the HTTP boundary before these methods run.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs the book service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateInput carries a new book's fields.
type CreateInput struct {
	Title           string
	Author          string
	PublicationDate *time.Time
	UserID          string
}

// Create validates and stores a new book owned by input.UserID.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Book, error) {
	title, err := requireField(input.Title, "title")
	if err != nil {
		return nil, err
	}
	author, err := requireField(input.Author, "author")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, ErrInvalidInput
	}

	now := s.now().UTC()
	book := &Book{
		ID:              ids.New(),
		Title:           title,
		Author:          author,
		PublicationDate: input.PublicationDate,
		UserID:          input.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Get fetches one book.
func (s *Service) Get(ctx context.Context, id string) (*Book, error) {
	return s.store.Get(ctx, id)
}

// Apply mutates the book per the update and persists it. Ownership is never
// touched.
func (s *Service) Apply(ctx context.Context, book *Book, upd Update) (*Book, error) {
	if upd.Title != nil {
		title, err := requireField(*upd.Title, "title")
		if err != nil {
			return nil, err
		}
		book.Title = title
	}
	if upd.Author != nil {
		author, err := requireField(*upd.Author, "author")
		if err != nil {
			return nil, err
		}
		book.Author = author
	}
	if upd.ClearDate {
		book.PublicationDate = nil
	} else if upd.PublicationDate != nil {
		book.PublicationDate = upd.PublicationDate
	}
	book.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes the book.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// List returns one page of books matching the filter plus the total count.
func (s *Service) List(ctx context.Context, filter Filter, page Page) ([]Book, int, error) {
	return s.store.List(ctx, filter, page)
}

func requireField(value, name string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	if len(value) > maxFieldLen {
		return "", fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidInput, name, maxFieldLen)
	}
	return value, nil
}
