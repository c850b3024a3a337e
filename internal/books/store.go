package books

import "context"

// Store describes persistence for book records. List results are ordered by
// publication date descending, newest first.
type Store interface {
	Create(ctx context.Context, b *Book) error
	Get(ctx context.Context, id string) (*Book, error)
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter, page Page) ([]Book, int, error)
}
