package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookvault.org/internal/books"
)

type bookStore struct {
	db *sql.DB
}

func (s *bookStore) Create(ctx context.Context, b *books.Book) error {
	_, err := s.db.ExecContext(ctx, `
		insert into books (id, title, author, publication_date, user_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.Title, b.Author, b.PublicationDate, b.UserID, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return books.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *bookStore) Get(ctx context.Context, id string) (*books.Book, error) {
	var (
		b    books.Book
		date sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, title, author, publication_date, user_id, created_at, updated_at
		from books
		where id = $1
	`, id).Scan(&b.ID, &b.Title, &b.Author, &date, &b.UserID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, books.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if date.Valid {
		d := date.Time
		b.PublicationDate = &d
	}
	return &b, nil
}

func (s *bookStore) Update(ctx context.Context, b *books.Book) error {
	res, err := s.db.ExecContext(ctx, `
		update books
		set title = $2, author = $3, publication_date = $4, updated_at = $5
		where id = $1
	`, b.ID, b.Title, b.Author, b.PublicationDate, b.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return books.ErrNotFound
	}
	return nil
}

func (s *bookStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from books where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return books.ErrNotFound
	}
	return nil
}

func (s *bookStore) List(ctx context.Context, filter books.Filter, page books.Page) ([]books.Book, int, error) {
	var (
		where []string
		args  []any
	)
	if needle := strings.TrimSpace(filter.TitleContains); needle != "" {
		args = append(args, "%"+needle+"%")
		where = append(where, fmt.Sprintf("title ilike $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where = append(where, fmt.Sprintf("publication_date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where = append(where, fmt.Sprintf("publication_date <= $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " where " + strings.Join(where, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from books`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := page.Size
	if limit <= 0 {
		limit = total
	}
	args = append(args, limit)
	limitArg := len(args)
	args = append(args, page.Offset())
	offsetArg := len(args)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select id, title, author, publication_date, user_id, created_at, updated_at
		from books%s
		order by publication_date desc nulls last, id
		limit $%d offset $%d
	`, clause, limitArg, offsetArg), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []books.Book
	for rows.Next() {
		var (
			b    books.Book
			date sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &date, &b.UserID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if date.Valid {
			d := date.Time
			b.PublicationDate = &d
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}
