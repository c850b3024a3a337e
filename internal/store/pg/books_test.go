package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"bookvault.org/internal/books"
)

func TestBookStoreListWithFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	from := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("select count\\(\\*\\) from books where title ilike \\$1 and publication_date >= \\$2").
		WithArgs("%go%", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("select id, title, author, publication_date, user_id, created_at, updated_at.*from books where title ilike \\$1 and publication_date >= \\$2.*order by publication_date desc nulls last").
		WithArgs("%go%", from, 5, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "publication_date", "user_id", "created_at", "updated_at"}).
			AddRow("b2", "Go in Action", "Kennedy", time.Date(2015, 11, 1, 0, 0, 0, 0, time.UTC), "u1", now, now).
			AddRow("b1", "The Go Programming Language", "Donovan", time.Date(2015, 10, 26, 0, 0, 0, 0, time.UTC), "u1", now, now))

	store := NewWithDB(db)
	items, total, err := store.Books().List(context.Background(), books.Filter{
		TitleContains: "go",
		DateFrom:      &from,
	}, books.Page{Number: 1, Size: 5})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 books, got total=%d len=%d", total, len(items))
	}
	if items[0].Title != "Go in Action" {
		t.Fatalf("unexpected first item: %s", items[0].Title)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookStoreGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, title, author").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewWithDB(db)
	if _, err := store.Books().Get(context.Background(), "missing"); !errors.Is(err, books.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("delete from books").
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from books").
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewWithDB(db)
	if err := store.Books().Delete(context.Background(), "b1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Books().Delete(context.Background(), "b1"); !errors.Is(err, books.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
