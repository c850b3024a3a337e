package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"bookvault.org/internal/throttle"
)

func TestThrottleGateAdmit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("insert into throttle_counters").
		WithArgs(throttle.ScopeUsersList, "u1", float64(60)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("insert into throttle_counters").
		WithArgs(throttle.ScopeUsersList, "u1", float64(60)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	gate := NewWithDB(db).Throttle(map[string]throttle.Rate{
		throttle.ScopeUsersList: {Max: 3, Window: time.Minute},
	})

	ok, err := gate.Admit(context.Background(), throttle.ScopeUsersList, "u1")
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if !ok {
		t.Fatal("count within budget must be admitted")
	}

	ok, err = gate.Admit(context.Background(), throttle.ScopeUsersList, "u1")
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ok {
		t.Fatal("count over budget must be rejected")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestThrottleGateUnknownScope(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	gate := NewWithDB(db).Throttle(map[string]throttle.Rate{})
	if _, err := gate.Admit(context.Background(), "nope", "u1"); !errors.Is(err, throttle.ErrUnknownScope) {
		t.Fatalf("expected ErrUnknownScope, got %v", err)
	}
}
