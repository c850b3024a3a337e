package throttle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseRate(t *testing.T) {
	cases := map[string]Rate{
		"5/minute":  {Max: 5, Window: time.Minute},
		"50/min":    {Max: 50, Window: time.Minute},
		"10/second": {Max: 10, Window: time.Second},
		"100/h":     {Max: 100, Window: time.Hour},
		"1000/day":  {Max: 1000, Window: 24 * time.Hour},
		" 3/m ":     {Max: 3, Window: time.Minute},
	}
	for raw, want := range cases {
		got, err := ParseRate(raw)
		if err != nil {
			t.Fatalf("ParseRate(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseRate(%q)=%+v, want %+v", raw, got, want)
		}
	}

	for _, raw := range []string{"", "minute", "0/minute", "-1/minute", "x/minute", "5/fortnight"} {
		if _, err := ParseRate(raw); err == nil {
			t.Fatalf("ParseRate(%q): expected error", raw)
		}
	}
}

func TestAdmitEnforcesBudget(t *testing.T) {
	gate := NewMemoryGate(map[string]Rate{
		ScopeUsersList: {Max: 3, Window: time.Minute},
		ScopeBooks:     {Max: 2, Window: time.Minute},
	})

	for i := 0; i < 3; i++ {
		ok, err := gate.Admit(context.Background(), ScopeUsersList, "alice")
		if err != nil {
			t.Fatalf("Admit: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	ok, err := gate.Admit(context.Background(), ScopeUsersList, "alice")
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ok {
		t.Fatal("request over budget must be rejected")
	}
}

func TestScopesAreIndependent(t *testing.T) {
	gate := NewMemoryGate(map[string]Rate{
		ScopeUsersList: {Max: 1, Window: time.Minute},
		ScopeBooks:     {Max: 1, Window: time.Minute},
	})

	if ok, _ := gate.Admit(context.Background(), ScopeUsersList, "alice"); !ok {
		t.Fatal("first users_list request must pass")
	}
	if ok, _ := gate.Admit(context.Background(), ScopeUsersList, "alice"); ok {
		t.Fatal("users_list budget exhausted")
	}
	// Exhausting users_list must not touch the books budget.
	if ok, _ := gate.Admit(context.Background(), ScopeBooks, "alice"); !ok {
		t.Fatal("books budget must be unaffected")
	}
}

func TestActorsAreIndependent(t *testing.T) {
	gate := NewMemoryGate(map[string]Rate{ScopeBooks: {Max: 1, Window: time.Minute}})

	if ok, _ := gate.Admit(context.Background(), ScopeBooks, "alice"); !ok {
		t.Fatal("alice's first request must pass")
	}
	if ok, _ := gate.Admit(context.Background(), ScopeBooks, "bob"); !ok {
		t.Fatal("bob's budget is separate from alice's")
	}
}

func TestWindowRollsOver(t *testing.T) {
	current := time.Now()
	gate := NewMemoryGate(map[string]Rate{ScopeBooks: {Max: 1, Window: time.Minute}}).
		WithClock(func() time.Time { return current })

	if ok, _ := gate.Admit(context.Background(), ScopeBooks, "alice"); !ok {
		t.Fatal("first request must pass")
	}
	if ok, _ := gate.Admit(context.Background(), ScopeBooks, "alice"); ok {
		t.Fatal("budget exhausted inside the window")
	}

	current = current.Add(time.Minute)
	if ok, _ := gate.Admit(context.Background(), ScopeBooks, "alice"); !ok {
		t.Fatal("budget must reset in the next window")
	}
}

func TestUnknownScope(t *testing.T) {
	gate := NewMemoryGate(map[string]Rate{ScopeBooks: {Max: 1, Window: time.Minute}})
	if _, err := gate.Admit(context.Background(), "nope", "alice"); !errors.Is(err, ErrUnknownScope) {
		t.Fatalf("expected ErrUnknownScope, got %v", err)
	}
}
