package core

import (
	"errors"
	"testing"
)

func TestExpenseDraftValidate(t *testing.T) {
	amount := func(v float64) *float64 { return &v }

	good := ExpenseDraft{Category: "Food", Amount: amount(12.5)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (ExpenseDraft{Category: "Food", Amount: amount(0)}).Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}

	bads := []ExpenseDraft{
		{Category: "", Amount: amount(1)},
		{Category: "   ", Amount: amount(1)},
		{Category: "Food", Amount: nil},
		{Category: "Food", Amount: amount(-1)},
	}
	for i, d := range bads {
		err := d.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestUserPublicStripsHash(t *testing.T) {
	u := User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "secret"}
	if got := u.Public().PasswordHash; got != "" {
		t.Fatalf("expected empty hash, got %q", got)
	}
	if u.PasswordHash != "secret" {
		t.Fatalf("Public must not mutate the receiver")
	}
}
