package domain

import (
	"errors"
	"testing"
)

func TestProductDiscountPercent(t *testing.T) {
	sale := int64(65)
	p := Product{PriceCents: 100, SalePriceCents: &sale}
	if got := p.DiscountPercent(); got != 35 {
		t.Fatalf("expected 35, got %d", got)
	}
	if got := p.EffectivePriceCents(); got != 65 {
		t.Fatalf("expected effective price 65, got %d", got)
	}

	plain := Product{PriceCents: 100}
	if plain.DiscountPercent() != 0 || plain.EffectivePriceCents() != 100 {
		t.Fatalf("unexpected values for product without sale price: %+v", plain)
	}
}

func TestLineKeyTreatsNilAsEmpty(t *testing.T) {
	red := "red"
	a := NewLineKey("p1", &red, nil)
	b := CartLine{Product: Product{ID: "p1"}, Color: &red}.Key()
	if a != b {
		t.Fatalf("expected equal keys, got %+v and %+v", a, b)
	}
	if a == NewLineKey("p1", nil, nil) {
		t.Fatalf("expected color to distinguish keys")
	}
}

func TestValidationMatchesSentinel(t *testing.T) {
	err := Validation("email required")
	if err.Error() != "email required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation match")
	}
}
