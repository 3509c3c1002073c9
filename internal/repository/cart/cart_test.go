package cart

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/repository/repotest"
)

func TestPostgres_AddLineSumsQuantities(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(ctx, t)

	customerID := repotest.InsertCustomer(ctx, t, pool, "cart@example.com")
	productID := repotest.InsertProduct(ctx, t, pool, "mug", "Mug", 500)
	product := domain.Product{ID: productID, Name: "Mug", PriceCents: 500}
	red := "red"

	repo := NewPostgres(pool)
	first, err := repo.AddLine(ctx, customerID, product, &red, nil, 2)
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	second, err := repo.AddLine(ctx, customerID, product, &red, nil, 3)
	if err != nil {
		t.Fatalf("AddLine again: %v", err)
	}
	if second.ID != first.ID || second.Quantity != 5 {
		t.Fatalf("expected summed line, got %+v", second)
	}
	if _, err := repo.AddLine(ctx, customerID, product, nil, nil, 1); err != nil {
		t.Fatalf("AddLine without color: %v", err)
	}

	lines, err := repo.ListLines(ctx, customerID)
	if err != nil {
		t.Fatalf("ListLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Color == nil || *lines[0].Color != "red" || lines[0].Product.Name != "Mug" {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].Color != nil {
		t.Fatalf("expected nil color on second line, got %q", *lines[1].Color)
	}
}

func TestPostgres_SetQuantityAndDelete(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(ctx, t)

	customerID := repotest.InsertCustomer(ctx, t, pool, "qty@example.com")
	productID := repotest.InsertProduct(ctx, t, pool, "pen", "Pen", 50)

	repo := NewPostgres(pool)
	line, err := repo.AddLine(ctx, customerID, domain.Product{ID: productID}, nil, nil, 1)
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if err := repo.SetQuantity(ctx, customerID, line.ID, 4); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if err := repo.SetQuantity(ctx, customerID, line.ID, 0); err != nil {
		t.Fatalf("SetQuantity zero: %v", err)
	}
	if err := repo.DeleteLine(ctx, customerID, line.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after zero quantity, got %v", err)
	}
	if err := repo.Clear(ctx, customerID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
}
