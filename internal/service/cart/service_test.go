package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"
)

// stubRepo is an in-memory remote cart with the same additive add semantics
// as the postgres repository.
type stubRepo struct {
	lines   map[string][]domain.CartLine
	nextID  int
	addErr  error
	setErr  error
	delErr  error
	failFor map[string]bool
	adds    int
}

func newStubRepo() *stubRepo {
	return &stubRepo{lines: make(map[string][]domain.CartLine), failFor: make(map[string]bool)}
}

func (s *stubRepo) ListLines(_ context.Context, customerID string) ([]domain.CartLine, error) {
	return cloneLines(s.lines[customerID]), nil
}

func (s *stubRepo) AddLine(_ context.Context, customerID string, product domain.Product, color, size *string, quantity int) (*domain.CartLine, error) {
	s.adds++
	if s.addErr != nil {
		return nil, s.addErr
	}
	if s.failFor[product.ID] {
		return nil, errors.New("insert failed")
	}
	key := domain.NewLineKey(product.ID, color, size)
	lines := s.lines[customerID]
	for i := range lines {
		if lines[i].Key() == key {
			lines[i].Quantity += quantity
			line := lines[i]
			return &line, nil
		}
	}
	s.nextID++
	line := domain.CartLine{ID: fmt.Sprintf("remote-%d", s.nextID), Product: product, Quantity: quantity, Color: color, Size: size}
	s.lines[customerID] = append(lines, line)
	return &line, nil
}

func (s *stubRepo) SetQuantity(_ context.Context, customerID, lineID string, quantity int) error {
	if s.setErr != nil {
		return s.setErr
	}
	for i, l := range s.lines[customerID] {
		if l.ID == lineID {
			s.lines[customerID][i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *stubRepo) DeleteLine(_ context.Context, customerID, lineID string) error {
	if s.delErr != nil {
		return s.delErr
	}
	lines := s.lines[customerID]
	for i, l := range lines {
		if l.ID == lineID {
			s.lines[customerID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *stubRepo) Clear(_ context.Context, customerID string) error {
	delete(s.lines, customerID)
	return nil
}

type stubProducts map[string]domain.Product

func (s stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func strPtr(v string) *string {
	return &v
}

func testProducts() stubProducts {
	sale := int64(800)
	return stubProducts{
		"p1": {ID: "p1", Name: "Tee", PriceCents: 1000, SalePriceCents: &sale},
		"p2": {ID: "p2", Name: "Mug", PriceCents: 500},
		"p3": {ID: "p3", Name: "Cap", PriceCents: 300},
	}
}

func countLevel(c *notice.Collector, level notice.Level) int {
	n := 0
	for _, item := range c.Notices() {
		if item.Level == level {
			n++
		}
	}
	return n
}

func TestGuestAdd_MergesSameSelection(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	svc := New(newStubRepo(), testProducts(), store, nil)
	guest := domain.Identity{GuestID: "g1"}

	e := svc.Open(ctx, guest, notice.NewCollector())
	if _, err := e.Add(ctx, "p1", 2, strPtr("red"), strPtr("M")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := e.Add(ctx, "p1", 3, strPtr("red"), strPtr("M")); err != nil {
		t.Fatalf("add again: %v", err)
	}
	if _, err := e.Add(ctx, "p1", 1, strPtr("blue"), strPtr("M")); err != nil {
		t.Fatalf("add other color: %v", err)
	}

	lines := e.Lines()
	if len(lines) != 2 || lines[0].Quantity != 5 {
		t.Fatalf("expected merged line with quantity 5, got %+v", lines)
	}
	if e.Count() != 6 || e.Total() != 6*800 {
		t.Fatalf("unexpected count=%d total=%d", e.Count(), e.Total())
	}

	reopened := svc.Open(ctx, guest, nil)
	if len(reopened.Lines()) != 2 {
		t.Fatalf("expected guest cart persisted, got %+v", reopened.Lines())
	}
	if !reopened.IsInCart("p1", strPtr("blue"), nil) || reopened.IsInCart("p1", strPtr("green"), nil) || !reopened.IsInCart("p1", nil, nil) {
		t.Fatalf("unexpected membership answers")
	}
}

func TestRemoteAdd_MergesSameSelection(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := New(repo, testProducts(), localstore.NewMemory(), nil)
	e := svc.Open(ctx, domain.Identity{CustomerID: "c1"}, nil)

	if _, err := e.Add(ctx, "p2", 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	line, err := e.Add(ctx, "p2", 4, strPtr(""), nil)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if line.Quantity != 5 || line.ID != "remote-1" {
		t.Fatalf("unexpected line %+v", line)
	}
	if len(repo.lines["c1"]) != 1 || len(e.Lines()) != 1 {
		t.Fatalf("expected one remote line, got %+v", repo.lines["c1"])
	}
}

func TestAdd_Validation(t *testing.T) {
	ctx := context.Background()
	svc := New(newStubRepo(), testProducts(), localstore.NewMemory(), nil)

	anon := svc.Open(ctx, domain.Identity{}, nil)
	if _, err := anon.Add(ctx, "p1", 1, nil, nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected sign-in required, got %v", err)
	}

	e := svc.Open(ctx, domain.Identity{GuestID: "g1"}, nil)
	if _, err := e.Add(ctx, "p1", 0, nil, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if _, err := e.Add(ctx, "missing", 1, nil, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown product, got %v", err)
	}
}

func TestRemoteFailure_RollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := New(repo, testProducts(), localstore.NewMemory(), nil)
	sink := notice.NewCollector()
	e := svc.Open(ctx, domain.Identity{CustomerID: "c1"}, sink)

	line, err := e.Add(ctx, "p1", 2, nil, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	repo.addErr = errors.New("gateway down")
	if _, err := e.Add(ctx, "p1", 3, nil, nil); err == nil {
		t.Fatalf("expected add error")
	}
	if got := e.Lines(); len(got) != 1 || got[0].Quantity != 2 {
		t.Fatalf("expected rollback to quantity 2, got %+v", got)
	}

	repo.setErr = errors.New("gateway down")
	if err := e.UpdateQuantity(ctx, line.ID, 9); err == nil {
		t.Fatalf("expected update error")
	}
	if e.Lines()[0].Quantity != 2 {
		t.Fatalf("expected quantity restored")
	}

	repo.delErr = errors.New("gateway down")
	if err := e.Remove(ctx, line.ID); err == nil {
		t.Fatalf("expected remove error")
	}
	if len(e.Lines()) != 1 {
		t.Fatalf("expected line restored after failed remove")
	}
	if countLevel(sink, notice.LevelError) != 3 {
		t.Fatalf("expected one error notice per failure, got %+v", sink.Notices())
	}
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	ctx := context.Background()
	svc := New(newStubRepo(), testProducts(), localstore.NewMemory(), nil)
	e := svc.Open(ctx, domain.Identity{GuestID: "g1"}, nil)

	line, err := e.Add(ctx, "p3", 2, nil, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.UpdateQuantity(ctx, line.ID, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(e.Lines()) != 0 {
		t.Fatalf("expected line removed, got %+v", e.Lines())
	}
	if err := e.Remove(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	svc := New(newStubRepo(), testProducts(), store, nil)
	guest := domain.Identity{GuestID: "g1"}
	e := svc.Open(ctx, guest, nil)
	if _, err := e.Add(ctx, "p3", 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if e.Count() != 0 || len(svc.Open(ctx, guest, nil).Lines()) != 0 {
		t.Fatalf("expected empty cart after clear")
	}
}

func TestMigrate_UnionWithSummedQuantitiesAndIdempotent(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	repo := newStubRepo()
	products := testProducts()
	svc := New(repo, products, store, nil)

	guest := svc.Open(ctx, domain.Identity{GuestID: "g1"}, nil)
	mustAdd(t, guest, "p1", 2, "red")
	mustAdd(t, guest, "p2", 1, "")

	customer := svc.Open(ctx, domain.Identity{CustomerID: "c1"}, nil)
	mustAdd(t, customer, "p1", 3, "red")
	mustAdd(t, customer, "p3", 1, "")

	id := domain.Identity{CustomerID: "c1", GuestID: "g1"}
	sink := notice.NewCollector()
	moved, err := svc.Migrate(ctx, id, sink)
	if err != nil || moved != 2 {
		t.Fatalf("migrate: moved=%d err=%v", moved, err)
	}

	got := map[string]int{}
	for _, l := range repo.lines["c1"] {
		got[l.Product.ID] = l.Quantity
	}
	if len(got) != 3 || got["p1"] != 5 || got["p2"] != 1 || got["p3"] != 1 {
		t.Fatalf("unexpected remote cart %+v", got)
	}
	var leftover []domain.CartLine
	if ok, _ := store.Get(ctx, localstore.GuestCartKey("g1"), &leftover); ok {
		t.Fatalf("expected guest cart deleted, got %+v", leftover)
	}

	addsBefore := repo.adds
	moved, err = svc.Migrate(ctx, id, sink)
	if err != nil || moved != 0 || repo.adds != addsBefore {
		t.Fatalf("second migration must be a no-op: moved=%d err=%v", moved, err)
	}
	if countLevel(sink, notice.LevelSuccess) != 1 {
		t.Fatalf("expected a single success notice, got %+v", sink.Notices())
	}
}

func TestMigrate_FailureStillClearsGuestCart(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	repo := newStubRepo()
	svc := New(repo, testProducts(), store, nil)

	guest := svc.Open(ctx, domain.Identity{GuestID: "g2"}, nil)
	mustAdd(t, guest, "p1", 1, "")
	mustAdd(t, guest, "p2", 1, "")
	repo.failFor["p1"] = true

	sink := notice.NewCollector()
	moved, err := svc.Migrate(ctx, domain.Identity{CustomerID: "c2", GuestID: "g2"}, sink)
	if err == nil || moved != 1 {
		t.Fatalf("expected partial failure, moved=%d err=%v", moved, err)
	}
	if countLevel(sink, notice.LevelError) != 1 {
		t.Fatalf("expected error notice, got %+v", sink.Notices())
	}
	var leftover []domain.CartLine
	if ok, _ := store.Get(ctx, localstore.GuestCartKey("g2"), &leftover); ok {
		t.Fatalf("expected guest cart deleted after failed migration")
	}
}

func mustAdd(t *testing.T, e *Engine, productID string, qty int, color string) {
	t.Helper()
	if _, err := e.Add(context.Background(), productID, qty, strPtr(color), nil); err != nil {
		t.Fatalf("add %s: %v", productID, err)
	}
}
