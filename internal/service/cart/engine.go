package cart

import (
	"context"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"

	"github.com/google/uuid"
)

// Engine is the cart of one identity for the lifetime of a request. Every
// mutation is applied in memory first, written through to the backing store,
// and rolled back if that write fails.
type Engine struct {
	svc      *Service
	identity domain.Identity
	sink     notice.Sink

	mu    sync.Mutex
	lines []domain.CartLine
}

// Add puts quantity units of the (product, color, size) selection in the cart,
// merging with an existing line of the same selection.
func (e *Engine) Add(ctx context.Context, productID string, quantity int, color, size *string) (*domain.CartLine, error) {
	if e.identity.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	if productID == "" {
		return nil, domain.Validation("productId required")
	}
	if quantity < 1 {
		return nil, domain.Validation("quantity must be positive")
	}
	product, err := e.svc.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	color, size = blankToNil(color), blankToNil(size)

	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := cloneLines(e.lines)
	key := domain.NewLineKey(product.ID, color, size)
	idx := e.indexByKey(key)
	if idx >= 0 {
		e.lines[idx].Quantity += quantity
	} else {
		e.lines = append(e.lines, domain.CartLine{
			ID:       uuid.NewString(),
			Product:  *product,
			Quantity: quantity,
			Color:    color,
			Size:     size,
		})
		idx = len(e.lines) - 1
	}

	if e.identity.Authenticated() {
		stored, err := e.svc.repo.AddLine(ctx, e.identity.CustomerID, *product, color, size, quantity)
		if err != nil {
			return nil, e.rollback(snapshot, "add", err, "Could not add item to cart")
		}
		e.lines[idx] = *stored
	} else if err := e.saveGuest(ctx); err != nil {
		return nil, e.rollback(snapshot, "add", err, "Could not add item to cart")
	}

	notice.Success(e.sink, "Added to cart")
	line := e.lines[idx]
	return &line, nil
}

// Remove deletes a line.
func (e *Engine) Remove(ctx context.Context, lineID string) error {
	if e.identity.Anonymous() {
		return domain.ErrUnauthenticated
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remove(ctx, lineID)
}

func (e *Engine) remove(ctx context.Context, lineID string) error {
	idx := e.indexByID(lineID)
	if idx < 0 {
		return domain.ErrNotFound
	}
	snapshot := cloneLines(e.lines)
	e.lines = append(e.lines[:idx], e.lines[idx+1:]...)

	var err error
	if e.identity.Authenticated() {
		err = e.svc.repo.DeleteLine(ctx, e.identity.CustomerID, lineID)
	} else {
		err = e.saveGuest(ctx)
	}
	if err != nil {
		return e.rollback(snapshot, "remove", err, "Could not remove item from cart")
	}
	notice.Info(e.sink, "Removed from cart")
	return nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	if e.identity.Anonymous() {
		return domain.ErrUnauthenticated
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if quantity <= 0 {
		return e.remove(ctx, lineID)
	}

	idx := e.indexByID(lineID)
	if idx < 0 {
		return domain.ErrNotFound
	}
	snapshot := cloneLines(e.lines)
	e.lines[idx].Quantity = quantity

	var err error
	if e.identity.Authenticated() {
		err = e.svc.repo.SetQuantity(ctx, e.identity.CustomerID, lineID, quantity)
	} else {
		err = e.saveGuest(ctx)
	}
	if err != nil {
		return e.rollback(snapshot, "update", err, "Could not update quantity")
	}
	return nil
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context) error {
	if e.identity.Anonymous() {
		return domain.ErrUnauthenticated
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := cloneLines(e.lines)
	e.lines = nil

	var err error
	if e.identity.Authenticated() {
		err = e.svc.repo.Clear(ctx, e.identity.CustomerID)
	} else {
		err = e.svc.store.Delete(ctx, localstore.GuestCartKey(e.identity.GuestID))
	}
	if err != nil {
		return e.rollback(snapshot, "clear", err, "Could not clear cart")
	}
	return nil
}

// Lines returns a copy of the current lines.
func (e *Engine) Lines() []domain.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneLines(e.lines)
}

// Total is the sum of line totals in minor units.
func (e *Engine) Total() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total int64
	for _, l := range e.lines {
		total += l.TotalCents()
	}
	return total
}

// Count is the number of units across all lines.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, l := range e.lines {
		n += l.Quantity
	}
	return n
}

// IsInCart reports whether a line for productID exists. Nil color or size
// match any value.
func (e *Engine) IsInCart(productID string, color, size *string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.lines {
		if l.Product.ID != productID {
			continue
		}
		if color != nil && deref(l.Color) != *color {
			continue
		}
		if size != nil && deref(l.Size) != *size {
			continue
		}
		return true
	}
	return false
}

func (e *Engine) rollback(snapshot []domain.CartLine, action string, err error, msg string) error {
	e.lines = snapshot
	e.svc.logger.Printf("cart: %s customer=%s guest=%s error=%v", action, e.identity.CustomerID, e.identity.GuestID, err)
	notice.Error(e.sink, msg)
	return err
}

func (e *Engine) saveGuest(ctx context.Context) error {
	return e.svc.store.Set(ctx, localstore.GuestCartKey(e.identity.GuestID), e.lines, e.svc.guestTTL)
}

func (e *Engine) indexByKey(key domain.LineKey) int {
	for i, l := range e.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

func (e *Engine) indexByID(id string) int {
	for i, l := range e.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func cloneLines(in []domain.CartLine) []domain.CartLine {
	if in == nil {
		return nil
	}
	out := make([]domain.CartLine, len(in))
	copy(out, in)
	return out
}

func blankToNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
