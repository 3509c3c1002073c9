package domain

import "time"

// CartLine is one distinct purchasable selection. Lines are unique per
// (product id, color, size); quantity is always at least 1.
type CartLine struct {
	ID        string    `json:"id"`
	Product   Product   `json:"product"`
	Quantity  int       `json:"quantity"`
	Color     *string   `json:"color"`
	Size      *string   `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// LineKey identifies a cart line by its uniqueness key.
type LineKey struct {
	ProductID string
	Color     string
	Size      string
}

func (l CartLine) Key() LineKey {
	return NewLineKey(l.Product.ID, l.Color, l.Size)
}

func NewLineKey(productID string, color, size *string) LineKey {
	k := LineKey{ProductID: productID}
	if color != nil {
		k.Color = *color
	}
	if size != nil {
		k.Size = *size
	}
	return k
}

// TotalCents is quantity times the effective unit price.
func (l CartLine) TotalCents() int64 {
	return l.Product.EffectivePriceCents() * int64(l.Quantity)
}
