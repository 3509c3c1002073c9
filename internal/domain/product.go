package domain

import (
	"math"
	"time"
)

type Product struct {
	ID             string    `json:"id"`
	Key            string    `json:"key"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	PriceCents     int64     `json:"priceCents"`
	SalePriceCents *int64    `json:"salePriceCents,omitempty"`
	Currency       string    `json:"currency"`
	CategoryID     string    `json:"categoryId,omitempty"`
	ShopID         string    `json:"shopId,omitempty"`
	Brand          string    `json:"brand,omitempty"`
	Rating         float64   `json:"rating"`
	ReviewCount    int       `json:"reviewCount"`
	InStock        bool      `json:"inStock"`
	FastDelivery   bool      `json:"fastDelivery"`
	DealOfDay      bool      `json:"dealOfDay"`
	Fulfilled      bool      `json:"fulfilled"`
	Images         []string  `json:"images,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// EffectivePriceCents is the sale price when present, otherwise the list price.
func (p Product) EffectivePriceCents() int64 {
	if p.SalePriceCents != nil {
		return *p.SalePriceCents
	}
	return p.PriceCents
}

// DiscountPercent is round((1 - sale/price) * 100), or 0 without a usable sale price.
func (p Product) DiscountPercent() int {
	if p.SalePriceCents == nil || p.PriceCents <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(*p.SalePriceCents)/float64(p.PriceCents)) * 100))
}
