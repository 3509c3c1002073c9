// Package catalog holds the built-in sample catalog. It seeds fresh databases
// and stands in for the product collection when it cannot be reached.
package catalog

import (
	"strings"
	"time"

	"storefront/internal/domain"
)

// Catalog is an immutable product/category/shop set. Accessors return copies.
type Catalog struct {
	products   []domain.Product
	categories []domain.Category
	shops      []domain.Shop
}

func New(products []domain.Product, categories []domain.Category, shops []domain.Shop) *Catalog {
	return &Catalog{
		products:   cloneProducts(products),
		categories: append([]domain.Category(nil), categories...),
		shops:      append([]domain.Shop(nil), shops...),
	}
}

func (c *Catalog) Products() []domain.Product     { return cloneProducts(c.products) }
func (c *Catalog) Categories() []domain.Category { return append([]domain.Category(nil), c.categories...) }
func (c *Catalog) Shops() []domain.Shop           { return append([]domain.Shop(nil), c.shops...) }

// Search returns products whose name contains query (case-insensitive), newest first.
func (c *Catalog) Search(query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, cloneProduct(p))
		}
	}
	return out
}

func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	for i, p := range in {
		out[i] = cloneProduct(p)
	}
	return out
}

func cloneProduct(p domain.Product) domain.Product {
	if p.SalePriceCents != nil {
		v := *p.SalePriceCents
		p.SalePriceCents = &v
	}
	p.Images = append([]string(nil), p.Images...)
	return p
}

// Sample builds the demo catalog. Product category and shop ids reference the
// sample category and shop ids.
func Sample() *Catalog {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return base.AddDate(0, 0, n) }
	sale := func(v int64) *int64 { return &v }

	categories := []domain.Category{
		{ID: "sample-cat-electronics", Key: "electronics", Name: "Electronics", Slug: "electronics", CreatedAt: base},
		{ID: "sample-cat-fashion", Key: "fashion", Name: "Fashion", Slug: "fashion", CreatedAt: base},
		{ID: "sample-cat-home", Key: "home", Name: "Home & Kitchen", Slug: "home-kitchen", CreatedAt: base},
	}
	shops := []domain.Shop{
		{ID: "sample-shop-urban", Key: "urban-outlet", Name: "Urban Outlet", Rating: 4.6, CreatedAt: base},
		{ID: "sample-shop-gadget", Key: "gadget-hub", Name: "Gadget Hub", Rating: 4.2, CreatedAt: base},
	}
	products := []domain.Product{
		{
			ID: "sample-wireless-earbuds", Key: "wireless-earbuds", SKU: "SMP-EAR-01",
			Name: "Wireless Earbuds", Description: "Bluetooth earbuds with charging case",
			PriceCents: 499900, SalePriceCents: sale(249900), Currency: "INR",
			CategoryID: "sample-cat-electronics", ShopID: "sample-shop-gadget", Brand: "Sonique",
			Rating: 4.4, ReviewCount: 1280, InStock: true, FastDelivery: true, DealOfDay: true, Fulfilled: true,
			CreatedAt: day(10),
		},
		{
			ID: "sample-smart-watch", Key: "smart-watch", SKU: "SMP-WAT-01",
			Name: "Smart Watch", Description: "Fitness tracking smart watch",
			PriceCents: 899900, SalePriceCents: sale(699900), Currency: "INR",
			CategoryID: "sample-cat-electronics", ShopID: "sample-shop-gadget", Brand: "Pulse",
			Rating: 4.1, ReviewCount: 860, InStock: true, FastDelivery: true, Fulfilled: true,
			CreatedAt: day(8),
		},
		{
			ID: "sample-usb-charger", Key: "usb-charger", SKU: "SMP-CHG-01",
			Name: "65W USB-C Charger", Description: "Fast charger for laptops and phones",
			PriceCents: 199900, Currency: "INR",
			CategoryID: "sample-cat-electronics", ShopID: "sample-shop-gadget", Brand: "Voltix",
			Rating: 4.6, ReviewCount: 430, InStock: false,
			CreatedAt: day(3),
		},
		{
			ID: "sample-running-shoes", Key: "running-shoes", SKU: "SMP-SHO-01",
			Name: "Running Shoes", Description: "Lightweight running shoes",
			PriceCents: 349900, SalePriceCents: sale(174900), Currency: "INR",
			CategoryID: "sample-cat-fashion", ShopID: "sample-shop-urban", Brand: "Stride",
			Rating: 4.4, ReviewCount: 2100, InStock: true, FastDelivery: true,
			CreatedAt: day(12),
		},
		{
			ID: "sample-denim-jacket", Key: "denim-jacket", SKU: "SMP-JKT-01",
			Name: "Denim Jacket", Description: "Classic fit denim jacket",
			PriceCents: 279900, SalePriceCents: sale(251900), Currency: "INR",
			CategoryID: "sample-cat-fashion", ShopID: "sample-shop-urban", Brand: "Indigo",
			Rating: 3.9, ReviewCount: 310, InStock: true,
			CreatedAt: day(5),
		},
		{
			ID: "sample-cotton-tee", Key: "cotton-tee", SKU: "SMP-TEE-01",
			Name: "Cotton T-Shirt", Description: "Soft cotton crew neck tee",
			PriceCents: 79900, Currency: "INR",
			CategoryID: "sample-cat-fashion", ShopID: "sample-shop-urban", Brand: "Indigo",
			Rating: 4.0, ReviewCount: 95, InStock: true, Fulfilled: true,
			CreatedAt: day(1),
		},
		{
			ID: "sample-chef-knife", Key: "chef-knife", SKU: "SMP-KNF-01",
			Name: "Chef Knife", Description: "8 inch stainless steel chef knife",
			PriceCents: 149900, SalePriceCents: sale(44900), Currency: "INR",
			CategoryID: "sample-cat-home", ShopID: "sample-shop-urban", Brand: "Edgecraft",
			Rating: 4.8, ReviewCount: 540, InStock: true, DealOfDay: true,
			CreatedAt: day(7),
		},
		{
			ID: "sample-coffee-mug", Key: "coffee-mug", SKU: "SMP-MUG-01",
			Name: "Ceramic Coffee Mug", Description: "350ml ceramic mug",
			PriceCents: 49900, Currency: "INR",
			CategoryID: "sample-cat-home", ShopID: "sample-shop-urban", Brand: "Hearth",
			Rating: 4.2, ReviewCount: 75, InStock: true,
			CreatedAt: day(2),
		},
	}
	return New(products, categories, shops)
}
