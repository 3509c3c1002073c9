package search

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

type SortKey string

const (
	SortRelevance  SortKey = "relevance"
	SortNewest     SortKey = "newest"
	SortPriceAsc   SortKey = "price-asc"
	SortPriceDesc  SortKey = "price-desc"
	SortRating     SortKey = "rating"
	SortPopularity SortKey = "popularity"
)

// DiscountTiers are the selectable percent-off thresholds.
var DiscountTiers = []int{10, 25, 50, 70}

// Facets is the full filter and sort selection of a search. Prices are in
// minor units; a zero MaxPrice means no upper bound.
type Facets struct {
	Query         string   `json:"query"`
	Category      string   `json:"category,omitempty"`
	Shop          string   `json:"shop,omitempty"`
	MinPrice      int64    `json:"minPrice,omitempty"`
	MaxPrice      int64    `json:"maxPrice,omitempty"`
	MinRating     float64  `json:"minRating,omitempty"`
	Sort          SortKey  `json:"sort"`
	InStock       bool     `json:"inStock,omitempty"`
	FastDelivery  bool     `json:"fastDelivery,omitempty"`
	DealOfDay     bool     `json:"dealOfDay,omitempty"`
	Fulfilled     bool     `json:"fulfilled,omitempty"`
	Brands        []string `json:"brands,omitempty"`
	DiscountTiers []int    `json:"discountTiers,omitempty"`
}

// ParseFacets reads facets from query parameters. Unknown sort keys, malformed
// numbers and unsupported discount tiers are validation errors.
func ParseFacets(v url.Values) (Facets, error) {
	f := Facets{
		Query:    strings.TrimSpace(v.Get("q")),
		Category: strings.TrimSpace(v.Get("category")),
		Shop:     strings.TrimSpace(v.Get("shop")),
		Sort:     SortKey(strings.TrimSpace(v.Get("sort"))),
	}
	if f.Sort == "" {
		f.Sort = SortRelevance
	}
	switch f.Sort {
	case SortRelevance, SortNewest, SortPriceAsc, SortPriceDesc, SortRating, SortPopularity:
	default:
		return Facets{}, domain.Validationf("unknown sort %q", f.Sort)
	}

	var err error
	if f.MinPrice, err = parseCents(v, "min_price"); err != nil {
		return Facets{}, err
	}
	if f.MaxPrice, err = parseCents(v, "max_price"); err != nil {
		return Facets{}, err
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return Facets{}, domain.Validation("min_price must not exceed max_price")
	}
	if raw := v.Get("min_rating"); raw != "" {
		f.MinRating, err = strconv.ParseFloat(raw, 64)
		if err != nil || f.MinRating < 0 || f.MinRating > 5 {
			return Facets{}, domain.Validation("min_rating must be between 0 and 5")
		}
	}

	f.InStock = parseFlag(v.Get("in_stock"))
	f.FastDelivery = parseFlag(v.Get("fast_delivery"))
	f.DealOfDay = parseFlag(v.Get("deal_of_day"))
	f.Fulfilled = parseFlag(v.Get("fulfilled"))

	for _, b := range v["brand"] {
		if b = strings.TrimSpace(b); b != "" {
			f.Brands = append(f.Brands, b)
		}
	}
	for _, raw := range v["discount"] {
		tier, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(raw), "+"))
		if err != nil || !validTier(tier) {
			return Facets{}, domain.Validationf("unsupported discount tier %q", raw)
		}
		f.DiscountTiers = append(f.DiscountTiers, tier)
	}
	return f, nil
}

// Apply filters and sorts candidates. The input slice is never modified and
// ties keep their candidate order.
func Apply(candidates []domain.Product, f Facets) []domain.Product {
	out := make([]domain.Product, 0, len(candidates))
	for _, p := range candidates {
		if matches(p, f) {
			out = append(out, p)
		}
	}

	var less func(a, b domain.Product) bool
	switch f.Sort {
	case SortNewest:
		less = func(a, b domain.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortPriceAsc:
		less = func(a, b domain.Product) bool { return a.EffectivePriceCents() < b.EffectivePriceCents() }
	case SortPriceDesc:
		less = func(a, b domain.Product) bool { return a.EffectivePriceCents() > b.EffectivePriceCents() }
	case SortRating:
		less = func(a, b domain.Product) bool { return a.Rating > b.Rating }
	case SortPopularity:
		less = func(a, b domain.Product) bool { return a.ReviewCount > b.ReviewCount }
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func matches(p domain.Product, f Facets) bool {
	if f.Category != "" && p.CategoryID != f.Category {
		return false
	}
	if f.Shop != "" && p.ShopID != f.Shop {
		return false
	}
	price := p.EffectivePriceCents()
	if price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && price > f.MaxPrice {
		return false
	}
	if f.MinRating > 0 && p.Rating < f.MinRating {
		return false
	}
	if f.InStock && !p.InStock {
		return false
	}
	if f.FastDelivery && !p.FastDelivery {
		return false
	}
	if f.DealOfDay && !p.DealOfDay {
		return false
	}
	if f.Fulfilled && !p.Fulfilled {
		return false
	}
	if len(f.Brands) > 0 && !containsFold(f.Brands, p.Brand) {
		return false
	}
	if len(f.DiscountTiers) > 0 {
		discount := p.DiscountPercent()
		hit := false
		for _, tier := range f.DiscountTiers {
			if discount >= tier {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Brands lists the distinct brands among products, sorted.
func Brands(products []domain.Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if p.Brand != "" && !seen[p.Brand] {
			seen[p.Brand] = true
			out = append(out, p.Brand)
		}
	}
	sort.Strings(out)
	return out
}

func parseCents(v url.Values, key string) (int64, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, domain.Validationf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func parseFlag(raw string) bool {
	ok, _ := strconv.ParseBool(raw)
	return ok
}

func validTier(t int) bool {
	for _, tier := range DiscountTiers {
		if tier == t {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
