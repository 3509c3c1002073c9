// Package importer loads product catalogs from CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryStore interface {
	List(ctx context.Context) ([]domain.Category, error)
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

type ShopStore interface {
	List(ctx context.Context) ([]domain.Shop, error)
	Upsert(ctx context.Context, s domain.Shop) (*domain.Shop, error)
}

// CSVImporter reads catalog CSV files and upserts products by key. Category
// and shop columns hold keys; unknown keys are created on the fly.
type CSVImporter struct {
	reader     *csv.Reader
	products   ProductWriter
	categories CategoryStore
	shops      ShopStore

	categoryIDs map[string]string
	shopIDs     map[string]string
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryStore, shops ShopStore) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // continuation rows may be short
	return &CSVImporter{
		reader:     csvr,
		products:   products,
		categories: categories,
		shops:      shops,
	}
}

// Run parses CSV rows and upserts one product per key. Rows without a key
// contribute extra images to the product above them.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["key"]; !ok {
		return 0, errors.New("read headers: missing key column")
	}
	if err := i.loadLookups(ctx); err != nil {
		return 0, err
	}

	var (
		current  *domain.Product
		imported int
		line     = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		if key := pick(record, index, "key"); key != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current, err = parseProduct(record, index)
			if err != nil {
				return imported, fmt.Errorf("row %d: %w", line, err)
			}
			continue
		}

		if img := pick(record, index, "image"); img != "" && current != nil {
			current.Images = append(current.Images, img)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) loadLookups(ctx context.Context) error {
	i.categoryIDs = make(map[string]string)
	i.shopIDs = make(map[string]string)
	if i.categories != nil {
		cats, err := i.categories.List(ctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		for _, c := range cats {
			i.categoryIDs[c.Key] = c.ID
		}
	}
	if i.shops != nil {
		shops, err := i.shops.List(ctx)
		if err != nil {
			return fmt.Errorf("list shops: %w", err)
		}
		for _, s := range shops {
			i.shopIDs[s.Key] = s.ID
		}
	}
	return nil
}

func (i *CSVImporter) save(ctx context.Context, p *domain.Product) error {
	if p.Name == "" || p.SKU == "" || p.PriceCents <= 0 || p.Currency == "" {
		return fmt.Errorf("invalid product row (missing required fields) for key %q", p.Key)
	}

	var err error
	if p.CategoryID, err = i.categoryID(ctx, p.CategoryID); err != nil {
		return fmt.Errorf("category for %q: %w", p.Key, err)
	}
	if p.ShopID, err = i.shopID(ctx, p.ShopID); err != nil {
		return fmt.Errorf("shop for %q: %w", p.Key, err)
	}

	if _, err := i.products.Upsert(ctx, *p); err != nil {
		return fmt.Errorf("upsert product %q: %w", p.Key, err)
	}
	return nil
}

// categoryID maps a category key to its id, creating the category if needed.
func (i *CSVImporter) categoryID(ctx context.Context, key string) (string, error) {
	if key == "" || i.categories == nil {
		return "", nil
	}
	if id, ok := i.categoryIDs[key]; ok {
		return id, nil
	}
	c, err := i.categories.Upsert(ctx, domain.Category{Key: key, Name: titleFromKey(key), Slug: key})
	if err != nil {
		return "", err
	}
	i.categoryIDs[key] = c.ID
	return c.ID, nil
}

func (i *CSVImporter) shopID(ctx context.Context, key string) (string, error) {
	if key == "" || i.shops == nil {
		return "", nil
	}
	if id, ok := i.shopIDs[key]; ok {
		return id, nil
	}
	s, err := i.shops.Upsert(ctx, domain.Shop{Key: key, Name: titleFromKey(key)})
	if err != nil {
		return "", err
	}
	i.shopIDs[key] = s.ID
	return s.ID, nil
}

// parseProduct reads a keyed row. CategoryID and ShopID temporarily carry keys
// until save resolves them.
func parseProduct(record []string, index map[string]int) (*domain.Product, error) {
	p := &domain.Product{
		Key:         pick(record, index, "key"),
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		SKU:         pick(record, index, "sku"),
		Currency:    strings.ToUpper(pick(record, index, "currency")),
		CategoryID:  pick(record, index, "category"),
		ShopID:      pick(record, index, "shop"),
		Brand:       pick(record, index, "brand"),
		InStock:     true,
	}

	var err error
	if p.PriceCents, err = parseInt(record, index, "price_cents"); err != nil {
		return nil, err
	}
	if raw := pick(record, index, "sale_price_cents"); raw != "" {
		sale, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || sale < 0 {
			return nil, fmt.Errorf("invalid sale_price_cents %q", raw)
		}
		p.SalePriceCents = &sale
	}
	if raw := pick(record, index, "rating"); raw != "" {
		if p.Rating, err = strconv.ParseFloat(raw, 64); err != nil || p.Rating < 0 || p.Rating > 5 {
			return nil, fmt.Errorf("invalid rating %q", raw)
		}
	}
	reviews, err := parseInt(record, index, "review_count")
	if err != nil {
		return nil, err
	}
	p.ReviewCount = int(reviews)
	if raw := pick(record, index, "in_stock"); raw != "" {
		p.InStock = parseBool(raw)
	}
	p.FastDelivery = parseBool(pick(record, index, "fast_delivery"))
	p.DealOfDay = parseBool(pick(record, index, "deal_of_day"))
	p.Fulfilled = parseBool(pick(record, index, "fulfilled"))
	if img := pick(record, index, "image"); img != "" {
		p.Images = []string{img}
	}
	return p, nil
}

func parseInt(record []string, index map[string]int, key string) (int64, error) {
	raw := pick(record, index, key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func titleFromKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
