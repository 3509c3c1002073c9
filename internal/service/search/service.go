// Package search composes free-text product search with facet filtering and
// sorting, and records search history for signed-in customers.
package search

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"
	productrepo "storefront/internal/repository/product"
	searchrepo "storefront/internal/repository/search"

	"golang.org/x/sync/errgroup"
)

const (
	recentLimit           = 10
	defaultCandidateLimit = 200
)

type productSearcher interface {
	Search(ctx context.Context, f productrepo.SearchFilter) ([]domain.Product, error)
}

type categoryLister interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type shopLister interface {
	List(ctx context.Context) ([]domain.Shop, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Products   productSearcher
	Categories categoryLister
	Shops      shopLister
	History    searchrepo.Repository
	Store      localstore.Store
	// Fallback stands in for the gateway when candidates cannot be fetched.
	Fallback *catalog.Catalog
	Logger   *log.Logger
}

type Service struct {
	products       productSearcher
	categories     categoryLister
	shops          shopLister
	history        searchrepo.Repository
	store          localstore.Store
	fallback       *catalog.Catalog
	logger         *log.Logger
	candidateLimit int
}

func New(d Deps) *Service {
	s := &Service{
		products:       d.Products,
		categories:     d.Categories,
		shops:          d.Shops,
		history:        d.History,
		store:          d.Store,
		fallback:       d.Fallback,
		logger:         d.Logger,
		candidateLimit: defaultCandidateLimit,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.fallback == nil {
		s.fallback = catalog.New(nil, nil, nil)
	}
	return s
}

// Result is one page of search output together with the facet inputs the
// client needs to render filters.
type Result struct {
	Products   []domain.Product  `json:"products"`
	Total      int               `json:"total"`
	Categories []domain.Category `json:"categories"`
	Shops      []domain.Shop     `json:"shops"`
	Brands     []string          `json:"brands"`
	Facets     Facets            `json:"facets"`
	Fallback   bool              `json:"fallback"`
}

// Search fetches name matches for f.Query, then filters and sorts them. If the
// candidate fetch fails the built-in sample catalog is used and an
// "API unavailable" notice is emitted.
func (s *Service) Search(ctx context.Context, id domain.Identity, f Facets, sink notice.Sink) Result {
	var (
		candidates []domain.Product
		categories []domain.Category
		shops      []domain.Shop
		g          errgroup.Group
	)
	g.Go(func() error {
		var err error
		candidates, err = s.products.Search(ctx, candidateFilter(f, s.candidateLimit))
		if err != nil {
			return fmt.Errorf("fetch candidates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if categories, err = s.categories.List(ctx); err != nil {
			s.logger.Printf("search: list categories error=%v", err)
			categories = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if shops, err = s.shops.List(ctx); err != nil {
			s.logger.Printf("search: list shops error=%v", err)
			shops = nil
		}
		return nil
	})

	res := Result{Facets: f}
	if err := g.Wait(); err != nil {
		s.logger.Printf("search: query=%q falling back to sample catalog error=%v", f.Query, err)
		notice.Error(sink, "API unavailable, showing sample products")
		candidates = s.fallback.Search(f.Query)
		categories = s.fallback.Categories()
		shops = s.fallback.Shops()
		res.Fallback = true
	}
	if categories == nil {
		categories = s.fallback.Categories()
	}
	if shops == nil {
		shops = s.fallback.Shops()
	}

	res.Products = Apply(candidates, f)
	res.Total = len(res.Products)
	res.Categories = categories
	res.Shops = shops
	res.Brands = Brands(candidates)

	if f.Query != "" {
		s.pushRecent(ctx, id, f.Query)
		if id.Authenticated() && !res.Fallback {
			s.record(ctx, id.CustomerID, f.Query)
		}
	}
	return res
}

// candidateFilter pushes the facets the repository can evaluate into the
// candidate fetch, so the row cap applies after them.
func candidateFilter(f Facets, limit int) productrepo.SearchFilter {
	return productrepo.SearchFilter{
		Query:         f.Query,
		CategoryID:    f.Category,
		ShopID:        f.Shop,
		MinPriceCents: f.MinPrice,
		MaxPriceCents: f.MaxPrice,
		Limit:         limit,
	}
}

// record writes history and popularity. Failures are only logged.
func (s *Service) record(ctx context.Context, customerID, query string) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordHistory(ctx, customerID, query); err != nil {
		s.logger.Printf("search: record history customer=%s error=%v", customerID, err)
	}
	if err := s.history.IncrementPopular(ctx, query); err != nil {
		s.logger.Printf("search: increment popular term=%q error=%v", query, err)
	}
}

// Trending returns the most searched terms. It degrades to an empty list.
func (s *Service) Trending(ctx context.Context, limit int) []domain.PopularTerm {
	if s.history == nil {
		return []domain.PopularTerm{}
	}
	terms, err := s.history.Popular(ctx, limit)
	if err != nil {
		s.logger.Printf("search: trending error=%v", err)
		return []domain.PopularTerm{}
	}
	if terms == nil {
		terms = []domain.PopularTerm{}
	}
	return terms
}

// Recent returns the session's recent queries, newest first.
func (s *Service) Recent(ctx context.Context, id domain.Identity) []string {
	out := []string{}
	key := id.SessionKey()
	if key == "" || s.store == nil {
		return out
	}
	if _, err := s.store.Get(ctx, localstore.RecentSearchesKey(key), &out); err != nil {
		s.logger.Printf("search: recent session=%s error=%v", key, err)
		return []string{}
	}
	return out
}

func (s *Service) History(ctx context.Context, customerID string, limit int) ([]domain.SearchHistoryEntry, error) {
	if s.history == nil {
		return []domain.SearchHistoryEntry{}, nil
	}
	entries, err := s.history.ListHistory(ctx, customerID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.SearchHistoryEntry{}
	}
	return entries, nil
}

// ClearHistory removes the customer's stored history and the session's recent list.
func (s *Service) ClearHistory(ctx context.Context, id domain.Identity) error {
	if s.store != nil && id.SessionKey() != "" {
		if err := s.store.Delete(ctx, localstore.RecentSearchesKey(id.SessionKey())); err != nil {
			s.logger.Printf("search: clear recent session=%s error=%v", id.SessionKey(), err)
		}
	}
	if !id.Authenticated() || s.history == nil {
		return nil
	}
	return s.history.ClearHistory(ctx, id.CustomerID)
}

func (s *Service) pushRecent(ctx context.Context, id domain.Identity, query string) {
	key := id.SessionKey()
	if key == "" || s.store == nil {
		return
	}
	recent := PushRecent(s.Recent(ctx, id), query)
	if err := s.store.Set(ctx, localstore.RecentSearchesKey(key), recent, 0); err != nil {
		s.logger.Printf("search: save recent session=%s error=%v", key, err)
	}
}

// PushRecent puts query at the front of recent, dropping case-insensitive
// duplicates and keeping at most ten entries.
func PushRecent(recent []string, query string) []string {
	query = strings.TrimSpace(query)
	out := make([]string, 0, recentLimit)
	out = append(out, query)
	for _, q := range recent {
		if len(out) == recentLimit {
			break
		}
		if !strings.EqualFold(q, query) {
			out = append(out, q)
		}
	}
	return out
}
