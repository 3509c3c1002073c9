package httpserver

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"
	"storefront/internal/service/cart"
	"storefront/internal/service/checkout"
	"storefront/internal/service/search"
	"storefront/internal/service/session"
	"storefront/internal/service/wishlist"
)

type sessionService interface {
	Signup(ctx context.Context, in session.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, session.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (session.Tokens, error)
	Lookup(ctx context.Context, accessToken string) (*domain.Customer, error)
	Logout(ctx context.Context, accessToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	AuthURL(provider, state string) (string, error)
	CompleteOAuth(ctx context.Context, provider, code string) (*domain.Customer, session.Tokens, error)
	UpdateProfile(ctx context.Context, customerID string, in session.ProfileInput) (*domain.Customer, error)
	Addresses(ctx context.Context, customerID string) ([]domain.Address, error)
	SaveAddress(ctx context.Context, customerID string, a domain.Address) (*domain.Address, error)
	IssueGuest(ctx context.Context) (token, guestID string, err error)
	LookupGuest(ctx context.Context, token string) (string, error)
}

type cartService interface {
	Open(ctx context.Context, id domain.Identity, sink notice.Sink) *cart.Engine
	Migrate(ctx context.Context, id domain.Identity, sink notice.Sink) (int, error)
}

type wishlistService interface {
	Open(ctx context.Context, id domain.Identity, sink notice.Sink) *wishlist.Synchronizer
	Reconcile(ctx context.Context, id domain.Identity, sink notice.Sink) (int, error)
}

type searchService interface {
	Search(ctx context.Context, id domain.Identity, f search.Facets, sink notice.Sink) search.Result
	Trending(ctx context.Context, limit int) []domain.PopularTerm
	Recent(ctx context.Context, id domain.Identity) []string
	History(ctx context.Context, customerID string, limit int) ([]domain.SearchHistoryEntry, error)
	ClearHistory(ctx context.Context, id domain.Identity) error
}

type checkoutService interface {
	Current(ctx context.Context, id domain.Identity) (checkout.Snapshot, error)
	SubmitBilling(ctx context.Context, id domain.Identity, b checkout.Billing, sink notice.Sink) (checkout.Snapshot, *checkout.PaymentRequest, error)
	PaymentSucceeded(ctx context.Context, id domain.Identity, reference string, sink notice.Sink) (checkout.Snapshot, error)
	Dismiss(ctx context.Context, id domain.Identity, sink notice.Sink) (checkout.Snapshot, error)
	Reset(ctx context.Context, id domain.Identity) (checkout.Snapshot, error)
}

type orderService interface {
	List(ctx context.Context, customerID string) ([]domain.Order, error)
	Get(ctx context.Context, customerID, id string) (*domain.Order, error)
}

type productService interface {
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type categoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type shopService interface {
	List(ctx context.Context) ([]domain.Shop, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Deps groups the services the HTTP layer needs.
type Deps struct {
	SessionSvc  sessionService
	CartSvc     cartService
	WishlistSvc wishlistService
	SearchSvc   searchService
	CheckoutSvc checkoutService
	OrderSvc    orderService
	ProductSvc  productService
	CategorySvc categoryService
	ShopSvc     shopService

	// Store keeps theme preferences and pending OAuth states.
	Store localstore.Store

	CORSOrigins       []string
	AuthRatePerMinute int
	Readiness         map[string]ReadinessCheck
}
