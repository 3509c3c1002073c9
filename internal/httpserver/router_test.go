package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"
	"storefront/internal/service/cart"
	"storefront/internal/service/search"
	"storefront/internal/service/session"
	"storefront/internal/service/wishlist"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// stubSession resolves fixed access and guest tokens.
type stubSession struct {
	sessionService
	customers map[string]*domain.Customer
	guests    map[string]string
	loginErr  error
	loggedOut []string
}

func newStubSession() *stubSession {
	return &stubSession{
		customers: map[string]*domain.Customer{"access-1": {ID: "cust-1", Email: "a@example.com"}},
		guests:    map[string]string{"guest-token": "guest-1"},
	}
}

func (s *stubSession) Lookup(_ context.Context, token string) (*domain.Customer, error) {
	c, ok := s.customers[token]
	if !ok {
		return nil, session.ErrInvalidToken
	}
	return c, nil
}

func (s *stubSession) LookupGuest(_ context.Context, token string) (string, error) {
	id, ok := s.guests[token]
	if !ok {
		return "", session.ErrInvalidToken
	}
	return id, nil
}

func (s *stubSession) IssueGuest(context.Context) (string, string, error) {
	return "new-guest-token", "guest-new", nil
}

func (s *stubSession) Login(_ context.Context, email, password string) (*domain.Customer, session.Tokens, error) {
	if s.loginErr != nil {
		return nil, session.Tokens{}, s.loginErr
	}
	if password != "correct-horse" {
		return nil, session.Tokens{}, session.ErrInvalidCredentials
	}
	return s.customers["access-1"], session.Tokens{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 3600}, nil
}

func (s *stubSession) Refresh(_ context.Context, refreshToken string) (session.Tokens, error) {
	if refreshToken != "refresh-1" {
		return session.Tokens{}, session.ErrInvalidToken
	}
	return session.Tokens{AccessToken: "access-1", RefreshToken: refreshToken, ExpiresIn: 3600}, nil
}

func (s *stubSession) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func (s *stubSession) AuthURL(provider, state string) (string, error) {
	if provider != session.ProviderGitHub {
		return "", session.ErrUnknownProvider
	}
	return "https://provider.example/authorize?state=" + url.QueryEscape(state), nil
}

func (s *stubSession) CompleteOAuth(_ context.Context, provider, code string) (*domain.Customer, session.Tokens, error) {
	if code != "good-code" {
		return nil, session.Tokens{}, session.ErrInvalidToken
	}
	return s.customers["access-1"], session.Tokens{AccessToken: "access-1", ExpiresIn: 3600}, nil
}

type memoryCartRepo struct {
	mu    sync.Mutex
	lines map[string][]domain.CartLine
	next  int
}

func (r *memoryCartRepo) ListLines(_ context.Context, customerID string) ([]domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CartLine(nil), r.lines[customerID]...), nil
}

func (r *memoryCartRepo) AddLine(_ context.Context, customerID string, p domain.Product, color, size *string, qty int) (*domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.NewLineKey(p.ID, color, size)
	for i, l := range r.lines[customerID] {
		if l.Key() == key {
			r.lines[customerID][i].Quantity += qty
			out := r.lines[customerID][i]
			return &out, nil
		}
	}
	r.next++
	line := domain.CartLine{ID: fmt.Sprintf("line-%d", r.next), Product: p, Quantity: qty, Color: color, Size: size}
	r.lines[customerID] = append(r.lines[customerID], line)
	return &line, nil
}

func (r *memoryCartRepo) SetQuantity(context.Context, string, string, int) error { return nil }
func (r *memoryCartRepo) DeleteLine(context.Context, string, string) error      { return nil }
func (r *memoryCartRepo) Clear(_ context.Context, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lines, customerID)
	return nil
}

type memoryWishlistRepo struct {
	mu  sync.Mutex
	ids map[string][]string
}

func (r *memoryWishlistRepo) List(_ context.Context, customerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids[customerID]...), nil
}

func (r *memoryWishlistRepo) Add(_ context.Context, customerID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.ids[customerID] {
		if id == productID {
			return nil
		}
	}
	r.ids[customerID] = append(r.ids[customerID], productID)
	return nil
}

func (r *memoryWishlistRepo) Remove(_ context.Context, customerID, productID string) error {
	return nil
}

type stubProducts struct{}

func (stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if id != "p-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.Product{ID: "p-1", Name: "Running Shoes", PriceCents: 499900, Currency: "INR"}, nil
}

type stubSearch struct {
	searchService
	got search.Facets
}

func (s *stubSearch) Search(_ context.Context, _ domain.Identity, f search.Facets, sink notice.Sink) search.Result {
	s.got = f
	notice.Info(sink, "API unavailable, showing sample products")
	return search.Result{Products: []domain.Product{}, Facets: f, Fallback: true}
}

type testEnv struct {
	router   *gin.Engine
	session  *stubSession
	carts    *memoryCartRepo
	wishes   *memoryWishlistRepo
	store    *localstore.Memory
	searcher *stubSearch
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	env := &testEnv{
		session:  newStubSession(),
		carts:    &memoryCartRepo{lines: make(map[string][]domain.CartLine)},
		wishes:   &memoryWishlistRepo{ids: make(map[string][]string)},
		store:    localstore.NewMemory(),
		searcher: &stubSearch{},
	}
	deps := Deps{
		SessionSvc:        env.session,
		CartSvc:           cart.New(env.carts, stubProducts{}, env.store, logDiscard()),
		WishlistSvc:       wishlist.New(env.wishes, env.store, logDiscard()),
		SearchSvc:         env.searcher,
		Store:             env.store,
		AuthRatePerMinute: 100,
	}
	if mutate != nil {
		mutate(&deps)
	}
	router, err := buildRouter(logDiscard(), nil, deps)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	env.router = router
	return env
}

type testResponse struct {
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Notices []notice.Notice `json:"notices"`
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var resp testResponse
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

var (
	guestHeaders    = map[string]string{guestTokenHeader: "guest-token"}
	customerHeaders = map[string]string{"Authorization": "Bearer access-1"}
	bothHeaders     = map[string]string{"Authorization": "Bearer access-1", guestTokenHeader: "guest-token"}
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, _ := env.do(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyzWithoutDB(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, _ := env.do(t, http.MethodGet, "/readyz", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestBuildRouterRequiresSession(t *testing.T) {
	if _, err := buildRouter(logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error without session service")
	}
}

func TestMutationWithoutIdentityRequiresSignIn(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/cart/lines"},
		{http.MethodDelete, "/cart"},
		{http.MethodPost, "/wishlist"},
		{http.MethodPut, "/preferences/theme"},
	} {
		rec, resp := env.do(t, tc.method, tc.path, map[string]string{"productId": "p-1"}, nil)
		if rec.Code != http.StatusUnauthorized || resp.Code != "SIGN_IN_REQUIRED" {
			t.Fatalf("%s %s: expected 401 SIGN_IN_REQUIRED, got %d %q", tc.method, tc.path, rec.Code, resp.Code)
		}
	}
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/cart", nil, map[string]string{"Authorization": "Bearer nope"})
	if rec.Code != http.StatusUnauthorized || resp.Code != "INVALID_TOKEN" {
		t.Fatalf("expected INVALID_TOKEN, got %d %q", rec.Code, resp.Code)
	}
}

func TestUnknownGuestTokenIsIgnored(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, _ := env.do(t, http.MethodGet, "/cart", nil, map[string]string{guestTokenHeader: "stale"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous cart read, got %d", rec.Code)
	}
}

func TestGuestCartAddMergesQuantities(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 2; i++ {
		rec, resp := env.do(t, http.MethodPost, "/cart/lines", map[string]interface{}{"productId": "p-1", "quantity": 2, "size": "M"}, guestHeaders)
		if rec.Code != http.StatusOK {
			t.Fatalf("add %d: expected 200, got %d %s", i, rec.Code, rec.Body.String())
		}
		_ = resp
	}
	_, resp := env.do(t, http.MethodGet, "/cart", nil, guestHeaders)
	var view struct {
		Lines []domain.CartLine `json:"lines"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(view.Lines) != 1 || view.Count != 4 {
		t.Fatalf("expected one line with quantity 4, got %+v", view)
	}
}

func TestCartAddUnknownProductIsValidationError(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodPost, "/cart/lines", map[string]string{"productId": "missing"}, guestHeaders)
	if rec.Code != http.StatusBadRequest || resp.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected 400 VALIDATION_FAILED, got %d %q", rec.Code, resp.Code)
	}
}

func TestSignedInRequestMigratesGuestState(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/lines", map[string]string{"productId": "p-1"}, guestHeaders)
	env.do(t, http.MethodPost, "/wishlist", map[string]string{"productId": "p-9"}, guestHeaders)

	rec, resp := env.do(t, http.MethodGet, "/cart", nil, bothHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(env.carts.lines["cust-1"]) != 1 {
		t.Fatalf("expected guest line in customer cart, got %+v", env.carts.lines)
	}
	if len(env.wishes.ids["cust-1"]) != 1 || env.wishes.ids["cust-1"][0] != "p-9" {
		t.Fatalf("expected guest wishlist pushed, got %+v", env.wishes.ids)
	}
	if len(resp.Notices) != 1 || resp.Notices[0].Level != notice.LevelSuccess {
		t.Fatalf("expected one migration notice, got %+v", resp.Notices)
	}

	// A second signed-in request finds nothing left to move.
	_, resp = env.do(t, http.MethodGet, "/cart", nil, bothHeaders)
	if len(resp.Notices) != 0 || env.carts.lines["cust-1"][0].Quantity != 1 {
		t.Fatalf("expected idempotent migration, notices=%+v lines=%+v", resp.Notices, env.carts.lines["cust-1"])
	}
}

func TestLoginMigratesGuestCart(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/lines", map[string]string{"productId": "p-1"}, guestHeaders)

	rec, resp := env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@example.com", "password": "correct-horse"}, guestHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if len(env.carts.lines["cust-1"]) != 1 {
		t.Fatalf("expected migrated line, got %+v", env.carts.lines)
	}
	if len(resp.Notices) == 0 {
		t.Fatalf("expected migration notice")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@example.com", "password": "wrong"}, nil)
	if rec.Code != http.StatusUnauthorized || resp.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %d %q", rec.Code, resp.Code)
	}
}

func TestLoginUnexpectedErrorIs500(t *testing.T) {
	env := newTestEnv(t, nil)
	env.session.loginErr = errors.New("db down")
	rec, resp := env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@example.com", "password": "x"}, nil)
	if rec.Code != http.StatusInternalServerError || resp.Code != "INTERNAL" {
		t.Fatalf("expected 500 INTERNAL, got %d %q", rec.Code, resp.Code)
	}
}

func TestIssueGuest(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodPost, "/auth/guest", nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(resp.Data, &out); err != nil || out["guestToken"] != "new-guest-token" {
		t.Fatalf("unexpected guest payload %s err=%v", resp.Data, err)
	}
}

func TestWishlistDuplicateIsConflictWithInfoNotice(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/wishlist", map[string]string{"productId": "p-1"}, guestHeaders)
	rec, resp := env.do(t, http.MethodPost, "/wishlist", map[string]string{"productId": "p-1"}, guestHeaders)
	if rec.Code != http.StatusConflict || resp.Code != "ALREADY_IN_WISHLIST" {
		t.Fatalf("expected 409 ALREADY_IN_WISHLIST, got %d %q", rec.Code, resp.Code)
	}
	if len(resp.Notices) != 1 || resp.Notices[0].Level != notice.LevelInfo {
		t.Fatalf("expected one info notice, got %+v", resp.Notices)
	}
}

func TestThemePreference(t *testing.T) {
	env := newTestEnv(t, nil)

	_, resp := env.do(t, http.MethodGet, "/preferences/theme", nil, nil)
	if string(resp.Data) != `{"theme":"light"}` {
		t.Fatalf("expected light default, got %s", resp.Data)
	}

	rec, resp := env.do(t, http.MethodPut, "/preferences/theme", map[string]string{"theme": "blue"}, guestHeaders)
	if rec.Code != http.StatusBadRequest || resp.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected validation error, got %d %q", rec.Code, resp.Code)
	}

	env.do(t, http.MethodPut, "/preferences/theme", map[string]string{"theme": "dark"}, guestHeaders)
	_, resp = env.do(t, http.MethodGet, "/preferences/theme", nil, guestHeaders)
	if string(resp.Data) != `{"theme":"dark"}` {
		t.Fatalf("expected stored dark theme, got %s", resp.Data)
	}
}

func TestSearchPassesFacetsAndNotices(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/search?q=shoes&sort=price-asc&min_price=100", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if env.searcher.got.Query != "shoes" || env.searcher.got.Sort != search.SortPriceAsc || env.searcher.got.MinPrice != 100 {
		t.Fatalf("unexpected facets %+v", env.searcher.got)
	}
	if len(resp.Notices) != 1 {
		t.Fatalf("expected fallback notice, got %+v", resp.Notices)
	}

	rec, resp = env.do(t, http.MethodGet, "/search?sort=cheapest", nil, nil)
	if rec.Code != http.StatusBadRequest || resp.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected validation error for bad sort, got %d %q", rec.Code, resp.Code)
	}
}

func TestSearchHistoryRequiresCustomer(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/search/history", nil, guestHeaders)
	if rec.Code != http.StatusUnauthorized || resp.Code != "SIGN_IN_REQUIRED" {
		t.Fatalf("expected SIGN_IN_REQUIRED, got %d %q", rec.Code, resp.Code)
	}
}

func TestOAuthRoundTripMigratesGuest(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/lines", map[string]string{"productId": "p-1"}, guestHeaders)

	rec, _ := env.do(t, http.MethodGet, "/auth/oauth/github", nil, guestHeaders)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")

	rec, resp := env.do(t, http.MethodGet, "/auth/oauth/github/callback?code=good-code&state="+state, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if len(env.carts.lines["cust-1"]) != 1 || len(resp.Notices) == 0 {
		t.Fatalf("expected migrated cart and notice, lines=%+v notices=%+v", env.carts.lines, resp.Notices)
	}

	rec, resp = env.do(t, http.MethodGet, "/auth/oauth/github/callback?code=good-code&state="+state, nil, nil)
	if rec.Code != http.StatusUnauthorized || resp.Code != "INVALID_TOKEN" {
		t.Fatalf("expected reused state to be rejected, got %d %q", rec.Code, resp.Code)
	}
}

func TestOAuthUnknownProvider(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/auth/oauth/myspace", nil, nil)
	if rec.Code != http.StatusNotFound || resp.Code != "UNKNOWN_PROVIDER" {
		t.Fatalf("expected UNKNOWN_PROVIDER, got %d %q", rec.Code, resp.Code)
	}
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.AuthRatePerMinute = 2 })
	for i := 0; i < 2; i++ {
		if rec, _ := env.do(t, http.MethodPost, "/auth/guest", nil, nil); rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rec.Code)
		}
	}
	rec, resp := env.do(t, http.MethodPost, "/auth/guest", nil, nil)
	if rec.Code != http.StatusTooManyRequests || resp.Code != "RATE_LIMITED" {
		t.Fatalf("expected 429 RATE_LIMITED, got %d %q", rec.Code, resp.Code)
	}
	if rec, _ := env.do(t, http.MethodGet, "/cart", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("non-auth routes should not be limited, got %d", rec.Code)
	}
}

func TestProfileRequiresCustomer(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, _ := env.do(t, http.MethodGet, "/me", nil, guestHeaders)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec, resp := env.do(t, http.MethodGet, "/me", nil, customerHeaders)
	if rec.Code != http.StatusOK || !bytes.Contains(resp.Data, []byte(`"cust-1"`)) {
		t.Fatalf("expected profile, got %d %s", rec.Code, resp.Data)
	}
}

var staleHeaders = map[string]string{"Authorization": "Bearer expired-access"}

func TestRefreshWithStaleBearerToken(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": "refresh-1"}, staleHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var tokens session.Tokens
	if err := json.Unmarshal(resp.Data, &tokens); err != nil || tokens.AccessToken != "access-1" {
		t.Fatalf("unexpected tokens %s err=%v", resp.Data, err)
	}
}

func TestLoginWithStaleBearerTokenMigratesGuest(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/cart/lines", map[string]string{"productId": "p-1"}, guestHeaders)

	headers := map[string]string{"Authorization": "Bearer expired-access", guestTokenHeader: "guest-token"}
	rec, _ := env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@example.com", "password": "correct-horse"}, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if len(env.carts.lines["cust-1"]) != 1 {
		t.Fatalf("expected migrated line, got %+v", env.carts.lines)
	}
}

func TestLogoutWithStaleBearerTokenSucceeds(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, _ := env.do(t, http.MethodPost, "/auth/logout", nil, staleHeaders)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d %s", rec.Code, rec.Body.String())
	}
	if len(env.session.loggedOut) != 1 || env.session.loggedOut[0] != "expired-access" {
		t.Fatalf("expected stale token to be revoked, got %v", env.session.loggedOut)
	}
}

func TestStaleBearerTokenStillRejectedOutsideAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/wishlist", nil, staleHeaders)
	if rec.Code != http.StatusUnauthorized || resp.Code != "INVALID_TOKEN" {
		t.Fatalf("expected INVALID_TOKEN, got %d %q", rec.Code, resp.Code)
	}
}
