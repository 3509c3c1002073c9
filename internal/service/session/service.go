package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	addressrepo "storefront/internal/repository/address"
	custrepo "storefront/internal/repository/customer"
	tokenrepo "storefront/internal/repository/token"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

// Tokens is the credential pair handed to a signed-in client.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Store     localstore.Store
	Addresses addressrepo.Repository
	Mailer    Mailer
	Providers map[string]*OAuthProvider
	Logger    *log.Logger

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	GuestTTL   time.Duration
}

// Service is the identity provider: password and OAuth sign-in, sessions,
// profile updates and anonymous guest identities.
type Service struct {
	repo        custrepo.Repository
	addresses   addressrepo.Repository
	tokens      *tokenManager
	store       localstore.Store
	mailer      Mailer
	providers   map[string]*OAuthProvider
	logger      *log.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
	resetTTL    time.Duration
	guestTTL    time.Duration
	passwordMin int
}

func New(repo custrepo.Repository, tokens tokenrepo.Repository, opts Options) *Service {
	s := &Service{
		repo:        repo,
		addresses:   opts.Addresses,
		tokens:      newTokenManager(tokens),
		store:       opts.Store,
		mailer:      opts.Mailer,
		providers:   opts.Providers,
		logger:      opts.Logger,
		accessTTL:   48 * time.Hour,
		refreshTTL:  30 * 24 * time.Hour,
		resetTTL:    time.Hour,
		guestTTL:    30 * 24 * time.Hour,
		passwordMin: 8,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.store == nil {
		s.store = localstore.NewMemory()
	}
	if s.mailer == nil {
		s.mailer = NewLogMailer(s.logger)
	}
	if opts.AccessTTL > 0 {
		s.accessTTL = opts.AccessTTL
	}
	if opts.RefreshTTL > 0 {
		s.refreshTTL = opts.RefreshTTL
	}
	if opts.ResetTTL > 0 {
		s.resetTTL = opts.ResetTTL
	}
	if opts.GuestTTL > 0 {
		s.guestTTL = opts.GuestTTL
	}
	return s
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Signup registers a new customer.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Customer, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, domain.Customer{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("session: signup customer=%s", c.ID)
	return c, nil
}

// Login validates credentials and returns issued tokens plus the customer.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Customer, Tokens, error) {
	password = strings.TrimSpace(password)
	c, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, Tokens{}, ErrInvalidCredentials
		}
		return nil, Tokens{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, Tokens{}, ErrInvalidCredentials
	}
	tokens, err := s.issuePair(ctx, c.ID)
	if err != nil {
		return nil, Tokens{}, err
	}
	return c, tokens, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	meta, ok := s.tokens.Validate(ctx, refreshToken, tokenrepo.KindRefresh)
	if !ok {
		return Tokens{}, ErrInvalidToken
	}
	access, err := s.tokens.Issue(ctx, meta.CustomerID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refreshToken, ExpiresIn: s.AccessTTLSeconds()}, nil
}

// Lookup returns the customer bound to a valid access token.
func (s *Service) Lookup(ctx context.Context, accessToken string) (*domain.Customer, error) {
	meta, ok := s.tokens.Validate(ctx, accessToken, tokenrepo.KindAccess)
	if !ok {
		return nil, ErrInvalidToken
	}
	c, err := s.repo.GetByID(ctx, meta.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return c, nil
}

// Logout revokes an access token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	err := s.tokens.repo.Delete(ctx, accessToken)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// RequestPasswordReset mails a reset token. Unknown emails succeed silently so
// the endpoint cannot be used to probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	c, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	token, err := s.tokens.Issue(ctx, c.ID, tokenrepo.KindReset, s.resetTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, c.Email, token); err != nil {
		s.logger.Printf("session: send reset customer=%s error=%v", c.ID, err)
		return err
	}
	return nil
}

// ResetPassword sets a new password and revokes every session of the customer.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	meta, ok := s.tokens.Validate(ctx, token, tokenrepo.KindReset)
	if !ok {
		return ErrInvalidToken
	}
	password := strings.TrimSpace(newPassword)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, meta.CustomerID, string(hashed)); err != nil {
		return err
	}
	for _, kind := range []string{tokenrepo.KindReset, tokenrepo.KindAccess, tokenrepo.KindRefresh} {
		if err := s.tokens.repo.DeleteByCustomer(ctx, meta.CustomerID, kind); err != nil {
			s.logger.Printf("session: revoke kind=%s customer=%s error=%v", kind, meta.CustomerID, err)
		}
	}
	return nil
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

func (s *Service) UpdateProfile(ctx context.Context, customerID string, in ProfileInput) (*domain.Customer, error) {
	current, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	current.FirstName = strings.TrimSpace(in.FirstName)
	current.LastName = strings.TrimSpace(in.LastName)
	current.Phone = strings.TrimSpace(in.Phone)
	return s.repo.UpdateProfile(ctx, *current)
}

func (s *Service) Addresses(ctx context.Context, customerID string) ([]domain.Address, error) {
	if s.addresses == nil {
		return nil, nil
	}
	return s.addresses.ListByCustomer(ctx, customerID)
}

// SaveAddress validates and stores an address for the customer.
func (s *Service) SaveAddress(ctx context.Context, customerID string, a domain.Address) (*domain.Address, error) {
	if s.addresses == nil {
		return nil, errors.New("address repository unavailable")
	}
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Line) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.State) == "" || strings.TrimSpace(a.PostalCode) == "" {
		return nil, domain.Validation("name, line, city, state and postal code required")
	}
	a.ID = ""
	a.CustomerID = customerID
	return s.addresses.Create(ctx, a)
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func (s *Service) issuePair(ctx context.Context, customerID string) (Tokens, error) {
	access, err := s.tokens.Issue(ctx, customerID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := s.tokens.Issue(ctx, customerID, tokenrepo.KindRefresh, s.refreshTTL)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.AccessTTLSeconds()}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", domain.Validation("email required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.Validation("email is invalid")
	}
	return email, nil
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return domain.Validationf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return domain.Validation("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}

func unusablePasswordHash() (string, error) {
	raw, err := randomToken()
	if err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash placeholder password: %w", err)
	}
	return string(hashed), nil
}
