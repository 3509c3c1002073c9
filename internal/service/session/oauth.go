package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storefront/internal/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// OAuthProvider is one redirect sign-in provider: the oauth2 client config plus
// the endpoint that returns the signed-in user's profile. EmailsURL, when set,
// lists the user's addresses and is consulted if the profile hides the email.
type OAuthProvider struct {
	Config     *oauth2.Config
	ProfileURL string
	EmailsURL  string
}

func GoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		ProfileURL: "https://openidconnect.googleapis.com/v1/userinfo",
	}
}

func GitHubProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.GitHub,
			Scopes:       []string{"read:user", "user:email"},
		},
		ProfileURL: "https://api.github.com/user",
		EmailsURL:  "https://api.github.com/user/emails",
	}
}

type oauthEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type oauthProfile struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (p oauthProfile) names() (first, last string) {
	if p.GivenName != "" || p.FamilyName != "" {
		return p.GivenName, p.FamilyName
	}
	parts := strings.Fields(p.Name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// AuthURL returns the provider consent page the client should be redirected to.
func (s *Service) AuthURL(provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok || p == nil {
		return "", ErrUnknownProvider
	}
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// CompleteOAuth exchanges the callback code, reads the profile email and signs
// the matching customer in, creating one on first sign-in.
func (s *Service) CompleteOAuth(ctx context.Context, provider, code string) (*domain.Customer, Tokens, error) {
	p, ok := s.providers[provider]
	if !ok || p == nil {
		return nil, Tokens{}, ErrUnknownProvider
	}
	if strings.TrimSpace(code) == "" {
		return nil, Tokens{}, domain.Validation("code required")
	}
	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		s.logger.Printf("session: oauth exchange provider=%s error=%v", provider, err)
		return nil, Tokens{}, ErrInvalidCredentials
	}
	client := p.Config.Client(ctx, tok)
	var profile oauthProfile
	if err := getJSON(ctx, client, p.ProfileURL, &profile); err != nil {
		s.logger.Printf("session: oauth profile provider=%s error=%v", provider, err)
		return nil, Tokens{}, err
	}
	if strings.TrimSpace(profile.Email) == "" && p.EmailsURL != "" {
		if profile.Email, err = primaryEmail(ctx, client, p.EmailsURL); err != nil {
			s.logger.Printf("session: oauth emails provider=%s error=%v", provider, err)
			return nil, Tokens{}, err
		}
	}
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return nil, Tokens{}, fmt.Errorf("%s profile has no usable email: %w", provider, err)
	}

	c, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		hash, herr := unusablePasswordHash()
		if herr != nil {
			return nil, Tokens{}, herr
		}
		first, last := profile.names()
		c, err = s.repo.Create(ctx, domain.Customer{Email: email, PasswordHash: hash, FirstName: first, LastName: last})
		if err == nil {
			s.logger.Printf("session: oauth signup provider=%s customer=%s", provider, c.ID)
		}
	}
	if err != nil {
		return nil, Tokens{}, err
	}
	tokens, err := s.issuePair(ctx, c.ID)
	if err != nil {
		return nil, Tokens{}, err
	}
	return c, tokens, nil
}

// primaryEmail returns the primary verified address from a provider's email
// listing, or "" when there is none.
func primaryEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	var emails []oauthEmail
	if err := getJSON(ctx, client, url, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s status=%d body=%s", url, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
