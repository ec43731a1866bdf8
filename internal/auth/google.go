package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ErrExchange wraps failures while turning an authorization code into an identity.
var ErrExchange = errors.New("oauth exchange failed")

// Provider is an OAuth identity provider.
type Provider interface {
	Name() string
	// AuthCodeURL is where the browser goes to sign in.
	AuthCodeURL(state string) string
	// Exchange trades the callback code for a validated identity.
	Exchange(ctx context.Context, code string) (*domain.Identity, error)
}

// Google implements Provider with the authorization code flow.
type Google struct {
	conf        *oauth2.Config
	userInfoURL string
}

// GoogleOption customizes the provider.
type GoogleOption func(*Google)

// WithEndpoint points the provider at other token/userinfo endpoints.
func WithEndpoint(endpoint oauth2.Endpoint, userInfoURL string) GoogleOption {
	return func(g *Google) {
		g.conf.Endpoint = endpoint
		g.userInfoURL = userInfoURL
	}
}

// NewGoogle builds the provider; redirectURL must match the one registered
// in the Google console.
func NewGoogle(clientID, clientSecret, redirectURL string, opts ...GoogleOption) *Google {
	g := &Google{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: GoogleUserInfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (g *Google) Exchange(ctx context.Context, code string) (*domain.Identity, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrExchange)
	}

	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchange, err)
	}
	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %w", ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: userinfo status %d", ErrExchange, resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %w", ErrExchange, err)
	}
	if !info.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrExchange)
	}

	return domain.NewIdentity(g.Name(), info.Subject, info.Email, info.Name)
}
