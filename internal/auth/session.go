package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

const (
	SessionCookie = "smartmark_session"
	StateCookie   = "smartmark_oauth_state"

	issuer   = "smartmark"
	stateTTL = 10 * time.Minute
)

var (
	// ErrNoSession means the request carries no valid, unrevoked session.
	ErrNoSession = errors.New("no session")
	// ErrInvalidState means the OAuth state did not round-trip.
	ErrInvalidState = errors.New("invalid oauth state")
)

// Revoker remembers signed-out session tokens until they expire.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens carried in a cookie
// (browser) or an Authorization: Bearer header (API clients).
type Sessions struct {
	secret  []byte
	ttl     time.Duration
	secure  bool
	revoker Revoker
	now     func() time.Time
}

// NewSessions builds the session manager. revoker may be nil, in which
// case sign-out only clears the cookie.
func NewSessions(secret string, ttl time.Duration, secure bool, revoker Revoker) *Sessions {
	return &Sessions{
		secret:  []byte(secret),
		ttl:     ttl,
		secure:  secure,
		revoker: revoker,
		now:     time.Now,
	}
}

// Issue signs a token for id.
func (s *Sessions) Issue(id *domain.Identity) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, exp, nil
}

func (s *Sessions) parse(token string) (*sessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &sessionClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return nil, errors.Join(ErrNoSession, err)
	}
	return claims, nil
}

// Verify validates a token and returns its identity.
func (s *Sessions) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: incomplete claims", ErrNoSession)
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("session revocation check: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: revoked", ErrNoSession)
		}
	}
	return &domain.Identity{ID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// tokenFrom prefers the bearer header over the cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Current resolves the identity of the request, or ErrNoSession.
func (s *Sessions) Current(r *http.Request) (*domain.Identity, error) {
	token := tokenFrom(r)
	if token == "" {
		return nil, ErrNoSession
	}
	return s.Verify(r.Context(), token)
}

// SetCookie stores the session token in the browser.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear revokes the request's session (if any) and expires the cookie.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	var err error
	if token := tokenFrom(r); token != "" && s.revoker != nil {
		if claims, perr := s.parse(token); perr == nil && claims.ExpiresAt != nil {
			err = s.revoker.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}

// NewState creates an OAuth state value and stores it in a short-lived cookie.
func (s *Sessions) NewState(w http.ResponseWriter) string {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}

// CheckState compares the callback state with the cookie and consumes it.
func (s *Sessions) CheckState(w http.ResponseWriter, r *http.Request) error {
	got := r.URL.Query().Get("state")
	c, err := r.Cookie(StateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:   StateCookie,
		Value:  "",
		Path:   "/auth",
		MaxAge: -1,
	})
	if err != nil || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(c.Value)) != 1 {
		return ErrInvalidState
	}
	return nil
}
