package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidIdentity is returned when the auth provider hands back an
// identity without a subject or email.
var ErrInvalidIdentity = errors.New("invalid identity")

// identityNamespace scopes the deterministic identity ids.
var identityNamespace = uuid.MustParse("6f1c5a52-3c0e-4a39-9c55-9b0f0e1a7d21")

// Identity is the authenticated user as far as smartmark cares: an id that
// owns bookmarks, and an email for display.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// NewIdentity validates what the provider returned and derives a stable
// owner id from provider and subject, so the same account always maps to
// the same bookmarks.
func NewIdentity(provider, subject, email, name string) (*Identity, error) {
	subject = strings.TrimSpace(subject)
	email = strings.TrimSpace(email)
	if provider == "" || subject == "" {
		return nil, errors.Join(ErrInvalidIdentity, errors.New("missing subject"))
	}
	if email == "" {
		return nil, errors.Join(ErrInvalidIdentity, errors.New("missing email"))
	}
	return &Identity{
		ID:    uuid.NewSHA1(identityNamespace, []byte(provider+":"+subject)).String(),
		Email: email,
		Name:  strings.TrimSpace(name),
	}, nil
}

// Initial is the upper-cased first letter of the email, shown as the avatar.
func (i *Identity) Initial() string {
	if i == nil || i.Email == "" {
		return ""
	}
	r := []rune(i.Email)
	return strings.ToUpper(string(r[0]))
}
