package domain

import (
	"errors"
	"testing"
)

func TestNewIdentity(t *testing.T) {
	a, err := NewIdentity("google", "1234", "ada@example.com", " Ada ")
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}
	b, err := NewIdentity("google", "1234", "other@example.com", "")
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}

	if a.ID != b.ID {
		t.Errorf("same provider subject should map to the same id: %q vs %q", a.ID, b.ID)
	}
	if a.Name != "Ada" {
		t.Errorf("Name = %q, want trimmed %q", a.Name, "Ada")
	}

	c, _ := NewIdentity("github", "1234", "ada@example.com", "")
	if c.ID == a.ID {
		t.Error("different providers must not share an id")
	}
}

func TestNewIdentityRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		subject  string
		email    string
	}{
		{name: "no subject", provider: "google", email: "a@example.com"},
		{name: "blank subject", provider: "google", subject: "  ", email: "a@example.com"},
		{name: "no email", provider: "google", subject: "1"},
		{name: "no provider", subject: "1", email: "a@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIdentity(tt.provider, tt.subject, tt.email, "")
			if !errors.Is(err, ErrInvalidIdentity) {
				t.Errorf("NewIdentity() = %v, want ErrInvalidIdentity", err)
			}
		})
	}
}

func TestIdentityInitial(t *testing.T) {
	id := &Identity{Email: "émile@example.com"}
	if got := id.Initial(); got != "É" {
		t.Errorf("Initial() = %q, want %q", got, "É")
	}

	var nilID *Identity
	if got := nilID.Initial(); got != "" {
		t.Errorf("nil Initial() = %q, want empty", got)
	}
}
