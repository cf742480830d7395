package token_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/slipledger/slipbot/internal/token"
)

func TestNewIssuerRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := token.NewIssuer(""); err == nil {
		t.Error("NewIssuer(\"\") error = nil, want error")
	}
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer, err := token.NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok, err := issuer.Issue(now, token.DefaultTTL)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("token %q contains non-url-safe characters", tok)
	}

	expiry, err := issuer.Verify(tok, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if want := now.Add(token.DefaultTTL); !expiry.Equal(want) {
		t.Errorf("Verify() expiry = %v, want %v", expiry, want)
	}
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	issuer, err := token.NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok, err := issuer.Issue(now, time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := issuer.Verify(tok, now.Add(2*time.Minute)); err == nil {
		t.Error("Verify() after expiry error = nil, want error")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	issuerA, _ := token.NewIssuer("secret-a")
	issuerB, _ := token.NewIssuer("secret-b")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok, err := issuerA.Issue(now, token.DefaultTTL)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := issuerB.Verify(tok, now); err == nil {
		t.Error("Verify() with different secret error = nil, want error")
	}
}

func TestVerifyRejectsTamperedExpiry(t *testing.T) {
	t.Parallel()

	issuer, _ := token.NewIssuer("test-secret")
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tok, err := issuer.Issue(now, time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	env["expiresAt"] = now.Add(100 * token.DefaultTTL).UnixMilli()
	tampered, _ := json.Marshal(env)

	if _, err := issuer.Verify(base64.RawURLEncoding.EncodeToString(tampered), now); err == nil {
		t.Error("Verify() of tampered token error = nil, want error")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	issuer, _ := token.NewIssuer("test-secret")
	now := time.Now()

	for _, tok := range []string{"", "not base64 ???", base64.RawURLEncoding.EncodeToString([]byte("not json"))} {
		if _, err := issuer.Verify(tok, now); err == nil {
			t.Errorf("Verify(%q) error = nil, want error", tok)
		}
	}
}
