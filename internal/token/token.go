// Package token issues and verifies signed read-only access tokens for the
// ledger dashboard. A token is a base64url-encoded JSON envelope carrying an
// expiry timestamp and an HMAC-SHA256 signature over "readonly:<expiry>".
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTTL is how long an issued read-only link stays valid.
const DefaultTTL = 24 * time.Hour

type envelope struct {
	ExpiresAt int64  `json:"expiresAt"`
	Sig       string `json:"sig"`
}

// Issuer signs read-only tokens with a shared secret. The dashboard verifies
// them with the same secret, so the two must be configured identically.
type Issuer struct {
	secret []byte
}

// NewIssuer creates an Issuer from the shared signing secret.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token signing secret is required")
	}
	return &Issuer{secret: []byte(secret)}, nil
}

func (i *Issuer) sign(expiresAt int64) string {
	mac := hmac.New(sha256.New, i.secret)
	fmt.Fprintf(mac, "readonly:%d", expiresAt)
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue creates a read-only token expiring ttl from now. Expiry is encoded
// in Unix milliseconds.
func (i *Issuer) Issue(now time.Time, ttl time.Duration) (string, error) {
	expiresAt := now.Add(ttl).UnixMilli()
	env := envelope{ExpiresAt: expiresAt, Sig: i.sign(expiresAt)}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify checks a token's signature and expiry. It returns the expiry time
// when the token is valid.
func (i *Issuer) Verify(tok string, now time.Time) (time.Time, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed token encoding: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return time.Time{}, fmt.Errorf("malformed token payload: %w", err)
	}

	if !hmac.Equal([]byte(env.Sig), []byte(i.sign(env.ExpiresAt))) {
		return time.Time{}, fmt.Errorf("token signature mismatch")
	}

	expiry := time.UnixMilli(env.ExpiresAt)
	if now.After(expiry) {
		return time.Time{}, fmt.Errorf("token expired at %s", expiry.UTC().Format(time.RFC3339))
	}
	return expiry, nil
}
