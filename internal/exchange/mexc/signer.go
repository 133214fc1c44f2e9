// Package mexc implements the REST client for the MEXC spot API.
package mexc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer handles MEXC API request signing.
// Keys are stored as []byte so they can be wiped from memory.
type Signer struct {
	apiKey    []byte
	secretKey []byte
}

// NewSigner creates a signer from the API credentials.
func NewSigner(apiKey, secretKey string) *Signer {
	return &Signer{
		apiKey:    []byte(apiKey),
		secretKey: []byte(secretKey),
	}
}

// APIKey returns the access key for the X-MEXC-APIKEY header.
func (s *Signer) APIKey() string {
	return string(s.apiKey)
}

// Sign returns the hex HMAC-SHA256 of the canonical query string,
// as required by signed MEXC endpoints.
func (s *Signer) Sign(query string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	wipeSlice(s.apiKey)
	wipeSlice(s.secretKey)
}

func wipeSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
