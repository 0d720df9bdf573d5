package security

import "time"

// NewTestKeyManager returns a key ring with a single configured key.
// For unit tests only.
func NewTestKeyManager() *KeyManager {
	km, err := NewKeyManager([]KeySpec{{ID: "test-key-1", Secret: "test-secret-0123456789abcdef"}})
	if err != nil {
		panic(err)
	}
	return km
}

// NewTestTokenIssuer returns a TokenIssuer over a single-key test ring with
// short TTLs. For unit tests only.
func NewTestTokenIssuer() *TokenIssuer {
	return NewTokenIssuer(NewTestKeyManager(), "test-issuer", "test-audience", 15*time.Minute, 24*time.Hour)
}
