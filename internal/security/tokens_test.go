package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssuer_IssuePair(t *testing.T) {
	issuer := NewTestTokenIssuer()
	pair, err := issuer.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.AccessJTI == "" || pair.RefreshJTI == "" {
		t.Fatal("expected jti on both tokens")
	}
	if pair.AccessJTI == pair.RefreshJTI {
		t.Error("access and refresh jti must differ")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Error("refresh token should outlive access token")
	}

	claims, err := issuer.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("sub = %q, want user-1", claims.Subject)
	}
	if claims.ID != pair.AccessJTI {
		t.Errorf("jti = %q, want %q", claims.ID, pair.AccessJTI)
	}
	if claims.Kind != KindAccess {
		t.Errorf("kind = %q, want access", claims.Kind)
	}
	if claims.KeyID == "" {
		t.Error("key_id claim should be set")
	}

	rc, err := issuer.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if rc.Kind != KindRefresh {
		t.Errorf("kind = %q, want refresh", rc.Kind)
	}
}

func TestTokenIssuer_KindMismatch(t *testing.T) {
	issuer := NewTestTokenIssuer()
	pair, err := issuer.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token as refresh: want ErrInvalidToken, got %v", err)
	}
	if _, err := issuer.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token as access: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_Malformed(t *testing.T) {
	issuer := NewTestTokenIssuer()
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := issuer.VerifyRefresh(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyRefresh(%q): want ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestTokenIssuer_WrongIssuerAudience(t *testing.T) {
	km := NewTestKeyManager()
	a := NewTokenIssuer(km, "issuer-a", "aud-a", time.Minute, time.Hour)
	b := NewTokenIssuer(km, "issuer-b", "aud-a", time.Minute, time.Hour)
	c := NewTokenIssuer(km, "issuer-a", "aud-c", time.Minute, time.Hour)

	pair, err := a.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := b.VerifyRefresh(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("issuer mismatch: want ErrInvalidToken, got %v", err)
	}
	if _, err := c.VerifyRefresh(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("audience mismatch: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_SigningUnavailable(t *testing.T) {
	km, err := NewKeyManager(nil)
	if err != nil {
		t.Fatalf("NewKeyManager: %v", err)
	}
	issuer := NewTokenIssuer(km, "iss", "aud", time.Minute, time.Hour)
	if _, err := issuer.IssuePair("user-1"); !errors.Is(err, ErrSigningUnavailable) {
		t.Errorf("want ErrSigningUnavailable, got %v", err)
	}
}

// A token signed before a rotation must verify afterwards via the retired
// key, and stop verifying once that key is pruned.
func TestTokenIssuer_RotationTransparency(t *testing.T) {
	km := NewTestKeyManager()
	issuer := NewTokenIssuer(km, "iss", "aud", time.Minute, time.Hour)

	pair, err := issuer.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := km.Rotate("second-secret-material"); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("token signed under retired key should verify: %v", err)
	}

	// New tokens are signed under the new active key.
	pair2, err := issuer.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	c1, _ := issuer.VerifyRefresh(pair.RefreshToken)
	c2, _ := issuer.VerifyRefresh(pair2.RefreshToken)
	if c1.KeyID == c2.KeyID {
		t.Error("tokens before and after rotation should carry different key ids")
	}

	km.Prune(0)
	if _, err := issuer.VerifyRefresh(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("pruned key token: want ErrInvalidToken, got %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair2.RefreshToken); err != nil {
		t.Errorf("active key token should still verify: %v", err)
	}
}

func TestTokenIssuer_ExpiredToken(t *testing.T) {
	km := NewTestKeyManager()
	issuer := NewTokenIssuer(km, "iss", "aud", -time.Minute, -time.Minute)
	pair, err := issuer.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := issuer.VerifyRefresh(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, []byte("correct horse battery staple")); err != nil {
		t.Errorf("Compare: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong password")); err == nil {
		t.Error("wrong password should not match")
	}
}

func TestRefreshTokenHash(t *testing.T) {
	h := HashRefreshToken("some.token.value")
	if !RefreshTokenHashEqual("some.token.value", h) {
		t.Error("hash should match the same token")
	}
	if RefreshTokenHashEqual("other.token.value", h) {
		t.Error("hash should not match a different token")
	}
}
