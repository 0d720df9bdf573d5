package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or
	// fails signature validation under every verification key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSigningUnavailable is returned when no signing key is configured.
	// This is a startup/ops error, not a per-request condition.
	ErrSigningUnavailable = errors.New("no signing key available")
)

// TokenKind distinguishes access tokens from refresh tokens in claims.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims are the minimal claims carried by issued tokens. No PII beyond the
// user id (sub) is embedded.
type Claims struct {
	jwt.RegisteredClaims
	KeyID string    `json:"key_id"`
	Kind  TokenKind `json:"kind"`
}

// TokenPair is one freshly minted access/refresh pair. Only the refresh jti
// is tracked for lifecycle purposes by the session and blacklist stores.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessJTI        string
	RefreshJTI       string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenIssuer mints and verifies HS256 JWT pairs against the key ring.
// Verification tries every verification-eligible key so tokens signed under a
// just-retired key stay valid during a rotation window.
type TokenIssuer struct {
	keys       *KeyManager
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer returns a TokenIssuer signing with keys' active key.
// issuer and audience are set on claims and checked on verification.
func NewTokenIssuer(keys *KeyManager, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		keys:       keys,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssuePair mints an access and a refresh token for the user, each with its
// own jti and the signing key id in both the kid header and the key_id claim.
// Returns ErrSigningUnavailable when the key ring is empty.
func (i *TokenIssuer) IssuePair(userID string) (*TokenPair, error) {
	key, ok := i.keys.ActiveKey()
	if !ok {
		return nil, ErrSigningUnavailable
	}
	now := time.Now().UTC()
	pair := &TokenPair{
		AccessExpiresAt:  now.Add(i.accessTTL),
		RefreshExpiresAt: now.Add(i.refreshTTL),
	}
	var err error
	pair.AccessJTI, err = generateJTI()
	if err != nil {
		return nil, err
	}
	pair.RefreshJTI, err = generateJTI()
	if err != nil {
		return nil, err
	}
	pair.AccessToken, err = i.sign(key, userID, pair.AccessJTI, KindAccess, now, pair.AccessExpiresAt)
	if err != nil {
		return nil, err
	}
	pair.RefreshToken, err = i.sign(key, userID, pair.RefreshJTI, KindRefresh, now, pair.RefreshExpiresAt)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (i *TokenIssuer) sign(key SigningKey, userID, jti string, kind TokenKind, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		KeyID: key.KeyID,
		Kind:  kind,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = key.KeyID
	return t.SignedString(key.Secret)
}

// VerifyAccess parses and validates an access token (signature, exp, iss,
// aud, kind). Returns ErrInvalidToken on any validation failure.
func (i *TokenIssuer) VerifyAccess(tokenString string) (*Claims, error) {
	return i.verify(tokenString, KindAccess)
}

// VerifyRefresh parses and validates a refresh token (signature, exp, iss,
// aud, kind). Returns ErrInvalidToken on any validation failure.
func (i *TokenIssuer) VerifyRefresh(tokenString string) (*Claims, error) {
	return i.verify(tokenString, KindRefresh)
}

func (i *TokenIssuer) verify(tokenString string, kind TokenKind) (*Claims, error) {
	keys := i.keys.VerificationKeys()
	if len(keys) == 0 {
		return nil, ErrInvalidToken
	}
	// Fast path: if the token names a key we still hold, try it first.
	if kid, ok := peekKeyID(tokenString); ok {
		for idx, k := range keys {
			if k.KeyID == kid && idx != 0 {
				keys[0], keys[idx] = keys[idx], keys[0]
				break
			}
		}
	}
	for _, key := range keys {
		claims, err := parseWithKey(tokenString, key)
		if err != nil {
			continue
		}
		if claims.Kind != kind {
			continue
		}
		if claims.ExpiresAt == nil {
			continue
		}
		if claims.Issuer != i.issuer {
			continue
		}
		if !audienceMatches(claims.Audience, i.audience) {
			continue
		}
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func parseWithKey(tokenString string, key SigningKey) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// peekKeyID reads the kid header without verifying the signature. The result
// is only a routing hint; signature validation still decides.
func peekKeyID(tokenString string) (string, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return "", false
	}
	kid, ok := token.Header["kid"].(string)
	return kid, ok && kid != ""
}

func audienceMatches(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
