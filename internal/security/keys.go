package security

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned when a configured signing key is unusable.
var ErrInvalidKey = errors.New("invalid key")

// DefaultKeepCount is the minimum number of retired keys Prune retains so
// tokens signed shortly before a rotation stay verifiable.
const DefaultKeepCount = 3

// SigningKey is one HMAC signing secret with its rotation metadata.
// The active key signs new tokens; retired keys remain verification-eligible
// until pruned.
type SigningKey struct {
	KeyID     string
	Secret    []byte
	Algorithm string
	Active    bool
	CreatedAt time.Time
	RetiredAt *time.Time // nil while the key has not been rotated out
}

// KeySpec is a configured signing key: an id and its HMAC secret.
type KeySpec struct {
	ID     string
	Secret string
}

// KeyManager owns the signing key ring. Rotation is an explicit state
// transition: the previously active key is retired and stays usable for
// verification until pruned. Safe for concurrent use; readers get snapshot
// copies.
type KeyManager struct {
	mu   sync.RWMutex
	keys []SigningKey
	nowF func() time.Time
}

// NewKeyManager builds a key ring from the configured specs. The first spec
// becomes the active key. Specs with an empty id or secret are rejected.
func NewKeyManager(specs []KeySpec) (*KeyManager, error) {
	km := &KeyManager{nowF: func() time.Time { return time.Now().UTC() }}
	now := km.nowF()
	for i, spec := range specs {
		if spec.ID == "" || spec.Secret == "" {
			return nil, ErrInvalidKey
		}
		km.keys = append(km.keys, SigningKey{
			KeyID:     spec.ID,
			Secret:    []byte(spec.Secret),
			Algorithm: "HS256",
			Active:    i == 0,
			CreatedAt: now,
		})
	}
	return km, nil
}

// ActiveKey returns the key used to mint new tokens. If no key is marked
// active it falls back to the first configured key rather than failing.
// The second return is false only when the ring is empty.
func (m *KeyManager) ActiveKey() (SigningKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range m.keys {
		if k.Active {
			return copyKey(k), true
		}
	}
	if len(m.keys) > 0 {
		return copyKey(m.keys[0]), true
	}
	return SigningKey{}, false
}

// VerificationKeys returns all keys eligible for signature verification:
// the active key plus every retired key not yet pruned.
func (m *KeyManager) VerificationKeys() []SigningKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SigningKey, len(m.keys))
	for i, k := range m.keys {
		out[i] = copyKey(k)
	}
	return out
}

// KeyByID returns the key with the given id, if present.
func (m *KeyManager) KeyByID(id string) (SigningKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range m.keys {
		if k.KeyID == id {
			return copyKey(k), true
		}
	}
	return SigningKey{}, false
}

// Rotate retires the currently active key and installs a new active key with
// a generated id for the given secret. Tokens signed under the retired key
// remain verifiable until it is pruned.
func (m *KeyManager) Rotate(newSecret string) (SigningKey, error) {
	if newSecret == "" {
		return SigningKey{}, ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowF()
	for i := range m.keys {
		if m.keys[i].Active {
			m.keys[i].Active = false
			retired := now
			m.keys[i].RetiredAt = &retired
		}
	}
	k := SigningKey{
		KeyID:     uuid.New().String(),
		Secret:    []byte(newSecret),
		Algorithm: "HS256",
		Active:    true,
		CreatedAt: now,
	}
	m.keys = append(m.keys, k)
	return copyKey(k), nil
}

// Prune drops the oldest retired keys beyond keepCount. The active key is
// never pruned. keepCount below zero falls back to DefaultKeepCount.
// Best-effort housekeeping; Prune never fails.
func (m *KeyManager) Prune(keepCount int) {
	if keepCount < 0 {
		keepCount = DefaultKeepCount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	retired := 0
	for _, k := range m.keys {
		if !k.Active {
			retired++
		}
	}
	drop := retired - keepCount
	if drop <= 0 {
		return
	}
	// Keys are appended in creation order, so the first retired keys
	// encountered are the oldest.
	kept := m.keys[:0]
	for _, k := range m.keys {
		if !k.Active && drop > 0 {
			drop--
			continue
		}
		kept = append(kept, k)
	}
	m.keys = kept
}

func copyKey(k SigningKey) SigningKey {
	out := k
	out.Secret = append([]byte(nil), k.Secret...)
	if k.RetiredAt != nil {
		t := *k.RetiredAt
		out.RetiredAt = &t
	}
	return out
}
