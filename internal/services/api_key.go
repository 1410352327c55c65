package services

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// APIKey verifies the shared secret presented in x-api-key. The secret is
// configured either in plain text or as a bcrypt hash.
type APIKey struct {
	plain string
	hash  []byte
}

func NewAPIKey(plain, bcryptHash string) APIKey {
	k := APIKey{plain: plain}
	if bcryptHash != "" {
		k.hash = []byte(bcryptHash)
	}
	return k
}

// Configured reports whether any secret was set.
func (k APIKey) Configured() bool {
	return k.plain != "" || len(k.hash) > 0
}

// Matches reports whether presented equals the configured secret. Nothing
// matches when no secret is configured.
func (k APIKey) Matches(presented string) bool {
	if presented == "" {
		return false
	}
	if len(k.hash) > 0 {
		return bcrypt.CompareHashAndPassword(k.hash, []byte(presented)) == nil
	}
	if k.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(k.plain), []byte(presented)) == 1
}

// HashAPIKey returns the bcrypt hash to store in UPLOAD_API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
