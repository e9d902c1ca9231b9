package credentials

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the work factor the service has always used for
// stored credentials.
const DefaultCost = 10

// ErrHashing wraps failures of the underlying hash primitive.
var ErrHashing = errors.New("credential hashing failed")

// Hasher performs one-way password hashing and verification on top of bcrypt.
type Hasher struct {
	cost int
}

// NewHasher builds a Hasher with the given bcrypt cost; zero or negative
// values fall back to DefaultCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost {
		cost = DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash derives an opaque hash from the plaintext. Output differs between
// calls (bcrypt salts internally) but always verifies against the input.
func (h Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext matches the stored hash. A mismatch
// returns false, never an error.
func (h Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// NewTempPassword produces an unguessable one-time credential for password
// resets. uuid v4 draws from crypto/rand.
func NewTempPassword() string {
	return uuid.NewString()
}
