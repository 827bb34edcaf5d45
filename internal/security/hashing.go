package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrHashMismatch is returned by Compare when the secret does not match the
// stored digest, or the digest cannot be parsed.
var ErrHashMismatch = errors.New("hash mismatch")

const (
	defaultMemoryKiB   = 64 * 1024
	defaultPasses      = 3
	defaultParallelism = 2
	saltLen            = 16
	keyLen             = 32
)

// Hasher hashes and verifies secrets using Argon2id. The per-hash random salt
// and the parameters are embedded in the digest, so parameters can be raised
// later without invalidating stored digests. Callers must not log or persist
// plaintext secrets.
type Hasher struct {
	MemoryKiB   uint32
	Passes      uint32
	Parallelism uint8
}

// NewHasher returns a Hasher with the given Argon2id parameters. Zero values
// fall back to the package defaults (64 MiB, 3 passes, 2 lanes).
func NewHasher(memoryKiB, passes uint32, parallelism uint8) *Hasher {
	if memoryKiB == 0 {
		memoryKiB = defaultMemoryKiB
	}
	if passes == 0 {
		passes = defaultPasses
	}
	if parallelism == 0 {
		parallelism = defaultParallelism
	}
	return &Hasher{MemoryKiB: memoryKiB, Passes: passes, Parallelism: parallelism}
}

// Hash produces an Argon2id digest of secret in PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash), suitable for storage.
func (h *Hasher) Hash(secret []byte) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(secret, salt, h.Passes, h.MemoryKiB, h.Parallelism, keyLen)
	digest := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.MemoryKiB, h.Passes, h.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return digest, nil
}

// Compare verifies secret against the stored digest, recomputing with the
// parameters embedded in the digest and comparing in constant time. Returns
// nil on match, ErrHashMismatch otherwise.
func (h *Hasher) Compare(digest string, secret []byte) error {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return ErrHashMismatch
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ErrHashMismatch
	}
	var memory, passes uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &passes, &parallelism); err != nil {
		return ErrHashMismatch
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrHashMismatch
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return ErrHashMismatch
	}
	got := argon2.IDKey(secret, salt, passes, memory, parallelism, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrHashMismatch
	}
	return nil
}
