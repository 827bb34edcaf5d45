package security

import (
	"strings"
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewTestHasher()
	secret := []byte("secret123")
	digest, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$") {
		t.Fatalf("digest not in PHC format: %q", digest)
	}
	if err := h.Compare(digest, secret); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_CompareWrongSecret(t *testing.T) {
	h := NewTestHasher()
	digest, err := h.Hash([]byte("secret123"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(digest, []byte("wrong")); err != ErrHashMismatch {
		t.Errorf("Compare wrong secret: want ErrHashMismatch, got %v", err)
	}
}

func TestHasher_SaltVaries(t *testing.T) {
	h := NewTestHasher()
	d1, err := h.Hash([]byte("same"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	d2, err := h.Hash([]byte("same"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if d1 == d2 {
		t.Error("two hashes of the same secret should differ (random salt)")
	}
}

func TestHasher_CompareMalformedDigest(t *testing.T) {
	h := NewTestHasher()
	for _, digest := range []string{
		"",
		"not-a-digest",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA",
	} {
		if err := h.Compare(digest, []byte("x")); err != ErrHashMismatch {
			t.Errorf("Compare(%q): want ErrHashMismatch, got %v", digest, err)
		}
	}
}

func TestHasher_ParamsEmbeddedInDigest(t *testing.T) {
	// A digest hashed with one parameter set must still verify with a
	// Hasher configured differently.
	h1 := NewHasher(8*1024, 1, 1)
	digest, err := h1.Hash([]byte("secret123"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2 := NewHasher(16*1024, 2, 2)
	if err := h2.Compare(digest, []byte("secret123")); err != nil {
		t.Errorf("Compare with different hasher params: %v", err)
	}
}

func TestNewHasher_Defaults(t *testing.T) {
	h := NewHasher(0, 0, 0)
	if h.MemoryKiB == 0 || h.Passes == 0 || h.Parallelism == 0 {
		t.Errorf("zero params should be defaulted, got %+v", h)
	}
}
