package security

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"
)

func TestTokenProvider_IssueAndVerify(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	subjectID, correlationID := "u1", "c1"

	token, exp, err := p.Issue(subjectID, correlationID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	sub, cid, err := p.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != subjectID || cid != correlationID {
		t.Errorf("Verify: got subject=%q correlation=%q", sub, cid)
	}
}

func TestTokenProvider_VerifyExpired(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	p := NewTokenProvider(signer, pub, "test-issuer", "test-audience", -time.Minute)
	token, _, err := p.Issue("u1", "c1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, _, err = p.Verify(token)
	if err != ErrCredentialExpired {
		t.Errorf("Verify expired token: want ErrCredentialExpired, got %v", err)
	}
}

func TestTokenProvider_VerifyBadSignature(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	otherKey, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	other := NewTokenProvider(otherKey, &otherKey.PublicKey, "test-issuer", "test-audience", 15*time.Minute)
	token, _, err := other.Issue("u1", "c1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, _, err = p.Verify(token)
	if err != ErrBadSignature {
		t.Errorf("Verify forged token: want ErrBadSignature, got %v", err)
	}
}

func TestTokenProvider_VerifyMalformed(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, _, err := p.Verify(token); err != ErrCredentialMalformed {
			t.Errorf("Verify(%q): want ErrCredentialMalformed, got %v", token, err)
		}
	}
}

func TestTokenProvider_VerifyWrongIssuer(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	other := NewTokenProvider(signer, pub, "other-issuer", "test-audience", 15*time.Minute)
	token, _, err := other.Issue("u1", "c1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, _, err := p.Verify(token); err != ErrCredentialMalformed {
		t.Errorf("Verify wrong issuer: want ErrCredentialMalformed, got %v", err)
	}
}
