package security

import (
	"strings"
	"testing"
)

func TestRefreshToken_EncodeAndSplit(t *testing.T) {
	id, err := NewTokenID()
	if err != nil {
		t.Fatalf("NewTokenID: %v", err)
	}
	secret, err := NewTokenSecret()
	if err != nil {
		t.Fatalf("NewTokenSecret: %v", err)
	}
	if id == "" || secret == "" {
		t.Fatal("token id or secret empty")
	}
	if strings.Contains(id, ".") || strings.Contains(secret, ".") {
		t.Fatal("token halves must not contain the separator")
	}

	token := EncodeRefreshToken(id, secret)
	gotID, gotSecret, ok := SplitRefreshToken(token)
	if !ok {
		t.Fatal("SplitRefreshToken: not ok")
	}
	if gotID != id || gotSecret != secret {
		t.Errorf("round trip: got id=%q secret=%q", gotID, gotSecret)
	}
}

func TestSplitRefreshToken_Malformed(t *testing.T) {
	for _, token := range []string{"", "nodot", ".secret", "id.", "."} {
		if _, _, ok := SplitRefreshToken(token); ok {
			t.Errorf("SplitRefreshToken(%q): want not ok", token)
		}
	}
}

func TestNewTokenID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewTokenID()
		if err != nil {
			t.Fatalf("NewTokenID: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate token id %q", id)
		}
		seen[id] = true
	}
}

func TestNewCorrelationID_HexEncoded(t *testing.T) {
	cid, err := NewCorrelationID()
	if err != nil {
		t.Fatalf("NewCorrelationID: %v", err)
	}
	if len(cid) != 32 {
		t.Errorf("correlation id length = %d, want 32", len(cid))
	}
}
