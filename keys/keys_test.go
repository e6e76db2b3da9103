package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"
)

func TestDeriveSigningSeedDeterministic(t *testing.T) {
	root := make([]byte, ed25519.SeedSize)
	for i := range root {
		root[i] = 7
	}

	a, err := DeriveSigningSeed(root, "ring_core")
	if err != nil {
		t.Fatalf("DeriveSigningSeed: %v", err)
	}
	b, err := DeriveSigningSeed(root, "ring_core")
	if err != nil {
		t.Fatalf("DeriveSigningSeed: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("derivation not deterministic")
	}

	c, err := DeriveSigningSeed(root, "other_lib")
	if err != nil {
		t.Fatalf("DeriveSigningSeed: %v", err)
	}
	if string(a) == string(c) {
		t.Fatal("distinct purposes must derive distinct seeds")
	}
}

func TestDeriveSigningSeedRejects(t *testing.T) {
	if _, err := DeriveSigningSeed([]byte("short"), "ring_core"); err == nil {
		t.Fatal("expected error for short root seed")
	}
	root := make([]byte, ed25519.SeedSize)
	if _, err := DeriveSigningSeed(root, ""); err == nil {
		t.Fatal("expected error for empty purpose")
	}
}

func TestIssuerKeyFromSeed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	got := IssuerKeyFromSeed(seed)
	if !strings.HasPrefix(got, "ed25519:") {
		t.Fatalf("issuer key %q missing algorithm tag", got)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, "ed25519:"))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		t.Fatalf("public key length %d", len(raw))
	}
}

func TestSignEd25519RoundTrip(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 1
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	msg := []byte("generation manifest bytes")
	for _, hashAlg := range []string{"sha256", "sha512", "sha3-256"} {
		sigB64, err := SignEd25519(msg, hashAlg, priv)
		if err != nil {
			t.Fatalf("SignEd25519(%s): %v", hashAlg, err)
		}
		sig, err := base64.StdEncoding.DecodeString(sigB64)
		if err != nil {
			t.Fatalf("base64: %v", err)
		}
		digest, err := Digest(hashAlg, msg)
		if err != nil {
			t.Fatalf("Digest: %v", err)
		}
		if !ed25519.Verify(pub, digest, sig) {
			t.Fatalf("signature does not verify under %s", hashAlg)
		}
	}

	if _, err := SignEd25519(msg, "md5", priv); err == nil {
		t.Fatal("expected error for unsupported hash")
	}
}
