package wallet

import (
	"strings"
	"testing"

	"tweetstamp/internal/domain"
)

func TestFromSeedHexDeterministic(t *testing.T) {
	seed := strings.Repeat("ab", 32)

	w1, err := FromSeedHex(seed)
	if err != nil {
		t.Fatalf("from seed: %v", err)
	}
	w2, err := FromSeedHex("0x" + seed)
	if err != nil {
		t.Fatalf("from seed with prefix: %v", err)
	}

	if w1.Address() != w2.Address() {
		t.Errorf("same seed produced different addresses: %s vs %s", w1.Address(), w2.Address())
	}
	if w1.Address() == domain.NullAddress {
		t.Error("derived address collides with the null address")
	}
}

func TestFromSeedHexRejectsBadInput(t *testing.T) {
	if _, err := FromSeedHex("zz"); err == nil {
		t.Error("expected error for non-hex seed")
	}
	if _, err := FromSeedHex("abcd"); err == nil {
		t.Error("expected error for short seed")
	}
}

func TestSignVerify(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	msg := []byte("anchored tweet payload")
	sig := w.Sign(msg)

	if err := VerifySignature(w.Address(), w.PublicKeyHex(), sig, msg); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := VerifySignature(w.Address(), w.PublicKeyHex(), sig, []byte("tampered")); err == nil {
		t.Error("expected failure for tampered message")
	}

	other, _ := Generate()
	if err := VerifySignature(other.Address(), w.PublicKeyHex(), sig, msg); err == nil {
		t.Error("expected failure for mismatched sender address")
	}
	if err := VerifySignature(w.Address(), other.PublicKeyHex(), sig, msg); err == nil {
		t.Error("expected failure for mismatched public key")
	}
}

func TestVerifySignatureRejectsBadEncodings(t *testing.T) {
	w, _ := Generate()
	msg := []byte("payload")
	sig := w.Sign(msg)

	if err := VerifySignature(w.Address(), "not-hex", sig, msg); err == nil {
		t.Error("expected failure for bad public key encoding")
	}
	if err := VerifySignature(w.Address(), w.PublicKeyHex(), "abcd", msg); err == nil {
		t.Error("expected failure for short signature")
	}
}
