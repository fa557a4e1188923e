// Package wallet holds the signing credential used by the submission
// pipeline. Keys are ed25519; an account address is the base58 encoding of
// the first 20 bytes of SHA-256 over the public key. The credential is
// immutable after construction and safe to share across concurrent requests.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"tweetstamp/internal/domain"
)

const addressLen = 20

// ErrBadSignature is returned when signature verification fails.
var ErrBadSignature = errors.New("wallet: signature verification failed")

// Wallet is an ed25519 signing credential.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr domain.Address
}

// Generate creates a wallet with a fresh random key.
func Generate() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Wallet{priv: priv, pub: pub, addr: AddressFromPublicKey(pub)}, nil
}

// FromSeedHex builds a wallet from a hex-encoded 32-byte ed25519 seed.
func FromSeedHex(seedHex string) (*Wallet, error) {
	seed, err := hex.DecodeString(trim0x(seedHex))
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Wallet{priv: priv, pub: pub, addr: AddressFromPublicKey(pub)}, nil
}

// Address returns the wallet's account address.
func (w *Wallet) Address() domain.Address {
	return w.addr
}

// PublicKeyHex returns the hex-encoded public key carried in signed
// transactions.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.pub)
}

// Sign signs msg and returns the hex-encoded signature.
func (w *Wallet) Sign(msg []byte) string {
	return hex.EncodeToString(ed25519.Sign(w.priv, msg))
}

// AddressFromPublicKey derives the account address for a public key.
func AddressFromPublicKey(pub ed25519.PublicKey) domain.Address {
	sum := sha256.Sum256(pub)
	return domain.Address(base58.Encode(sum[:addressLen]))
}

// VerifySignature checks a hex signature over msg against a hex public key.
// The key must be a valid curve point and its derived address must match
// from.
func VerifySignature(from domain.Address, pubHex, sigHex string, msg []byte) error {
	pub, err := hex.DecodeString(trim0x(pubHex))
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("wallet: invalid public key encoding")
	}
	if !isOnCurve(pub) {
		return fmt.Errorf("wallet: public key is not on the curve")
	}
	if AddressFromPublicKey(pub) != from {
		return fmt.Errorf("wallet: public key does not match sender address")
	}

	sig, err := hex.DecodeString(trim0x(sigHex))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("wallet: invalid signature encoding")
	}
	if !ed25519.Verify(pub, msg, sig) {
		return ErrBadSignature
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

func trim0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
