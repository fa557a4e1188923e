package domain

// Address is a base58-encoded ledger account identifier (20 bytes of key
// material before encoding; see internal/wallet for derivation).
type Address string

// NullAddress is the reserved sentinel account: the base58 encoding of
// twenty zero bytes. It appears as the sender of mint events and the
// recipient of burn events and is never a valid transfer target.
const NullAddress Address = "11111111111111111111"

// IsNull reports whether a is the reserved null address.
func (a Address) IsNull() bool {
	return a == NullAddress || a == ""
}
