package token

import "errors"

// Registry precondition failures. Every failed precondition aborts the whole
// state transition; callers never observe partial effects.
var (
	// ErrArityMismatch is returned when paired batch arrays differ in length.
	ErrArityMismatch = errors.New("token: owner/id or id/value pairs mismatch")

	// ErrUnauthorized is returned when the caller is neither the balance
	// owner nor an approved operator for the owner.
	ErrUnauthorized = errors.New("token: need operator approval for third party transfers")

	// ErrInsufficientBalance is returned when a transfer or burn exceeds the
	// owner's balance for the token id.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrInvalidRecipient is returned when the transfer target is the
	// reserved null address.
	ErrInvalidRecipient = errors.New("token: recipient must be non-null address")

	// ErrDuplicateToken is returned by Mint when the token id already has a
	// URI. The registry rejects re-mints so that concurrent mint attempts for
	// the same id cannot silently overwrite each other.
	ErrDuplicateToken = errors.New("token: id already minted")
)
