package token

import "tweetstamp/internal/domain"

// TokenReceiver is the callback capability a contract-capable recipient may
// implement. The registry invokes it after a single transfer commits; the
// callback observes the post-transfer state and must not mutate balances.
type TokenReceiver interface {
	OnTokenReceived(operator, from domain.Address, id domain.TokenID, value uint64, data []byte)
}

// BatchTokenReceiver is the batch counterpart of TokenReceiver.
type BatchTokenReceiver interface {
	OnTokenBatchReceived(operator, from domain.Address, ids []domain.TokenID, values []uint64, data []byte)
}

// ReceiverResolver reports the receiver capability of an address. It returns
// nil for plain accounts; the registry checks before dispatching, never
// assumes presence.
type ReceiverResolver func(addr domain.Address) any
