// Package token implements the multi-token registry that backs tweet
// timestamping: per-(id, owner) balances, operator approvals, token URIs and
// a creation-ordered mint history. The host ledger applies mutating
// operations one at a time; every operation validates all preconditions
// before its first write, so a failed call leaves no partial state behind.
package token

import (
	"sync"

	"tweetstamp/internal/domain"
)

// Registry is the ledger state store for timestamped tweet tokens.
type Registry struct {
	mu sync.RWMutex

	// id => (owner => balance)
	balances map[domain.TokenID]map[domain.Address]uint64
	// owner => (operator => approved)
	approvals map[domain.Address]map[domain.Address]bool
	// id => token URI
	uris map[domain.TokenID]string

	// creation-ordered ids of all timestamped tweets
	history []domain.TokenID
	// most recently minted id
	last domain.TokenID
	// total number of tokens created; always equals len(history)
	index uint64

	sink      EventSink
	receivers ReceiverResolver
}

// Option configures a Registry.
type Option func(*Registry)

// WithEventSink sets the sink receiving emitted events.
func WithEventSink(sink EventSink) Option {
	return func(r *Registry) { r.sink = sink }
}

// WithReceiverResolver sets the hook used to detect contract-capable
// recipients.
func WithReceiverResolver(resolve ReceiverResolver) Option {
	return func(r *Registry) { r.receivers = resolve }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		balances:  make(map[domain.TokenID]map[domain.Address]uint64),
		approvals: make(map[domain.Address]map[domain.Address]bool),
		uris:      make(map[domain.TokenID]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BalanceOf returns the owner's balance for id, zero when no entry exists.
func (r *Registry) BalanceOf(owner domain.Address, id domain.TokenID) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[id][owner]
}

// BalanceOfBatch returns elementwise balances for the owner/id pairs, in
// input order.
func (r *Registry) BalanceOfBatch(owners []domain.Address, ids []domain.TokenID) ([]uint64, error) {
	if len(owners) != len(ids) {
		return nil, ErrArityMismatch
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	balances := make([]uint64, len(owners))
	for i := range owners {
		balances[i] = r.balances[ids[i]][owners[i]]
	}
	return balances, nil
}

// TokenURI returns the stored URI for id, empty when id was never minted.
func (r *Registry) TokenURI(id domain.TokenID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.uris[id]
}

// IsApprovedForAll reports whether operator may move owner's balances.
func (r *Registry) IsApprovedForAll(owner, operator domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.approvals[owner][operator]
}

// SetApprovalForAll grants or revokes operator's permission over all of the
// caller's balances, overwriting any prior value.
func (r *Registry) SetApprovalForAll(caller, operator domain.Address, approved bool) {
	r.mu.Lock()
	if r.approvals[caller] == nil {
		r.approvals[caller] = make(map[domain.Address]bool)
	}
	r.approvals[caller][operator] = approved
	r.mu.Unlock()

	r.emit(approvalForAllEvent(caller, operator, approved))
}

// TransferFrom moves value units of id from one account to another. The
// caller must be from or an approved operator for from.
func (r *Registry) TransferFrom(caller, from, to domain.Address, id domain.TokenID, value uint64, data []byte) error {
	r.mu.Lock()

	if to.IsNull() {
		r.mu.Unlock()
		return ErrInvalidRecipient
	}
	if caller != from && !r.approvals[from][caller] {
		r.mu.Unlock()
		return ErrUnauthorized
	}
	if value > r.balances[id][from] {
		r.mu.Unlock()
		return ErrInsufficientBalance
	}

	r.setBalance(id, from, r.balances[id][from]-value)
	r.setBalance(id, to, r.balances[id][to]+value)
	r.mu.Unlock()

	r.emit(transferSingleEvent(caller, from, to, id, value))

	if recv, ok := r.resolveReceiver(to).(TokenReceiver); ok {
		recv.OnTokenReceived(caller, from, id, value, data)
	}
	return nil
}

// TransferFromBatch moves several id/value pairs from one account to another
// in a single transition. Any element's precondition failure aborts the whole
// batch with no balance changes.
func (r *Registry) TransferFromBatch(caller, from, to domain.Address, ids []domain.TokenID, values []uint64, data []byte) error {
	if len(ids) != len(values) {
		return ErrArityMismatch
	}

	r.mu.Lock()

	if to.IsNull() {
		r.mu.Unlock()
		return ErrInvalidRecipient
	}
	if caller != from && !r.approvals[from][caller] {
		r.mu.Unlock()
		return ErrUnauthorized
	}

	// Precheck every element against a scratch view so a mid-batch failure
	// cannot leave partial transfers. The same id may appear more than once.
	scratch := make(map[domain.TokenID]uint64, len(ids))
	for i, id := range ids {
		available, seen := scratch[id]
		if !seen {
			available = r.balances[id][from]
		}
		if values[i] > available {
			r.mu.Unlock()
			return ErrInsufficientBalance
		}
		scratch[id] = available - values[i]
	}

	for i, id := range ids {
		r.setBalance(id, from, r.balances[id][from]-values[i])
		r.setBalance(id, to, r.balances[id][to]+values[i])
	}
	r.mu.Unlock()

	r.emit(transferBatchEvent(caller, from, to, ids, values))

	if recv, ok := r.resolveReceiver(to).(BatchTokenReceiver); ok {
		recv.OnTokenBatchReceived(caller, from, ids, values, data)
	}
	return nil
}

// Mint creates a token: sets the owner's balance to supply, records the URI,
// appends id to the history and advances the token index. A duplicate id is
// rejected; the registry never overwrites an existing token. The username is
// carried in the mint call schema but not stored on-ledger.
func (r *Registry) Mint(owner domain.Address, id domain.TokenID, supply uint64, uri string, username string) error {
	_ = username

	r.mu.Lock()
	if _, exists := r.uris[id]; exists {
		r.mu.Unlock()
		return ErrDuplicateToken
	}

	r.setBalance(id, owner, supply)
	r.uris[id] = uri
	r.history = append(r.history, id)
	r.last = id
	r.index++
	r.mu.Unlock()

	r.emit(transferSingleEvent(owner, domain.NullAddress, owner, id, supply))
	r.emit(uriEvent(id, uri))
	return nil
}

// Burn destroys amount units of the owner's balance for id.
func (r *Registry) Burn(owner domain.Address, id domain.TokenID, amount uint64) error {
	r.mu.Lock()
	if amount > r.balances[id][owner] {
		r.mu.Unlock()
		return ErrInsufficientBalance
	}
	r.setBalance(id, owner, r.balances[id][owner]-amount)
	r.mu.Unlock()

	r.emit(transferSingleEvent(owner, owner, domain.NullAddress, id, amount))
	return nil
}

// History returns all timestamped tweet ids in creation order.
func (r *Registry) History() []domain.TokenID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TokenID, len(r.history))
	copy(out, r.history)
	return out
}

// LastTokenID returns the most recently minted id, zero when nothing was
// minted yet.
func (r *Registry) LastTokenID() domain.TokenID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// TokenIndex returns the total number of tokens created.
func (r *Registry) TokenIndex() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index
}

// setBalance writes a balance entry, pruning zero entries so BalanceOf on a
// never-touched pair and a drained pair look identical.
func (r *Registry) setBalance(id domain.TokenID, owner domain.Address, value uint64) {
	entry := r.balances[id]
	if entry == nil {
		if value == 0 {
			return
		}
		entry = make(map[domain.Address]uint64)
		r.balances[id] = entry
	}
	if value == 0 {
		delete(entry, owner)
		return
	}
	entry[owner] = value
}

func (r *Registry) emit(e Event) {
	if r.sink != nil {
		r.sink.Emit(e)
	}
}

func (r *Registry) resolveReceiver(addr domain.Address) any {
	if r.receivers == nil {
		return nil
	}
	return r.receivers(addr)
}
