package memory

import (
	"context"
	"sync"
	"time"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/storage"
)

// MintIntentStore is an in-memory implementation of storage.MintIntentStore.
type MintIntentStore struct {
	mu   sync.Mutex
	data map[domain.TokenID]*storage.MintIntent
}

// NewMintIntentStore creates a new in-memory mint intent store.
func NewMintIntentStore() *MintIntentStore {
	return &MintIntentStore{
		data: make(map[domain.TokenID]*storage.MintIntent),
	}
}

// Compile-time interface check.
var _ storage.MintIntentStore = (*MintIntentStore)(nil)

// Claim registers a new intent in state claimed. When an intent already
// exists it is returned alongside ErrDuplicateKey.
func (s *MintIntentStore) Claim(_ context.Context, id domain.TokenID, username string) (*storage.MintIntent, error) {
	if id == 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[id]; ok {
		intentCopy := *existing
		return &intentCopy, storage.ErrDuplicateKey
	}

	intent := &storage.MintIntent{
		TokenID:   id,
		Username:  username,
		State:     storage.IntentClaimed,
		UpdatedAt: time.Now().UnixMilli(),
	}
	s.data[id] = intent

	intentCopy := *intent
	return &intentCopy, nil
}

// MarkAnchored records the anchor handle and moves the intent to anchored.
func (s *MintIntentStore) MarkAnchored(_ context.Context, id domain.TokenID, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	intent.State = storage.IntentAnchored
	intent.URI = uri
	intent.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// MarkMinted records the mint handle and moves the intent to minted.
func (s *MintIntentStore) MarkMinted(_ context.Context, id domain.TokenID, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	intent.State = storage.IntentMinted
	intent.MintTxHash = txHash
	intent.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// Get retrieves the intent for a token id.
func (s *MintIntentStore) Get(_ context.Context, id domain.TokenID) (*storage.MintIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	intentCopy := *intent
	return &intentCopy, nil
}

// Release deletes an intent still in state claimed.
func (s *MintIntentStore) Release(_ context.Context, id domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	if intent.State != storage.IntentClaimed {
		return storage.ErrInvalidInput
	}
	delete(s.data, id)
	return nil
}
