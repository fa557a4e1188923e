package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/storage"
)

// MintIntentStore implements storage.MintIntentStore using PostgreSQL.
// The unique constraint on token_id is what makes Claim safe across
// processes sharing one database.
type MintIntentStore struct {
	pool *Pool
}

// NewMintIntentStore creates a new MintIntentStore.
func NewMintIntentStore(pool *Pool) *MintIntentStore {
	return &MintIntentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MintIntentStore = (*MintIntentStore)(nil)

// Claim registers a new intent in state claimed. When an intent already
// exists it is returned alongside ErrDuplicateKey.
func (s *MintIntentStore) Claim(ctx context.Context, id domain.TokenID, username string) (*storage.MintIntent, error) {
	if id == 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO mint_intents (token_id, username, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id) DO NOTHING
	`

	now := time.Now().UnixMilli()
	tag, err := s.pool.Exec(ctx, query, int64(id), username, string(storage.IntentClaimed), now)
	if err != nil {
		return nil, fmt.Errorf("claim intent: %w", err)
	}

	if tag.RowsAffected() == 0 {
		existing, err := s.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load existing intent: %w", err)
		}
		return existing, storage.ErrDuplicateKey
	}

	return &storage.MintIntent{
		TokenID:   id,
		Username:  username,
		State:     storage.IntentClaimed,
		UpdatedAt: now,
	}, nil
}

// MarkAnchored records the anchor handle and moves the intent to anchored.
func (s *MintIntentStore) MarkAnchored(ctx context.Context, id domain.TokenID, uri string) error {
	query := `
		UPDATE mint_intents
		SET state = $2, uri = $3, updated_at = $4
		WHERE token_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, int64(id), string(storage.IntentAnchored), uri, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark intent anchored: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkMinted records the mint handle and moves the intent to minted.
func (s *MintIntentStore) MarkMinted(ctx context.Context, id domain.TokenID, txHash string) error {
	query := `
		UPDATE mint_intents
		SET state = $2, mint_tx_hash = $3, updated_at = $4
		WHERE token_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, int64(id), string(storage.IntentMinted), txHash, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark intent minted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get retrieves the intent for a token id. Returns ErrNotFound if not exists.
func (s *MintIntentStore) Get(ctx context.Context, id domain.TokenID) (*storage.MintIntent, error) {
	query := `
		SELECT token_id, username, state, uri, mint_tx_hash, updated_at
		FROM mint_intents
		WHERE token_id = $1
	`

	row := s.pool.QueryRow(ctx, query, int64(id))
	intent, err := scanIntent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get intent: %w", err)
	}
	return intent, nil
}

// Release deletes an intent still in state claimed.
func (s *MintIntentStore) Release(ctx context.Context, id domain.TokenID) error {
	query := `
		DELETE FROM mint_intents
		WHERE token_id = $1 AND state = $2
	`

	tag, err := s.pool.Exec(ctx, query, int64(id), string(storage.IntentClaimed))
	if err != nil {
		return fmt.Errorf("release intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing intent from one past the claimed state.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return storage.ErrInvalidInput
	}
	return nil
}

// scanIntent scans a single mint intent row.
func scanIntent(row pgx.Row) (*storage.MintIntent, error) {
	var (
		tokenID    int64
		username   string
		state      string
		uri        *string
		mintTxHash *string
		updatedAt  int64
	)
	if err := row.Scan(&tokenID, &username, &state, &uri, &mintTxHash, &updatedAt); err != nil {
		return nil, err
	}

	intent := &storage.MintIntent{
		TokenID:   domain.TokenID(tokenID),
		Username:  username,
		State:     storage.IntentState(state),
		UpdatedAt: updatedAt,
	}
	if uri != nil {
		intent.URI = *uri
	}
	if mintTxHash != nil {
		intent.MintTxHash = *mintTxHash
	}
	return intent, nil
}
