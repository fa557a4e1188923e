package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tweetstamp/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse. Events are
// append-only; MergeTree ordering by emission time keeps range scans cheap.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append stores events in emission order.
func (s *EventStore) Append(ctx context.Context, events []*storage.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e.TxHash == "" || e.Name == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ledger_events (tx_hash, name, params, emitted_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		params := e.Params
		if params == nil {
			params = map[string]string{}
		}
		err = batch.Append(e.TxHash, e.Name, params, time.UnixMilli(e.EmittedAt))
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTx retrieves all events emitted by a transaction, in emission order.
func (s *EventStore) GetByTx(ctx context.Context, txHash string) ([]*storage.EventRecord, error) {
	query := `
		SELECT tx_hash, name, params, emitted_at
		FROM ledger_events
		WHERE tx_hash = ?
		ORDER BY emitted_at ASC
	`

	rows, err := s.conn.Query(ctx, query, txHash)
	if err != nil {
		return nil, fmt.Errorf("query by tx hash: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByName retrieves the most recent events with the given name, newest
// first, at most limit entries.
func (s *EventStore) GetByName(ctx context.Context, name string, limit int) ([]*storage.EventRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT tx_hash, name, params, emitted_at
		FROM ledger_events
		WHERE name = ?
		ORDER BY emitted_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, name, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query by name: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// scanEvents scans event rows into records.
func scanEvents(rows driver.Rows) ([]*storage.EventRecord, error) {
	var events []*storage.EventRecord
	for rows.Next() {
		var (
			rec       storage.EventRecord
			params    map[string]string
			emittedAt time.Time
		)
		if err := rows.Scan(&rec.TxHash, &rec.Name, &params, &emittedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		rec.Params = params
		rec.EmittedAt = emittedAt.UnixMilli()
		events = append(events, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}
