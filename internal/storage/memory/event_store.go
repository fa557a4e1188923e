package memory

import (
	"context"
	"sync"

	"tweetstamp/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data []*storage.EventRecord
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append stores events in emission order.
func (s *EventStore) Append(_ context.Context, events []*storage.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil || e.TxHash == "" || e.Name == "" {
			return storage.ErrInvalidInput
		}
		// Store a copy to prevent external mutation
		eventCopy := *e
		if e.Params != nil {
			eventCopy.Params = make(map[string]string, len(e.Params))
			for k, v := range e.Params {
				eventCopy.Params[k] = v
			}
		}
		s.data = append(s.data, &eventCopy)
	}
	return nil
}

// GetByTx retrieves all events emitted by a transaction, in emission order.
func (s *EventStore) GetByTx(_ context.Context, txHash string) ([]*storage.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.EventRecord
	for _, e := range s.data {
		if e.TxHash == txHash {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	return result, nil
}

// GetByName retrieves the most recent events with the given name, newest
// first, at most limit entries.
func (s *EventStore) GetByName(_ context.Context, name string, limit int) ([]*storage.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.EventRecord
	for i := len(s.data) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if s.data[i].Name == name {
			eventCopy := *s.data[i]
			result = append(result, &eventCopy)
		}
	}
	return result, nil
}
