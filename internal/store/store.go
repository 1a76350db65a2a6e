// ABOUTME: Store interface and data types for the relay transcript and action audit log.
// ABOUTME: History only; conversation state itself is deliberately in-memory.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Message direction constants
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message is one transcript entry: a message received from or sent to a user.
type Message struct {
	ID        string
	UserID    string
	Direction string // "inbound" or "outbound"
	Content   string
	CreatedAt time.Time
}

// ActionRecord is one audit entry for a dispatched action.
type ActionRecord struct {
	ID         string
	UserID     string
	Name       string
	ParamsJSON string
	Success    bool
	Message    string
	CreatedAt  time.Time
}

// Store defines the interface for transcript and action persistence
type Store interface {
	SaveMessage(ctx context.Context, msg *Message) error
	RecentMessages(ctx context.Context, userID string, limit int) ([]*Message, error)

	SaveAction(ctx context.Context, rec *ActionRecord) error

	Close() error
}

// NopStore discards everything; used when database.driver is "none".
type NopStore struct{}

// NewNopStore creates a store that persists nothing.
func NewNopStore() *NopStore { return &NopStore{} }

func (*NopStore) SaveMessage(context.Context, *Message) error { return nil }

func (*NopStore) RecentMessages(context.Context, string, int) ([]*Message, error) {
	return nil, nil
}

func (*NopStore) SaveAction(context.Context, *ActionRecord) error { return nil }

func (*NopStore) Close() error { return nil }
