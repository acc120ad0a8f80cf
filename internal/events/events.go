package events

import (
	"context"
	"sync"
	"time"
)

// StockMovement describes one committed stock operation.
type StockMovement struct {
	EventID              string    `json:"event_id"`
	Type                 string    `json:"type"`
	ItemID               int64     `json:"item_id"`
	TransactionID        int64     `json:"transaction_id"`
	BorrowTransactionID  *int64    `json:"borrow_transaction_id,omitempty"`
	Quantity             int       `json:"quantity"`
	Receiver             string    `json:"receiver,omitempty"`
	ItemQuantity         int       `json:"item_quantity"`
	ItemBorrowedQuantity int       `json:"item_borrowed_quantity"`
	ActorID              *int64    `json:"actor_id,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// Publisher delivers stock events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event StockMovement) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, StockMovement) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

// MemoryPublisher keeps published events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []StockMovement
}

// NewMemoryPublisher creates an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event StockMovement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []StockMovement {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StockMovement, len(p.events))
	copy(out, p.events)
	return out
}
