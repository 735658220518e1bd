package notification

import (
	"context"
	"sync"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/notification"
)

// MemoryNotifier records published events in memory. Used in tests and
// when no webhook endpoint is configured.
type MemoryNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

// NewMemoryNotifier creates a new in-memory notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// Publish appends the batch to the recorded event log.
func (n *MemoryNotifier) Publish(ctx context.Context, events []notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, events...)
	return nil
}

// Events returns a copy of everything published so far.
func (n *MemoryNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]notification.Event, len(n.events))
	copy(out, n.events)
	return out
}
