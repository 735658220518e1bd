package notification

import (
	"context"
	"errors"
	"time"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// ErrDispatchFailed indicates the delivery backend rejected a batch.
var ErrDispatchFailed = errors.New("notification dispatch failed")

// EventType classifies engine-emitted notification events.
type EventType string

const (
	EventRankChanged       EventType = "rank_changed"
	EventTournamentSettled EventType = "tournament_settled"
	EventTradeExecuted     EventType = "trade_executed"
)

// Event is the payload handed to the delivery collaborator. The engine
// produces recipient, type and structured data; delivery transport is not
// its concern.
type Event struct {
	Recipient    shared.UserID
	TournamentID shared.TournamentID
	Type         EventType
	Data         map[string]any
	OccurredAt   time.Time
}

// Notifier delivers events to end users, fire-and-forget. Implementations
// must not block engine fund paths on delivery.
type Notifier interface {
	Publish(ctx context.Context, events []Event) error
}
