package tournament

import (
	"context"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// Repository manages tournament persistence.
type Repository interface {
	Save(ctx context.Context, tournament *Tournament) error
	Get(ctx context.Context, id shared.TournamentID) (*Tournament, error)
	Delete(ctx context.Context, id shared.TournamentID) error
	List(ctx context.Context, limit, offset int) ([]*Tournament, error)

	// AddParticipant atomically claims one join slot. It returns
	// ErrTournamentFull when no slot remains; two concurrent calls for the
	// last slot must yield exactly one success.
	AddParticipant(ctx context.Context, id shared.TournamentID) error

	// RemoveParticipant releases a previously claimed slot, used to roll
	// back a failed join.
	RemoveParticipant(ctx context.Context, id shared.TournamentID) error
}
