package ranking

import (
	"context"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// SettlementRepository stores the durable settlement snapshot. Live
// rankings are recomputed on demand and never persisted.
type SettlementRepository interface {
	// SaveResults persists the final results exactly once per tournament;
	// a second save for the same tournament returns ErrAlreadySettled.
	SaveResults(ctx context.Context, tournamentID shared.TournamentID, results []Result) error
	// GetResults returns the stored settlement, or ErrNotSettled when the
	// tournament has no settlement yet.
	GetResults(ctx context.Context, tournamentID shared.TournamentID) ([]Result, error)
}
