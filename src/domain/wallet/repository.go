package wallet

import (
	"context"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// Repository manages wallet persistence. A wallet is keyed by the
// (tournament, user) pair and at most one may exist per pair.
type Repository interface {
	// Create stores a new wallet, rejecting duplicates for the same
	// (tournament, user) pair with ErrDuplicateWallet.
	Create(ctx context.Context, w *Wallet) error
	Get(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) (*Wallet, error)
	Save(ctx context.Context, w *Wallet) error
	ListByTournament(ctx context.Context, tournamentID shared.TournamentID) ([]*Wallet, error)
	Delete(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) error
}
