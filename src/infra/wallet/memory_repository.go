package wallet

import (
	"context"
	"sync"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
)

// MemoryRepository implements wallet.Repository using in-memory storage.
type MemoryRepository struct {
	mu      sync.RWMutex
	wallets map[string]*wallet.Wallet
}

// NewMemoryRepository creates a new in-memory wallet repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		wallets: make(map[string]*wallet.Wallet),
	}
}

func makeKey(tournamentID shared.TournamentID, userID shared.UserID) string {
	return string(tournamentID) + ":" + string(userID)
}

// Create stores a new wallet, rejecting a second wallet for the same
// (tournament, user) pair.
func (r *MemoryRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := makeKey(w.TournamentID, w.UserID)
	if _, exists := r.wallets[key]; exists {
		return wallet.ErrDuplicateWallet
	}
	r.wallets[key] = w.Clone()
	return nil
}

// Get retrieves a copy of a wallet. Callers never share state with the
// store, so a loaded wallet can be read or mutated without racing
// concurrent saves.
func (r *MemoryRepository) Get(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) (*wallet.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, exists := r.wallets[makeKey(tournamentID, userID)]
	if !exists {
		return nil, wallet.ErrWalletNotFound
	}

	return w.Clone(), nil
}

// Save stores a copy of the wallet.
func (r *MemoryRepository) Save(ctx context.Context, w *wallet.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wallets[makeKey(w.TournamentID, w.UserID)] = w.Clone()
	return nil
}

// ListByTournament retrieves copies of all wallets in a tournament.
func (r *MemoryRepository) ListByTournament(ctx context.Context, tournamentID shared.TournamentID) ([]*wallet.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallets := make([]*wallet.Wallet, 0)
	for _, w := range r.wallets {
		if w.TournamentID == tournamentID {
			wallets = append(wallets, w.Clone())
		}
	}

	return wallets, nil
}

// Delete removes a wallet.
func (r *MemoryRepository) Delete(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := makeKey(tournamentID, userID)
	if _, exists := r.wallets[key]; !exists {
		return wallet.ErrWalletNotFound
	}
	delete(r.wallets, key)
	return nil
}
