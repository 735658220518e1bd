package ranking

import (
	"context"
	"sync"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// MemorySettlementRepository implements ranking.SettlementRepository using
// in-memory storage. Results for a tournament are written at most once.
type MemorySettlementRepository struct {
	mu      sync.RWMutex
	results map[shared.TournamentID][]ranking.Result
}

// NewMemorySettlementRepository creates a new in-memory settlement repository.
func NewMemorySettlementRepository() *MemorySettlementRepository {
	return &MemorySettlementRepository{
		results: make(map[shared.TournamentID][]ranking.Result),
	}
}

// SaveResults stores the settlement result set, rejecting a second write
// for the same tournament.
func (r *MemorySettlementRepository) SaveResults(ctx context.Context, tournamentID shared.TournamentID, results []ranking.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.results[tournamentID]; exists {
		return ranking.ErrAlreadySettled
	}

	stored := make([]ranking.Result, len(results))
	copy(stored, results)
	r.results[tournamentID] = stored
	return nil
}

// GetResults retrieves the stored settlement results.
func (r *MemorySettlementRepository) GetResults(ctx context.Context, tournamentID shared.TournamentID) ([]ranking.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results, exists := r.results[tournamentID]
	if !exists {
		return nil, ranking.ErrNotSettled
	}

	out := make([]ranking.Result, len(results))
	copy(out, results)
	return out, nil
}
