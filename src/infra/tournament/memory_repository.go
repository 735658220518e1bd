package tournament

import (
	"context"
	"sort"
	"sync"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
)

// MemoryRepository implements tournament.Repository using in-memory storage.
type MemoryRepository struct {
	mu          sync.RWMutex
	tournaments map[shared.TournamentID]*tournament.Tournament
}

// NewMemoryRepository creates a new in-memory tournament repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tournaments: make(map[shared.TournamentID]*tournament.Tournament),
	}
}

// Save stores a tournament.
func (r *MemoryRepository) Save(ctx context.Context, t *tournament.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tournaments[t.ID] = t.Clone()
	return nil
}

// Get retrieves a copy of a tournament by ID. Callers never share state
// with the store.
func (r *MemoryRepository) Get(ctx context.Context, id shared.TournamentID) (*tournament.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tournaments[id]
	if !exists {
		return nil, tournament.ErrTournamentNotFound
	}

	return t.Clone(), nil
}

// Delete removes a tournament.
func (r *MemoryRepository) Delete(ctx context.Context, id shared.TournamentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tournaments[id]; !exists {
		return tournament.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

// List retrieves a paginated list of tournaments ordered by start time.
func (r *MemoryRepository) List(ctx context.Context, limit, offset int) ([]*tournament.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tournaments := make([]*tournament.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		tournaments = append(tournaments, t.Clone())
	}
	sort.Slice(tournaments, func(i, j int) bool {
		if tournaments[i].StartTime.Equal(tournaments[j].StartTime) {
			return tournaments[i].ID < tournaments[j].ID
		}
		return tournaments[i].StartTime.Before(tournaments[j].StartTime)
	})

	start := offset
	if start > len(tournaments) {
		return []*tournament.Tournament{}, nil
	}

	end := start + limit
	if end > len(tournaments) {
		end = len(tournaments)
	}

	return tournaments[start:end], nil
}

// AddParticipant claims one join slot. The capacity check and increment
// run under the write lock so concurrent joins for the last slot cannot
// both succeed.
func (r *MemoryRepository) AddParticipant(ctx context.Context, id shared.TournamentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.tournaments[id]
	if !exists {
		return tournament.ErrTournamentNotFound
	}
	if t.CurrentParticipants >= t.MaxParticipants {
		return tournament.ErrTournamentFull
	}
	t.CurrentParticipants++
	return nil
}

// RemoveParticipant releases a previously claimed slot.
func (r *MemoryRepository) RemoveParticipant(ctx context.Context, id shared.TournamentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.tournaments[id]
	if !exists {
		return tournament.ErrTournamentNotFound
	}
	if t.CurrentParticipants > 0 {
		t.CurrentParticipants--
	}
	return nil
}
