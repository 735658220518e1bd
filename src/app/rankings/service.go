package rankings

import (
	"context"
	"sync"
	"time"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/notification"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
)

// Service computes live leaderboards from tournament wallets. Rankings are
// an eventually-consistent projection: the snapshot may trail in-flight
// trades and is never the source of truth.
type Service struct {
	Tournaments tournament.Repository
	Wallets     wallet.Repository
	Notifier    notification.Notifier
	Policy      ranking.TiebreakPolicy
	Clock       func() time.Time

	mu        sync.Mutex
	lastRanks map[shared.TournamentID]map[shared.UserID]int
}

// NewService creates a ranking service with the fewer-trades tiebreak.
func NewService(tournaments tournament.Repository, walletRepo wallet.Repository, notifier notification.Notifier) *Service {
	return &Service{
		Tournaments: tournaments,
		Wallets:     walletRepo,
		Notifier:    notifier,
		Policy:      ranking.TiebreakFewerTrades,
		Clock:       func() time.Time { return time.Now().UTC() },
		lastRanks:   make(map[shared.TournamentID]map[shared.UserID]int),
	}
}

// UpdateLiveRankings recomputes the leaderboard for a tournament. It reads
// wallet state only, so calling it twice without intervening trades yields
// identical output.
func (s *Service) UpdateLiveRankings(ctx context.Context, tournamentID shared.TournamentID) ([]ranking.Ranking, error) {
	tour, err := s.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	entries, err := s.SnapshotEntries(ctx, tour)
	if err != nil {
		return nil, err
	}

	rankings := ranking.Rank(entries, s.Policy)
	s.notifyRankChanges(ctx, tournamentID, rankings)
	return rankings, nil
}

// SnapshotEntries builds ranking input rows from every wallet of a
// tournament without mutating wallet state.
func (s *Service) SnapshotEntries(ctx context.Context, tour *tournament.Tournament) ([]ranking.Entry, error) {
	walletList, err := s.Wallets.ListByTournament(ctx, tour.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]ranking.Entry, 0, len(walletList))
	for _, w := range walletList {
		entries = append(entries, ranking.Entry{
			UserID:             w.UserID,
			TotalAssets:        w.TotalValue(),
			TotalReturnPercent: w.ReturnPercent(tour.InitialBalance),
			TotalTrades:        w.TradeCount(),
			WinRate:            w.WinRate(),
		})
	}
	return entries, nil
}

// notifyRankChanges emits rank_changed events for users whose position
// moved since the previous snapshot of the same tournament.
func (s *Service) notifyRankChanges(ctx context.Context, tournamentID shared.TournamentID, rankings []ranking.Ranking) {
	s.mu.Lock()
	previous := s.lastRanks[tournamentID]
	current := make(map[shared.UserID]int, len(rankings))
	for _, r := range rankings {
		current[r.UserID] = r.Rank
	}
	s.lastRanks[tournamentID] = current
	s.mu.Unlock()

	if s.Notifier == nil || previous == nil {
		return
	}

	now := s.Clock()
	var events []notification.Event
	for _, r := range rankings {
		old, ok := previous[r.UserID]
		if !ok || old == r.Rank {
			continue
		}
		events = append(events, notification.Event{
			Recipient:    r.UserID,
			TournamentID: tournamentID,
			Type:         notification.EventRankChanged,
			Data: map[string]any{
				"previous_rank": old,
				"current_rank":  r.Rank,
			},
			OccurredAt: now,
		})
	}
	if len(events) == 0 {
		return
	}
	// Rank notifications are advisory; delivery failures are dropped.
	_ = s.Notifier.Publish(ctx, events)
}
