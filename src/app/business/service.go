package business

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/app/wallets"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/notification"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
)

// ErrAlreadyJoined rejects a second join for the same (tournament, user).
var ErrAlreadyJoined = errors.New("user already joined tournament")

// WalletCreator funds wallets on join; wallets.Service implements it.
type WalletCreator interface {
	CreateWallet(ctx context.Context, cmd wallets.CreateWalletCommand) (*wallet.Wallet, error)
}

// EntrySource produces ranking input rows for settlement snapshots;
// rankings.Service implements it.
type EntrySource interface {
	SnapshotEntries(ctx context.Context, tour *tournament.Tournament) ([]ranking.Entry, error)
}

// Service handles enrollment and end-of-tournament settlement.
type Service struct {
	Tournaments       tournament.Repository
	Wallets           WalletCreator
	WalletReader      wallet.Repository
	Settlements       ranking.SettlementRepository
	Entries           EntrySource
	Notifier          notification.Notifier
	Policy            ranking.TiebreakPolicy
	PrizeDistribution []decimal.Decimal
	Clock             func() time.Time

	mu          sync.Mutex
	settleLocks map[shared.TournamentID]*sync.Mutex
}

// NewService creates a business service with the default prize split.
func NewService(
	tournaments tournament.Repository,
	walletCreator WalletCreator,
	walletReader wallet.Repository,
	settlements ranking.SettlementRepository,
	entries EntrySource,
	notifier notification.Notifier,
) *Service {
	return &Service{
		Tournaments:       tournaments,
		Wallets:           walletCreator,
		WalletReader:      walletReader,
		Settlements:       settlements,
		Entries:           entries,
		Notifier:          notifier,
		Policy:            ranking.TiebreakFewerTrades,
		PrizeDistribution: ranking.DefaultPrizeDistribution(),
		Clock:             func() time.Time { return time.Now().UTC() },
		settleLocks:       make(map[shared.TournamentID]*sync.Mutex),
	}
}

func (s *Service) settleLockFor(id shared.TournamentID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.settleLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.settleLocks[id] = lock
	}
	return lock
}

// JoinTournament enrolls a user: one join slot and one funded wallet as a
// single logical unit. The slot is claimed first with an atomic
// capacity-checked increment, then released if wallet creation fails, so
// two concurrent joins for the last slot yield exactly one success.
func (s *Service) JoinTournament(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) error {
	if err := userID.Validate(); err != nil {
		return err
	}

	tour, err := s.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tour.Status != tournament.StatusUpcoming && tour.Status != tournament.StatusActive {
		return tournament.ErrTournamentNotActive
	}

	// Fast path; the duplicate-create check below is the authority.
	if _, err := s.WalletReader.Get(ctx, tournamentID, userID); err == nil {
		return ErrAlreadyJoined
	}

	if err := s.Tournaments.AddParticipant(ctx, tournamentID); err != nil {
		return err
	}

	_, err = s.Wallets.CreateWallet(ctx, wallets.CreateWalletCommand{
		TournamentID:   tournamentID,
		UserID:         userID,
		InitialBalance: tour.InitialBalance,
	})
	if err != nil {
		// Release the claimed slot; the join must be all or nothing.
		_ = s.Tournaments.RemoveParticipant(ctx, tournamentID)
		if errors.Is(err, wallet.ErrDuplicateWallet) {
			return ErrAlreadyJoined
		}
		return err
	}

	return nil
}

// SettleTournament finalizes an ended tournament into ranked results with
// rewards for the top prize ranks. Settlement is idempotent: the stored
// result set is returned on every call after the first, and a
// per-tournament lock keeps concurrent attempts from double-awarding.
func (s *Service) SettleTournament(ctx context.Context, tournamentID shared.TournamentID) ([]ranking.Result, error) {
	lock := s.settleLockFor(tournamentID)
	lock.Lock()
	defer lock.Unlock()

	if existing, err := s.Settlements.GetResults(ctx, tournamentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ranking.ErrNotSettled) {
		return nil, err
	}

	tour, err := s.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !tour.HasEnded() {
		return nil, tournament.ErrTournamentNotEnded
	}

	entries, err := s.Entries.SnapshotEntries(ctx, tour)
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	rankingsSnapshot := ranking.Rank(entries, s.Policy)
	results := ranking.SplitPrizePool(rankingsSnapshot, tour.PrizePool, s.PrizeDistribution, now)

	if err := s.Settlements.SaveResults(ctx, tournamentID, results); err != nil {
		if errors.Is(err, ranking.ErrAlreadySettled) {
			return s.Settlements.GetResults(ctx, tournamentID)
		}
		return nil, err
	}

	if tour.Status == tournament.StatusEnded {
		if err := tour.MarkSettled(now); err == nil {
			if err := s.Tournaments.Save(ctx, tour); err != nil {
				return nil, err
			}
		}
	}

	s.notifySettled(ctx, tournamentID, results, now)
	return results, nil
}

func (s *Service) notifySettled(ctx context.Context, tournamentID shared.TournamentID, results []ranking.Result, now time.Time) {
	if s.Notifier == nil {
		return
	}
	events := make([]notification.Event, 0, len(results))
	for _, result := range results {
		data := map[string]any{
			"final_rank":     result.Rank,
			"total_assets":   result.TotalAssets.String(),
			"return_percent": result.TotalReturnPercent.String(),
		}
		if result.Reward != nil {
			data["reward_amount"] = result.Reward.Amount.String()
			data["reward_type"] = result.Reward.Type
		}
		events = append(events, notification.Event{
			Recipient:    result.UserID,
			TournamentID: tournamentID,
			Type:         notification.EventTournamentSettled,
			Data:         data,
			OccurredAt:   now,
		})
	}
	// Settlement already persisted; notification failures are dropped.
	_ = s.Notifier.Publish(ctx, events)
}
