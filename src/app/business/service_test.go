package business_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/app/business"
	"github.com/WyattLin001/invest-tournament-engine/src/app/rankings"
	"github.com/WyattLin001/invest-tournament-engine/src/app/wallets"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/notification"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
	notificationinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/notification"
	pricinginfra "github.com/WyattLin001/invest-tournament-engine/src/infra/pricing"
	rankinginfra "github.com/WyattLin001/invest-tournament-engine/src/infra/ranking"
	tournamentinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/tournament"
	walletinfra "github.com/WyattLin001/invest-tournament-engine/src/infra/wallet"
)

type fixture struct {
	business   *business.Service
	wallets    *wallets.Service
	walletRepo *walletinfra.MemoryRepository
	repo       *tournamentinfra.MemoryRepository
	notifier   *notificationinfra.MemoryNotifier
	tour       *tournament.Tournament
}

func newFixture(t *testing.T, status tournament.Status, maxParticipants int) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	tour, err := tournament.NewTournament(
		"t1", "Test", "", tournament.TypeWeekly,
		now.Add(-time.Hour), now.Add(24*time.Hour),
		decimal.NewFromInt(1000000), maxParticipants, now,
	)
	if err != nil {
		t.Fatalf("NewTournament() error = %v", err)
	}
	tour.Status = status
	tour.PrizePool = decimal.NewFromInt(50000)

	repo := tournamentinfra.NewMemoryRepository()
	if err := repo.Save(ctx, tour); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	walletRepo := walletinfra.NewMemoryRepository()
	walletSvc := wallets.NewService(walletRepo, pricinginfra.NewStaticFeed(nil))
	notifier := notificationinfra.NewMemoryNotifier()
	rankingSvc := rankings.NewService(repo, walletRepo, nil)
	settlementRepo := rankinginfra.NewMemorySettlementRepository()

	return &fixture{
		business:   business.NewService(repo, walletSvc, walletRepo, settlementRepo, rankingSvc, notifier),
		wallets:    walletSvc,
		walletRepo: walletRepo,
		repo:       repo,
		notifier:   notifier,
		tour:       tour,
	}
}

func TestService_JoinTournament(t *testing.T) {
	ctx := context.Background()

	t.Run("join funds a wallet and claims a slot", func(t *testing.T) {
		f := newFixture(t, tournament.StatusActive, 10)

		if err := f.business.JoinTournament(ctx, "t1", "u1"); err != nil {
			t.Fatalf("JoinTournament() error = %v", err)
		}

		w, err := f.wallets.GetWallet(ctx, "t1", "u1")
		if err != nil {
			t.Fatalf("GetWallet() error = %v", err)
		}
		if !w.Cash.Equal(f.tour.InitialBalance) {
			t.Errorf("cash = %v, want %v", w.Cash, f.tour.InitialBalance)
		}

		tour, _ := f.repo.Get(ctx, "t1")
		if tour.CurrentParticipants != 1 {
			t.Errorf("participants = %d, want 1", tour.CurrentParticipants)
		}
	})

	t.Run("second join rejected", func(t *testing.T) {
		f := newFixture(t, tournament.StatusActive, 10)

		if err := f.business.JoinTournament(ctx, "t1", "u1"); err != nil {
			t.Fatalf("first join error = %v", err)
		}
		err := f.business.JoinTournament(ctx, "t1", "u1")
		if !errors.Is(err, business.ErrAlreadyJoined) {
			t.Fatalf("second join error = %v, want ErrAlreadyJoined", err)
		}

		tour, _ := f.repo.Get(ctx, "t1")
		if tour.CurrentParticipants != 1 {
			t.Errorf("participants = %d, want 1 after rejected duplicate", tour.CurrentParticipants)
		}
	})

	t.Run("ended tournament rejects joins", func(t *testing.T) {
		f := newFixture(t, tournament.StatusEnded, 10)

		err := f.business.JoinTournament(ctx, "t1", "u1")
		if !errors.Is(err, tournament.ErrTournamentNotActive) {
			t.Fatalf("JoinTournament() error = %v, want ErrTournamentNotActive", err)
		}
	})

	t.Run("full tournament rejects joins", func(t *testing.T) {
		f := newFixture(t, tournament.StatusActive, 1)

		if err := f.business.JoinTournament(ctx, "t1", "u1"); err != nil {
			t.Fatalf("first join error = %v", err)
		}
		err := f.business.JoinTournament(ctx, "t1", "u2")
		if !errors.Is(err, tournament.ErrTournamentFull) {
			t.Fatalf("JoinTournament() error = %v, want ErrTournamentFull", err)
		}
	})
}

func TestService_JoinTournament_ConcurrentJoinsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	const capacity = 5
	const contenders = 20

	f := newFixture(t, tournament.StatusActive, capacity)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	wg.Add(contenders)
	for i := 0; i < contenders; i++ {
		go func(n int) {
			defer wg.Done()
			userID := shared.UserID(fmt.Sprintf("u%d", n))
			errs[n] = f.business.JoinTournament(ctx, "t1", userID)
		}(i)
	}
	wg.Wait()

	var joined, full int
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, tournament.ErrTournamentFull):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if joined != capacity {
		t.Errorf("joined = %d, want exactly %d", joined, capacity)
	}
	if full != contenders-capacity {
		t.Errorf("rejected = %d, want %d", full, contenders-capacity)
	}

	tour, _ := f.repo.Get(ctx, "t1")
	if tour.CurrentParticipants != capacity {
		t.Errorf("participants = %d, want %d", tour.CurrentParticipants, capacity)
	}
	walletList, _ := f.walletRepo.ListByTournament(ctx, "t1")
	if len(walletList) != capacity {
		t.Errorf("wallets = %d, want %d", len(walletList), capacity)
	}
}

func (f *fixture) joinAndSkew(t *testing.T, userID shared.UserID, cash int64) {
	t.Helper()
	ctx := context.Background()
	if err := f.business.JoinTournament(ctx, "t1", userID); err != nil {
		t.Fatalf("JoinTournament(%s) error = %v", userID, err)
	}
	w, err := f.wallets.GetWallet(ctx, "t1", userID)
	if err != nil {
		t.Fatalf("GetWallet(%s) error = %v", userID, err)
	}
	w.Cash = decimal.NewFromInt(cash)
	if err := f.walletRepo.Save(ctx, w); err != nil {
		t.Fatalf("Save(%s) error = %v", userID, err)
	}
}

func (f *fixture) endTournament(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	tour, err := f.repo.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := tour.End(time.Now().UTC()); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := f.repo.Save(ctx, tour); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestService_SettleTournament(t *testing.T) {
	ctx := context.Background()

	t.Run("active tournament cannot settle", func(t *testing.T) {
		f := newFixture(t, tournament.StatusActive, 10)
		_, err := f.business.SettleTournament(ctx, "t1")
		if !errors.Is(err, tournament.ErrTournamentNotEnded) {
			t.Fatalf("SettleTournament() error = %v, want ErrTournamentNotEnded", err)
		}
	})

	t.Run("settle ranks, splits the pool and marks settled", func(t *testing.T) {
		f := newFixture(t, tournament.StatusActive, 10)
		f.joinAndSkew(t, "u1", 1200000)
		f.joinAndSkew(t, "u2", 1100000)
		f.joinAndSkew(t, "u3", 1050000)
		f.joinAndSkew(t, "u4", 900000)

		f.endTournament(t)

		results, err := f.business.SettleTournament(ctx, "t1")
		if err != nil {
			t.Fatalf("SettleTournament() error = %v", err)
		}
		if len(results) != 4 {
			t.Fatalf("results = %d, want 4", len(results))
		}

		wantRewards := []string{"25000", "15000", "10000"}
		for i, want := range wantRewards {
			if results[i].Reward == nil {
				t.Fatalf("rank %d reward is nil", i+1)
			}
			if got := results[i].Reward.Amount.String(); got != want {
				t.Errorf("rank %d reward = %s, want %s", i+1, got, want)
			}
		}
		if results[3].Reward != nil {
			t.Errorf("rank 4 reward = %+v, want nil", results[3].Reward)
		}

		tour, _ := f.repo.Get(ctx, "t1")
		if tour.Status != tournament.StatusSettled {
			t.Errorf("status = %v, want settled", tour.Status)
		}

		var settledEvents int
		for _, event := range f.notifier.Events() {
			if event.Type == notification.EventTournamentSettled {
				settledEvents++
			}
		}
		if settledEvents != 4 {
			t.Errorf("settled events = %d, want 4", settledEvents)
		}
	})

	t.Run("settlement is idempotent", func(t *testing.T) {
		f := newFixture(t, tournament.StatusActive, 10)
		f.joinAndSkew(t, "u1", 1200000)
		f.joinAndSkew(t, "u2", 900000)

		f.endTournament(t)

		first, err := f.business.SettleTournament(ctx, "t1")
		if err != nil {
			t.Fatalf("first settle error = %v", err)
		}

		// Mutating balances after settlement must not change the stored
		// result.
		f.joinAndSkewSettled(t, "u2", 5000000)

		second, err := f.business.SettleTournament(ctx, "t1")
		if err != nil {
			t.Fatalf("second settle error = %v", err)
		}
		if len(first) != len(second) {
			t.Fatalf("result lengths differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].UserID != second[i].UserID || first[i].Rank != second[i].Rank {
				t.Errorf("row %d differs: %+v vs %+v", i, first[i].Ranking, second[i].Ranking)
			}
		}
	})

	t.Run("concurrent settles award once", func(t *testing.T) {
		f := newFixture(t, tournament.StatusActive, 10)
		f.joinAndSkew(t, "u1", 1200000)

		f.endTournament(t)

		const attempts = 8
		var wg sync.WaitGroup
		results := make([][]ranking.Result, attempts)
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func(n int) {
				defer wg.Done()
				out, err := f.business.SettleTournament(ctx, "t1")
				if err != nil {
					t.Errorf("settle %d error = %v", n, err)
					return
				}
				results[n] = out
			}(i)
		}
		wg.Wait()

		for i := 1; i < attempts; i++ {
			if len(results[i]) != len(results[0]) {
				t.Fatalf("settle %d returned %d rows, settle 0 returned %d", i, len(results[i]), len(results[0]))
			}
		}
	})
}

// joinAndSkewSettled adjusts a wallet after settlement without joining.
func (f *fixture) joinAndSkewSettled(t *testing.T, userID shared.UserID, cash int64) {
	t.Helper()
	ctx := context.Background()
	w, err := f.wallets.GetWallet(ctx, "t1", userID)
	if err != nil {
		t.Fatalf("GetWallet(%s) error = %v", userID, err)
	}
	w.Cash = decimal.NewFromInt(cash)
	if err := f.walletRepo.Save(ctx, w); err != nil {
		t.Fatalf("Save(%s) error = %v", userID, err)
	}
}
