package ranking

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// TiebreakPolicy decides ordering between entries with equal returns.
type TiebreakPolicy string

const (
	// TiebreakFewerTrades ranks the participant with fewer trades first,
	// rewarding efficiency over churn.
	TiebreakFewerTrades TiebreakPolicy = "fewer_trades"
	// TiebreakUserID gives a stable but arbitrary ordering.
	TiebreakUserID TiebreakPolicy = "user_id"
)

// Entry is one participant's portfolio summary fed into ranking.
type Entry struct {
	UserID             shared.UserID
	TotalAssets        decimal.Decimal
	TotalReturnPercent decimal.Decimal
	TotalTrades        int
	WinRate            decimal.Decimal
}

// Ranking is a single leaderboard row. Ranks are dense and 1-based.
type Ranking struct {
	Rank               int
	UserID             shared.UserID
	TotalAssets        decimal.Decimal
	TotalReturnPercent decimal.Decimal
	TotalTrades        int
	WinRate            decimal.Decimal
}

// Reward describes a prize assigned at settlement.
type Reward struct {
	Type        string
	Amount      decimal.Decimal
	Description string
}

// Result is a settled ranking row. Reward is nil below the prize ranks.
type Result struct {
	Ranking
	Reward    *Reward
	SettledAt time.Time
}

// Rank sorts entries descending by total return percent, breaks ties with
// the given policy and assigns dense 1-based ranks. It is a pure
// projection: the input is not mutated and equal inputs yield equal output.
func Rank(entries []Entry, policy TiebreakPolicy) []Ranking {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := sorted[i].TotalReturnPercent.Cmp(sorted[j].TotalReturnPercent)
		if cmp != 0 {
			return cmp > 0
		}
		switch policy {
		case TiebreakFewerTrades:
			if sorted[i].TotalTrades != sorted[j].TotalTrades {
				return sorted[i].TotalTrades < sorted[j].TotalTrades
			}
			return sorted[i].UserID < sorted[j].UserID
		default:
			return sorted[i].UserID < sorted[j].UserID
		}
	})

	rankings := make([]Ranking, len(sorted))
	for i, entry := range sorted {
		rankings[i] = Ranking{
			Rank:               i + 1,
			UserID:             entry.UserID,
			TotalAssets:        entry.TotalAssets,
			TotalReturnPercent: entry.TotalReturnPercent,
			TotalTrades:        entry.TotalTrades,
			WinRate:            entry.WinRate,
		}
	}
	return rankings
}

// DefaultPrizeDistribution splits the pool 50/30/20 across the top three.
func DefaultPrizeDistribution() []decimal.Decimal {
	return []decimal.Decimal{
		decimal.RequireFromString("0.5"),
		decimal.RequireFromString("0.3"),
		decimal.RequireFromString("0.2"),
	}
}

// SplitPrizePool maps rankings to results, attaching rewards to the top
// len(distribution) ranks and nil rewards below.
func SplitPrizePool(rankings []Ranking, prizePool decimal.Decimal, distribution []decimal.Decimal, settledAt time.Time) []Result {
	results := make([]Result, len(rankings))
	for i, r := range rankings {
		result := Result{Ranking: r, SettledAt: settledAt}
		if i < len(distribution) && prizePool.Sign() > 0 {
			result.Reward = &Reward{
				Type:        "prize_pool",
				Amount:      prizePool.Mul(distribution[i]),
				Description: "tournament prize",
			}
		}
		results[i] = result
	}
	return results
}
