package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/ranking"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
)

// SettlementRepository implements ranking.SettlementRepository on Postgres.
type SettlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository creates a new Postgres settlement repository.
func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// SaveResults writes the result set once per tournament. The existence
// check and the insert run in one transaction with the tournament's result
// rows locked, so a concurrent second settlement sees ErrAlreadySettled.
func (r *SettlementRepository) SaveResults(ctx context.Context, tournamentID shared.TournamentID, results []ranking.Result) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&SettlementRecord{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tournament_id = ?", string(tournamentID)).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ranking.ErrAlreadySettled
		}

		for _, result := range results {
			record := &SettlementRecord{
				TournamentID:       string(tournamentID),
				UserID:             string(result.UserID),
				Rank:               result.Rank,
				TotalAssets:        result.TotalAssets,
				TotalReturnPercent: result.TotalReturnPercent,
				TotalTrades:        result.TotalTrades,
				WinRate:            result.WinRate,
				SettledAt:          result.SettledAt,
			}
			if result.Reward != nil {
				amount := result.Reward.Amount
				record.RewardAmount = &amount
				record.RewardType = result.Reward.Type
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetResults loads the stored result set ordered by rank.
func (r *SettlementRepository) GetResults(ctx context.Context, tournamentID shared.TournamentID) ([]ranking.Result, error) {
	var records []SettlementRecord
	err := r.db.WithContext(ctx).
		Order("rank ASC, user_id ASC").
		Find(&records, "tournament_id = ?", string(tournamentID)).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ranking.ErrNotSettled
	}

	results := make([]ranking.Result, 0, len(records))
	for _, record := range records {
		result := ranking.Result{
			Ranking: ranking.Ranking{
				Rank:               record.Rank,
				UserID:             shared.UserID(record.UserID),
				TotalAssets:        record.TotalAssets,
				TotalReturnPercent: record.TotalReturnPercent,
				TotalTrades:        record.TotalTrades,
				WinRate:            record.WinRate,
			},
			SettledAt: record.SettledAt,
		}
		if record.RewardAmount != nil {
			result.Reward = &ranking.Reward{
				Type:        record.RewardType,
				Amount:      *record.RewardAmount,
				Description: "tournament prize",
			}
		}
		results = append(results, result)
	}
	return results, nil
}
