package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/tournament"
)

// TournamentRepository implements tournament.Repository on Postgres.
type TournamentRepository struct {
	db *gorm.DB
}

// NewTournamentRepository creates a new Postgres tournament repository.
func NewTournamentRepository(db *gorm.DB) *TournamentRepository {
	return &TournamentRepository{db: db}
}

func tournamentToRecord(t *tournament.Tournament) *TournamentRecord {
	return &TournamentRecord{
		ID:                  string(t.ID),
		Name:                t.Name,
		Description:         t.Description,
		Type:                string(t.Type),
		Status:              string(t.Status),
		StartTime:           t.StartTime,
		EndTime:             t.EndTime,
		InitialBalance:      t.InitialBalance,
		EntryFee:            t.EntryFee,
		PrizePool:           t.PrizePool,
		MaxParticipants:     t.MaxParticipants,
		CurrentParticipants: t.CurrentParticipants,
		RiskLimitPct:        t.RiskLimitPct,
		MinHoldingRate:      t.MinHoldingRate,
		MaxSingleStockRate:  t.MaxSingleStockRate,
		Rules:               t.Rules,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func recordToTournament(r *TournamentRecord) *tournament.Tournament {
	return &tournament.Tournament{
		ID:                  shared.TournamentID(r.ID),
		Name:                r.Name,
		Description:         r.Description,
		Type:                tournament.Type(r.Type),
		Status:              tournament.Status(r.Status),
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		InitialBalance:      r.InitialBalance,
		EntryFee:            r.EntryFee,
		PrizePool:           r.PrizePool,
		MaxParticipants:     r.MaxParticipants,
		CurrentParticipants: r.CurrentParticipants,
		RiskLimitPct:        r.RiskLimitPct,
		MinHoldingRate:      r.MinHoldingRate,
		MaxSingleStockRate:  r.MaxSingleStockRate,
		Rules:               r.Rules,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// Save upserts a tournament row.
func (r *TournamentRepository) Save(ctx context.Context, t *tournament.Tournament) error {
	record := tournamentToRecord(t)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

// Get retrieves a tournament by ID.
func (r *TournamentRepository) Get(ctx context.Context, id shared.TournamentID) (*tournament.Tournament, error) {
	var record TournamentRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", string(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tournament.ErrTournamentNotFound
		}
		return nil, err
	}
	return recordToTournament(&record), nil
}

// Delete removes a tournament.
func (r *TournamentRepository) Delete(ctx context.Context, id shared.TournamentID) error {
	result := r.db.WithContext(ctx).Delete(&TournamentRecord{}, "id = ?", string(id))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tournament.ErrTournamentNotFound
	}
	return nil
}

// List retrieves a paginated list of tournaments ordered by start time.
func (r *TournamentRepository) List(ctx context.Context, limit, offset int) ([]*tournament.Tournament, error) {
	var records []TournamentRecord
	err := r.db.WithContext(ctx).
		Order("start_time ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	tournaments := make([]*tournament.Tournament, 0, len(records))
	for i := range records {
		tournaments = append(tournaments, recordToTournament(&records[i]))
	}
	return tournaments, nil
}

// AddParticipant claims one join slot with a capacity-guarded UPDATE, so
// concurrent joins for the last slot cannot both succeed.
func (r *TournamentRepository) AddParticipant(ctx context.Context, id shared.TournamentID) error {
	result := r.db.WithContext(ctx).
		Model(&TournamentRecord{}).
		Where("id = ? AND current_participants < max_participants", string(id)).
		UpdateColumn("current_participants", gorm.Expr("current_participants + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&TournamentRecord{}).
			Where("id = ?", string(id)).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tournament.ErrTournamentNotFound
		}
		return tournament.ErrTournamentFull
	}
	return nil
}

// RemoveParticipant releases a previously claimed slot.
func (r *TournamentRepository) RemoveParticipant(ctx context.Context, id shared.TournamentID) error {
	result := r.db.WithContext(ctx).
		Model(&TournamentRecord{}).
		Where("id = ? AND current_participants > 0", string(id)).
		UpdateColumn("current_participants", gorm.Expr("current_participants - 1"))
	if result.Error != nil {
		return result.Error
	}
	return nil
}
