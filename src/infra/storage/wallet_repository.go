package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/WyattLin001/invest-tournament-engine/src/domain/fees"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/shared"
	"github.com/WyattLin001/invest-tournament-engine/src/domain/wallet"
)

// WalletRepository implements wallet.Repository on Postgres. A wallet's
// cash row, position rows and trade rows are written in one transaction.
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new Postgres wallet repository.
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create stores a new wallet, rejecting duplicates for the pair via the
// unique index.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	record := &WalletRecord{
		TournamentID: string(w.TournamentID),
		UserID:       string(w.UserID),
		Cash:         w.Cash,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return wallet.ErrDuplicateWallet
	}
	return err
}

// Get loads a wallet with its positions and trade history.
func (r *WalletRepository) Get(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) (*wallet.Wallet, error) {
	var record WalletRecord
	err := r.db.WithContext(ctx).
		First(&record, "tournament_id = ? AND user_id = ?", string(tournamentID), string(userID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, &record)
}

func (r *WalletRepository) hydrate(ctx context.Context, record *WalletRecord) (*wallet.Wallet, error) {
	w := &wallet.Wallet{
		TournamentID: shared.TournamentID(record.TournamentID),
		UserID:       shared.UserID(record.UserID),
		Cash:         record.Cash,
		Positions:    make(map[shared.Symbol]*wallet.Position),
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}

	var positions []PositionRecord
	err := r.db.WithContext(ctx).
		Find(&positions, "tournament_id = ? AND user_id = ?", record.TournamentID, record.UserID).Error
	if err != nil {
		return nil, err
	}
	for i := range positions {
		p := &positions[i]
		w.Positions[shared.Symbol(p.Symbol)] = &wallet.Position{
			Symbol:    shared.Symbol(p.Symbol),
			Quantity:  p.Quantity,
			AvgPrice:  p.AvgPrice,
			LastPrice: p.LastPrice,
			UpdatedAt: p.UpdatedAt,
		}
	}

	var trades []TradeRecord
	err = r.db.WithContext(ctx).
		Order("executed_at ASC, id ASC").
		Find(&trades, "tournament_id = ? AND user_id = ?", record.TournamentID, record.UserID).Error
	if err != nil {
		return nil, err
	}
	for i := range trades {
		w.Trades = append(w.Trades, recordToTrade(&trades[i]))
	}

	return w, nil
}

func recordToTrade(r *TradeRecord) *wallet.Trade {
	return &wallet.Trade{
		ID:           r.ID,
		TournamentID: shared.TournamentID(r.TournamentID),
		UserID:       shared.UserID(r.UserID),
		Symbol:       shared.Symbol(r.Symbol),
		Side:         fees.Side(r.Side),
		Quantity:     r.Quantity,
		Price:        r.Price,
		Fees: fees.Breakdown{
			BrokerFee:      r.BrokerFee,
			TransactionTax: r.TransactionTax,
			TotalFees:      r.BrokerFee.Add(r.TransactionTax),
			NetAmount:      r.NetAmount,
		},
		NetAmount:   r.NetAmount,
		RealizedPnL: r.RealizedPnL,
		ExecutedAt:  r.ExecutedAt,
		Status:      wallet.TradeStatus(r.Status),
	}
}

func tradeToRecord(t *wallet.Trade) *TradeRecord {
	return &TradeRecord{
		ID:             t.ID,
		TournamentID:   string(t.TournamentID),
		UserID:         string(t.UserID),
		Symbol:         string(t.Symbol),
		Side:           string(t.Side),
		Quantity:       t.Quantity,
		Price:          t.Price,
		BrokerFee:      t.Fees.BrokerFee,
		TransactionTax: t.Fees.TransactionTax,
		NetAmount:      t.NetAmount,
		RealizedPnL:    t.RealizedPnL,
		Status:         string(t.Status),
		ExecutedAt:     t.ExecutedAt,
	}
}

// Save writes cash, positions and new trades as one transaction. Position
// rows are replaced wholesale; trade rows are append-only.
func (r *WalletRepository) Save(ctx context.Context, w *wallet.Wallet) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&WalletRecord{}).
			Where("tournament_id = ? AND user_id = ?", string(w.TournamentID), string(w.UserID)).
			Updates(map[string]interface{}{
				"cash":       w.Cash,
				"updated_at": w.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return wallet.ErrWalletNotFound
		}

		err := tx.
			Where("tournament_id = ? AND user_id = ?", string(w.TournamentID), string(w.UserID)).
			Delete(&PositionRecord{}).Error
		if err != nil {
			return err
		}
		for _, pos := range w.Positions {
			record := &PositionRecord{
				TournamentID: string(w.TournamentID),
				UserID:       string(w.UserID),
				Symbol:       string(pos.Symbol),
				Quantity:     pos.Quantity,
				AvgPrice:     pos.AvgPrice,
				LastPrice:    pos.LastPrice,
				UpdatedAt:    pos.UpdatedAt,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}

		for _, trade := range w.Trades {
			record := tradeToRecord(trade)
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// ListByTournament loads every wallet of a tournament.
func (r *WalletRepository) ListByTournament(ctx context.Context, tournamentID shared.TournamentID) ([]*wallet.Wallet, error) {
	var records []WalletRecord
	err := r.db.WithContext(ctx).
		Find(&records, "tournament_id = ?", string(tournamentID)).Error
	if err != nil {
		return nil, err
	}

	wallets := make([]*wallet.Wallet, 0, len(records))
	for i := range records {
		w, err := r.hydrate(ctx, &records[i])
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// Delete removes a wallet with its positions and trades.
func (r *WalletRepository) Delete(ctx context.Context, tournamentID shared.TournamentID, userID shared.UserID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("tournament_id = ? AND user_id = ?", string(tournamentID), string(userID)).
			Delete(&WalletRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return wallet.ErrWalletNotFound
		}

		err := tx.
			Where("tournament_id = ? AND user_id = ?", string(tournamentID), string(userID)).
			Delete(&PositionRecord{}).Error
		if err != nil {
			return err
		}
		return tx.
			Where("tournament_id = ? AND user_id = ?", string(tournamentID), string(userID)).
			Delete(&TradeRecord{}).Error
	})
}
