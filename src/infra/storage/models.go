package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// TournamentRecord is the persistence model for a tournament.
type TournamentRecord struct {
	ID                  string          `gorm:"primaryKey;size:64"`
	Name                string          `gorm:"size:255;not null"`
	Description         string          `gorm:"type:text"`
	Type                string          `gorm:"size:32;index"`
	Status              string          `gorm:"size:32;index"`
	StartTime           time.Time       `gorm:"index"`
	EndTime             time.Time       `gorm:"index"`
	InitialBalance      decimal.Decimal `gorm:"type:numeric(20,6)"`
	EntryFee            decimal.Decimal `gorm:"type:numeric(20,6)"`
	PrizePool           decimal.Decimal `gorm:"type:numeric(20,6)"`
	MaxParticipants     int             `gorm:"not null"`
	CurrentParticipants int             `gorm:"not null;default:0"`
	RiskLimitPct        decimal.Decimal `gorm:"type:numeric(8,6)"`
	MinHoldingRate      decimal.Decimal `gorm:"type:numeric(8,6)"`
	MaxSingleStockRate  decimal.Decimal `gorm:"type:numeric(8,6)"`
	Rules               string          `gorm:"type:text"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (TournamentRecord) TableName() string { return "tournaments" }

// WalletRecord is the persistence model for a tournament wallet.
type WalletRecord struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"`
	TournamentID string          `gorm:"size:64;uniqueIndex:idx_wallet_pair;not null"`
	UserID       string          `gorm:"size:64;uniqueIndex:idx_wallet_pair;not null"`
	Cash         decimal.Decimal `gorm:"type:numeric(20,6)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (WalletRecord) TableName() string { return "wallets" }

// PositionRecord is one holding row of a wallet.
type PositionRecord struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"`
	TournamentID string          `gorm:"size:64;uniqueIndex:idx_position_key;not null"`
	UserID       string          `gorm:"size:64;uniqueIndex:idx_position_key;not null"`
	Symbol       string          `gorm:"size:32;uniqueIndex:idx_position_key;not null"`
	Quantity     int64           `gorm:"not null"`
	AvgPrice     decimal.Decimal `gorm:"type:numeric(20,6)"`
	LastPrice    decimal.Decimal `gorm:"type:numeric(20,6)"`
	UpdatedAt    time.Time
}

func (PositionRecord) TableName() string { return "positions" }

// TradeRecord is one executed order.
type TradeRecord struct {
	ID             string          `gorm:"primaryKey;size:64"`
	TournamentID   string          `gorm:"size:64;index:idx_trade_wallet"`
	UserID         string          `gorm:"size:64;index:idx_trade_wallet"`
	Symbol         string          `gorm:"size:32"`
	Side           string          `gorm:"size:8"`
	Quantity       int64           `gorm:"not null"`
	Price          decimal.Decimal `gorm:"type:numeric(20,6)"`
	BrokerFee      decimal.Decimal `gorm:"type:numeric(20,6)"`
	TransactionTax decimal.Decimal `gorm:"type:numeric(20,6)"`
	NetAmount      decimal.Decimal `gorm:"type:numeric(20,6)"`
	RealizedPnL    decimal.Decimal `gorm:"type:numeric(20,6)"`
	Status         string          `gorm:"size:16"`
	ExecutedAt     time.Time       `gorm:"index"`
}

func (TradeRecord) TableName() string { return "trades" }

// SettlementRecord is one final ranked result row of a settled tournament.
type SettlementRecord struct {
	ID                 uint             `gorm:"primaryKey;autoIncrement"`
	TournamentID       string           `gorm:"size:64;uniqueIndex:idx_settlement_key;not null"`
	UserID             string           `gorm:"size:64;uniqueIndex:idx_settlement_key;not null"`
	Rank               int              `gorm:"not null"`
	TotalAssets        decimal.Decimal  `gorm:"type:numeric(20,6)"`
	TotalReturnPercent decimal.Decimal  `gorm:"type:numeric(20,6)"`
	TotalTrades        int              `gorm:"not null"`
	WinRate            decimal.Decimal  `gorm:"type:numeric(8,6)"`
	RewardAmount       *decimal.Decimal `gorm:"type:numeric(20,6)"`
	RewardType         string           `gorm:"size:32"`
	SettledAt          time.Time        `gorm:"index"`
}

func (SettlementRecord) TableName() string { return "settlements" }
