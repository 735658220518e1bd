package storage

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and runs schema migration.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the engine's tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&TournamentRecord{},
		&WalletRecord{},
		&PositionRecord{},
		&TradeRecord{},
		&SettlementRecord{},
	)
}
