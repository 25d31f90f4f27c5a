package database

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/wnt/tradequest/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Default seed values for a store that has never been populated.
var (
	DefaultBuyAmounts      = models.FloatList{0.1, 0.2, 0.5, 1, 2, 5}
	DefaultSellPercentages = models.FloatList{10, 20, 50, 70, 90, 100}
)

const (
	DefaultSeedBalance = 10.0
	DefaultSlippage    = 5.0
	DefaultWalletName  = "Default Wallet"
)

// Connect opens the local trade database and migrates the schema.
func Connect(path string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(sqlite.Open(path), config)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	// WAL lets the watcher read while a trade commits
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Wallet{},
		&models.Settings{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Seed populates an empty store with exactly one default wallet and
// one settings record. It is an explicit initialization step invoked
// once at process start; a store that already holds wallets is left
// untouched.
func Seed(db *gorm.DB, seedBalance float64) error {
	var count int64
	if err := db.Model(&models.Wallet{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count wallets: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	wallet := models.Wallet{
		Address:    solana.NewWallet().PublicKey().String(),
		Name:       DefaultWalletName,
		BalanceSOL: seedBalance,
		Trades:     models.TradeList{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(&wallet).Error; err != nil {
		return fmt.Errorf("failed to seed default wallet: %w", err)
	}

	settings := models.Settings{
		ID:              uuid.NewString(),
		DefaultWallet:   wallet.Address,
		BuyAmounts:      DefaultBuyAmounts,
		SellPercentages: DefaultSellPercentages,
		Slippage:        DefaultSlippage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	return nil
}
