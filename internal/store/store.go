// Package store is the persistence layer over the local trade
// database: wallet and settings access, atomic trade commits, and
// change notification for read-side consumers.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/tradequest/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a wallet or settings record does
	// not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateName is returned when a wallet create or rename
	// collides with another wallet's name.
	ErrDuplicateName = errors.New("wallet name already in use")
)

// Table names used for change subscriptions.
const (
	TableWallets  = "wallets"
	TableSettings = "settings"
)

// Store wraps the database with per-wallet write serialization.
// Every buy/sell/reset/update/delete against one wallet runs under
// that wallet's mutex, so a mutation always sees the state the
// previous mutation committed.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger

	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	subMu   sync.RWMutex
	subs    map[string][]func()
}

// New creates a store over an opened database handle.
func New(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
		locks:  make(map[string]*sync.Mutex),
		subs:   make(map[string][]func()),
	}
}

// walletLock returns the mutex guarding one wallet's mutations.
func (s *Store) walletLock(address string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.locks[address]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[address] = mu
	}
	return mu
}

// WithWalletLock runs fn while holding the wallet's mutation lock.
// The lock spans the caller's whole read-validate-write sequence, not
// just the final write.
func (s *Store) WithWalletLock(address string, fn func() error) error {
	mu := s.walletLock(address)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// Subscribe registers fn to run after every committed mutation of the
// named table. Callbacks run synchronously on the mutating goroutine.
func (s *Store) Subscribe(table string, fn func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs[table] = append(s.subs[table], fn)
}

func (s *Store) notify(table string) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.subs[table] {
		fn()
	}
}

// GetWallet fetches a wallet by address.
func (s *Store) GetWallet(address string) (models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.First(&wallet, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Wallet{}, fmt.Errorf("wallet %s: %w", address, ErrNotFound)
	}
	if err != nil {
		return models.Wallet{}, fmt.Errorf("failed to load wallet: %w", err)
	}
	return wallet, nil
}

// ListWallets returns all wallets ordered by creation time.
func (s *Store) ListWallets() ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := s.db.Order("created_at").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// nameTaken reports whether another wallet already uses the name.
func (s *Store) nameTaken(name, exceptAddress string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Wallet{}).
		Where("name = ? AND address <> ?", name, exceptAddress).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check wallet name: %w", err)
	}
	return count > 0, nil
}

// CreateWallet inserts a new wallet. Name uniqueness is enforced at
// write time; on collision the store is left unchanged.
func (s *Store) CreateWallet(wallet models.Wallet) error {
	taken, err := s.nameTaken(wallet.Name, wallet.Address)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("wallet name %q: %w", wallet.Name, ErrDuplicateName)
	}
	if wallet.Trades == nil {
		wallet.Trades = models.TradeList{}
	}
	if err := s.db.Create(&wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	s.logger.Info().Str("wallet", wallet.Address).Str("name", wallet.Name).Msg("Wallet created")
	s.notify(TableWallets)
	return nil
}

// UpdateWallet renames a wallet and/or adjusts its balance.
func (s *Store) UpdateWallet(address, name string, balanceSOL float64) error {
	return s.WithWalletLock(address, func() error {
		if _, err := s.GetWallet(address); err != nil {
			return err
		}
		taken, err := s.nameTaken(name, address)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("wallet name %q: %w", name, ErrDuplicateName)
		}
		err = s.db.Model(&models.Wallet{}).Where("address = ?", address).
			Updates(map[string]interface{}{
				"name":        name,
				"balance_sol": balanceSOL,
				"updated_at":  time.Now().UTC(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update wallet: %w", err)
		}
		s.notify(TableWallets)
		return nil
	})
}

// ResetWallet restores the wallet to its seeded state: balance back to
// seedBalance, trade history cleared.
func (s *Store) ResetWallet(address string, seedBalance float64) error {
	return s.WithWalletLock(address, func() error {
		if _, err := s.GetWallet(address); err != nil {
			return err
		}
		err := s.db.Model(&models.Wallet{}).Where("address = ?", address).
			Updates(map[string]interface{}{
				"balance_sol": seedBalance,
				"trades":      models.TradeList{},
				"updated_at":  time.Now().UTC(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to reset wallet: %w", err)
		}
		s.logger.Info().Str("wallet", address).Msg("Wallet reset")
		s.notify(TableWallets)
		return nil
	})
}

// DeleteWallet removes the wallet and, with it, its embedded trades.
func (s *Store) DeleteWallet(address string) error {
	return s.WithWalletLock(address, func() error {
		result := s.db.Delete(&models.Wallet{}, "address = ?", address)
		if result.Error != nil {
			return fmt.Errorf("failed to delete wallet: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("wallet %s: %w", address, ErrNotFound)
		}
		s.logger.Info().Str("wallet", address).Msg("Wallet deleted")
		s.notify(TableWallets)
		return nil
	})
}

// CommitTrade persists a fill's outcome atomically: the wallet's new
// balance and the updated trade land in a single row update. The trade
// entry is replaced by id, never duplicated, and trades on other pairs
// are carried over untouched.
//
// Callers must hold the wallet's mutation lock (WithWalletLock) across
// the read that produced newBalance and trade.
func (s *Store) CommitTrade(address string, newBalance float64, trade models.Trade) error {
	wallet, err := s.GetWallet(address)
	if err != nil {
		return err
	}

	trades := make(models.TradeList, 0, len(wallet.Trades)+1)
	for _, t := range wallet.Trades {
		if t.ID != trade.ID {
			trades = append(trades, t)
		}
	}
	trades = append(trades, trade)

	err = s.db.Model(&models.Wallet{}).Where("address = ?", address).
		Updates(map[string]interface{}{
			"balance_sol": newBalance,
			"trades":      trades,
			"updated_at":  time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to commit trade: %w", err)
	}

	s.logger.Debug().
		Str("wallet", address).
		Str("trade", trade.ID).
		Float64("balance_sol", newBalance).
		Msg("Trade committed")
	s.notify(TableWallets)
	return nil
}

// GetSettings returns the singleton settings record.
func (s *Store) GetSettings() (models.Settings, error) {
	var settings models.Settings
	err := s.db.First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Settings{}, fmt.Errorf("settings: %w", ErrNotFound)
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings saves user-edited quick-trade presets.
func (s *Store) UpdateSettings(settings models.Settings) error {
	err := s.db.Model(&models.Settings{}).Where("id = ?", settings.ID).
		Updates(map[string]interface{}{
			"default_wallet":   settings.DefaultWallet,
			"buy_amounts":      settings.BuyAmounts,
			"sell_percentages": settings.SellPercentages,
			"slippage":         settings.Slippage,
			"updated_at":       time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	s.notify(TableSettings)
	return nil
}
