package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Wallet represents a simulated trading wallet. Trades are owned by the
// wallet and embedded in its row: deleting a wallet removes its trades
// with it.
type Wallet struct {
	Address    string    `gorm:"primaryKey;size:64" json:"address"`
	Name       string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	BalanceSOL float64   `gorm:"not null;default:0" json:"balanceSOL"`
	Trades     TradeList `gorm:"type:text" json:"trades"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// OpenTrade returns the open trade for the given pair, or nil.
// At most one open trade exists per (wallet, pair).
func (w *Wallet) OpenTrade(pairAddress string) *Trade {
	for i := range w.Trades {
		t := &w.Trades[i]
		if t.Status == TradeOpen && t.PairAddress == pairAddress {
			return t
		}
	}
	return nil
}

// OpenTrades returns all open trades holding a positive quantity.
func (w *Wallet) OpenTrades() []Trade {
	var open []Trade
	for _, t := range w.Trades {
		if t.Status == TradeOpen && t.BalanceQuantity > 0 {
			open = append(open, t)
		}
	}
	return open
}

// TradeList is a wallet's trade history stored as a single JSON column.
type TradeList []Trade

// Value implements the driver.Valuer interface
func (l TradeList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (l *TradeList) Scan(value interface{}) error {
	if value == nil {
		*l = TradeList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for TradeList: %T", value)
	}
	if len(data) == 0 {
		*l = TradeList{}
		return nil
	}
	return json.Unmarshal(data, l)
}
