package models

import "time"

// TradeStatus tracks a position's lifecycle: open while quantity
// remains, closed once a sell brings it to zero. Closed trades are
// never reopened; a later buy on the same pair starts a new trade.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// TransactionType labels a fill.
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Trade is one open or closed position in a single token pair.
type Trade struct {
	ID              string        `json:"id"`
	PairAddress     string        `json:"pairAddress"`
	TokenAddress    string        `json:"tokenAddress"`
	BalanceQuantity float64       `json:"balanceQuantity"`
	Transactions    []Transaction `json:"transactions"`
	Status          TradeStatus   `json:"status"`
	WalletAddress   string        `json:"walletAddress"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// LastPrice returns the execution price of the most recent fill,
// used as the cost reference for unrealized PnL.
func (t *Trade) LastPrice() float64 {
	if len(t.Transactions) == 0 {
		return 0
	}
	return t.Transactions[len(t.Transactions)-1].PriceSOL
}

// Transaction is an immutable fill record appended to a trade's
// history. Once appended it is never mutated or removed; realized PnL
// is always recomputed by replaying the full list.
type Transaction struct {
	Quantity        float64         `json:"quantity"`
	PriceSOL        float64         `json:"priceSOL"`
	TotalSOL        float64         `json:"totalSOL"`
	BalanceQuantity float64         `json:"balanceQuantity"`
	MarketCap       float64         `json:"marketCap,omitempty"`
	Type            TransactionType `json:"type"`
	CreatedAt       time.Time       `json:"createdAt"`
}
