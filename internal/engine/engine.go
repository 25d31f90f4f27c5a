// Package engine applies buy and sell fills to wallet and trade state.
// It is pure computation: callers read current state from the store,
// pass it in, and persist the returned result atomically.
package engine

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/wnt/tradequest/internal/models"
)

var (
	// ErrInvalidAmount is returned when a buy amount is zero, negative
	// or not a finite number.
	ErrInvalidAmount = errors.New("amount must be a positive finite number")

	// ErrInsufficientBalance is returned when a buy exceeds the
	// wallet's SOL balance.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrNoOpenPosition is returned when a sell targets a pair with no
	// open trade or an empty balance.
	ErrNoOpenPosition = errors.New("no open position to sell")

	// ErrInvalidPercent is returned when a sell percentage is outside
	// (0, 100].
	ErrInvalidPercent = errors.New("sell percentage must be in (0, 100]")

	// ErrInvalidQuote is returned when the quoted output amount is not
	// a positive finite number.
	ErrInvalidQuote = errors.New("quote result is not usable")
)

// Pair identifies the market a fill executes against.
type Pair struct {
	PairAddress  string
	TokenAddress string
	MarketCap    float64
}

// Quote is the simulated execution result obtained from the quote
// adapter before a fill is applied.
type Quote struct {
	OutputAmount float64
}

// Result carries the new wallet balance and the created or updated
// trade. Nothing is persisted by the engine itself.
type Result struct {
	NewBalanceSOL float64
	Trade         models.Trade
}

// ApplyBuy converts solAmount of the wallet's balance into the pair's
// base token at the quoted output amount. When trade is nil a new open
// trade is created; otherwise the existing open trade accumulates the
// fill.
func ApplyBuy(wallet models.Wallet, trade *models.Trade, pair Pair, solAmount float64, quote Quote, now time.Time) (Result, error) {
	if solAmount <= 0 || math.IsNaN(solAmount) || math.IsInf(solAmount, 0) {
		return Result{}, ErrInvalidAmount
	}
	if solAmount > wallet.BalanceSOL {
		return Result{}, ErrInsufficientBalance
	}
	if quote.OutputAmount <= 0 || math.IsNaN(quote.OutputAmount) || math.IsInf(quote.OutputAmount, 0) {
		return Result{}, ErrInvalidQuote
	}

	var prior float64
	if trade != nil {
		prior = trade.BalanceQuantity
	}
	newQuantity := prior + quote.OutputAmount

	txn := models.Transaction{
		Quantity:        quote.OutputAmount,
		PriceSOL:        solAmount / quote.OutputAmount,
		TotalSOL:        solAmount,
		BalanceQuantity: newQuantity,
		MarketCap:       pair.MarketCap,
		Type:            models.TransactionBuy,
		CreatedAt:       now,
	}

	var updated models.Trade
	if trade != nil {
		updated = *trade
		updated.Transactions = append(append([]models.Transaction{}, trade.Transactions...), txn)
	} else {
		updated = models.Trade{
			ID:            uuid.NewString(),
			PairAddress:   pair.PairAddress,
			TokenAddress:  pair.TokenAddress,
			WalletAddress: wallet.Address,
			Transactions:  []models.Transaction{txn},
			CreatedAt:     now,
		}
	}
	updated.BalanceQuantity = newQuantity
	updated.Status = models.TradeOpen
	updated.UpdatedAt = now

	return Result{
		NewBalanceSOL: wallet.BalanceSOL - solAmount,
		Trade:         updated,
	}, nil
}

// SellAmount returns the base-token quantity a percentage sell
// liquidates from the trade's current balance.
func SellAmount(trade models.Trade, sellPercent float64) float64 {
	return trade.BalanceQuantity * sellPercent / 100
}

// ApplySell liquidates sellPercent of the open trade's balance at the
// quoted output amount. The trade closes exactly when the remaining
// quantity reaches zero.
func ApplySell(wallet models.Wallet, trade *models.Trade, sellPercent float64, marketCap float64, quote Quote, now time.Time) (Result, error) {
	if trade == nil || trade.Status != models.TradeOpen || trade.BalanceQuantity <= 0 {
		return Result{}, ErrNoOpenPosition
	}
	if sellPercent <= 0 || sellPercent > 100 || math.IsNaN(sellPercent) {
		return Result{}, ErrInvalidPercent
	}
	if quote.OutputAmount <= 0 || math.IsNaN(quote.OutputAmount) || math.IsInf(quote.OutputAmount, 0) {
		return Result{}, ErrInvalidQuote
	}

	sellAmount := SellAmount(*trade, sellPercent)
	newQuantity := trade.BalanceQuantity - sellAmount

	txn := models.Transaction{
		Quantity:        sellAmount,
		PriceSOL:        quote.OutputAmount / sellAmount,
		TotalSOL:        quote.OutputAmount,
		BalanceQuantity: newQuantity,
		MarketCap:       marketCap,
		Type:            models.TransactionSell,
		CreatedAt:       now,
	}

	updated := *trade
	updated.Transactions = append(append([]models.Transaction{}, trade.Transactions...), txn)
	updated.BalanceQuantity = newQuantity
	updated.UpdatedAt = now
	if newQuantity > 0 {
		updated.Status = models.TradeOpen
	} else {
		updated.Status = models.TradeClosed
	}

	return Result{
		NewBalanceSOL: wallet.BalanceSOL + quote.OutputAmount,
		Trade:         updated,
	}, nil
}
