// Package trader orchestrates simulated swaps: it re-reads wallet
// state, obtains an execution quote, applies the fill through the
// engine, and commits the outcome atomically. Each wallet's trades are
// fully serialized behind the store's per-wallet lock.
package trader

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/tradequest/internal/engine"
	"github.com/wnt/tradequest/internal/logger"
	"github.com/wnt/tradequest/internal/metrics"
	"github.com/wnt/tradequest/internal/models"
	"github.com/wnt/tradequest/internal/pnl"
	"github.com/wnt/tradequest/internal/quote"
	"github.com/wnt/tradequest/internal/services"
	"github.com/wnt/tradequest/internal/store"
)

// MarketData supplies pair snapshots. Satisfied by the Dexscreener
// client directly and by the price watcher's cached view.
type MarketData interface {
	GetPairs(ctx context.Context, pairAddresses []string) ([]services.Pair, error)
}

// Quoter obtains simulated execution prices.
type Quoter interface {
	TokenFor(ctx context.Context, tokenAddress string) (quote.Token, error)
	Quote(ctx context.Context, from, to quote.Token, amount, slippagePercent float64) (quote.Result, error)
}

// Trader executes buy/sell flows against the store.
type Trader struct {
	store  *store.Store
	market MarketData
	quotes Quoter
	logger zerolog.Logger
}

// New creates a trader.
func New(st *store.Store, market MarketData, quotes Quoter, log zerolog.Logger) *Trader {
	return &Trader{
		store:  st,
		market: market,
		quotes: quotes,
		logger: log.With().Str("component", "trader").Logger(),
	}
}

// Outcome reports a committed fill.
type Outcome struct {
	Trade         models.Trade `json:"trade"`
	NewBalanceSOL float64      `json:"balanceSOL"`
	Quantity      float64      `json:"quantity"`
	TotalSOL      float64      `json:"totalSOL"`
}

// pairFor re-reads the live pair snapshot immediately before a trade.
func (t *Trader) pairFor(ctx context.Context, pairAddress string) (services.Pair, error) {
	pairs, err := t.market.GetPairs(ctx, []string{pairAddress})
	if err != nil {
		return services.Pair{}, err
	}
	for _, pair := range pairs {
		if pair.PairAddress == pairAddress {
			return pair, nil
		}
	}
	return services.Pair{}, fmt.Errorf("pair %s: %w", pairAddress, services.ErrTokenNotFound)
}

// Buy simulates swapping solAmount of the wallet's SOL into the pair's
// base token. On any failure no state changes.
func (t *Trader) Buy(ctx context.Context, walletAddress, pairAddress string, solAmount float64) (Outcome, error) {
	start := time.Now()
	log := logger.WithWallet(t.logger, walletAddress)

	settings, err := t.store.GetSettings()
	if err != nil {
		return Outcome{}, err
	}
	pair, err := t.pairFor(ctx, pairAddress)
	if err != nil {
		return Outcome{}, err
	}

	var outcome Outcome
	err = t.store.WithWalletLock(walletAddress, func() error {
		wallet, err := t.store.GetWallet(walletAddress)
		if err != nil {
			return err
		}
		open := wallet.OpenTrade(pair.PairAddress)

		token, err := t.quotes.TokenFor(ctx, pair.BaseToken.Address)
		if err != nil {
			metrics.RecordQuoteRequest("failed")
			return err
		}
		quoted, err := t.quotes.Quote(ctx, quote.SOL, token, solAmount, settings.Slippage)
		if err != nil {
			metrics.RecordQuoteRequest("failed")
			return err
		}
		metrics.RecordQuoteRequest("success")

		result, err := engine.ApplyBuy(wallet, open, engine.Pair{
			PairAddress:  pair.PairAddress,
			TokenAddress: pair.BaseToken.Address,
			MarketCap:    pair.FDV,
		}, solAmount, engine.Quote(quoted), time.Now().UTC())
		if err != nil {
			return err
		}

		if err := t.store.CommitTrade(walletAddress, result.NewBalanceSOL, result.Trade); err != nil {
			return err
		}
		outcome = Outcome{
			Trade:         result.Trade,
			NewBalanceSOL: result.NewBalanceSOL,
			Quantity:      quoted.OutputAmount,
			TotalSOL:      solAmount,
		}
		return nil
	})
	if err != nil {
		metrics.RecordTrade("buy", "failed")
		return Outcome{}, err
	}

	metrics.RecordTrade("buy", "success")
	metrics.TradeDuration.Observe(time.Since(start).Seconds())
	log.Info().
		Str("pair", pair.PairAddress).
		Float64("sol", solAmount).
		Float64("quantity", outcome.Quantity).
		Msg("Buy executed")
	return outcome, nil
}

// Sell simulates liquidating sellPercent of the wallet's open position
// in the pair back into SOL.
func (t *Trader) Sell(ctx context.Context, walletAddress, pairAddress string, sellPercent float64) (Outcome, error) {
	start := time.Now()
	log := logger.WithWallet(t.logger, walletAddress)

	settings, err := t.store.GetSettings()
	if err != nil {
		return Outcome{}, err
	}
	pair, err := t.pairFor(ctx, pairAddress)
	if err != nil {
		return Outcome{}, err
	}

	var outcome Outcome
	err = t.store.WithWalletLock(walletAddress, func() error {
		wallet, err := t.store.GetWallet(walletAddress)
		if err != nil {
			return err
		}
		open := wallet.OpenTrade(pair.PairAddress)
		if open == nil || open.BalanceQuantity <= 0 {
			return engine.ErrNoOpenPosition
		}
		if sellPercent <= 0 || sellPercent > 100 || math.IsNaN(sellPercent) {
			return engine.ErrInvalidPercent
		}

		sellAmount := engine.SellAmount(*open, sellPercent)

		token, err := t.quotes.TokenFor(ctx, pair.BaseToken.Address)
		if err != nil {
			metrics.RecordQuoteRequest("failed")
			return err
		}
		quoted, err := t.quotes.Quote(ctx, token, quote.SOL, sellAmount, settings.Slippage)
		if err != nil {
			metrics.RecordQuoteRequest("failed")
			return err
		}
		metrics.RecordQuoteRequest("success")

		result, err := engine.ApplySell(wallet, open, sellPercent, pair.FDV, engine.Quote(quoted), time.Now().UTC())
		if err != nil {
			return err
		}

		if err := t.store.CommitTrade(walletAddress, result.NewBalanceSOL, result.Trade); err != nil {
			return err
		}
		outcome = Outcome{
			Trade:         result.Trade,
			NewBalanceSOL: result.NewBalanceSOL,
			Quantity:      sellAmount,
			TotalSOL:      quoted.OutputAmount,
		}
		return nil
	})
	if err != nil {
		metrics.RecordTrade("sell", "failed")
		return Outcome{}, err
	}

	metrics.RecordTrade("sell", "success")
	metrics.TradeDuration.Observe(time.Since(start).Seconds())
	log.Info().
		Str("pair", pair.PairAddress).
		Float64("percent", sellPercent).
		Float64("sol", outcome.TotalSOL).
		Str("status", string(outcome.Trade.Status)).
		Msg("Sell executed")
	return outcome, nil
}

// Position is the display view of one open trade marked to the
// current pair price. Percentages are nil when the cost basis is zero
// and the ratio is undefined.
type Position struct {
	Trade          models.Trade  `json:"trade"`
	Pair           services.Pair `json:"pair"`
	RealizedPnL    float64       `json:"realizedPnl"`
	RealizedPnLPct *float64      `json:"realizedPnlPercentage"`
	TotalCost      float64       `json:"totalCost"`
	TotalSold      float64       `json:"totalSold"`
	UnrealizedPnL  float64       `json:"unrealizedPnl"`
	TotalPnL       float64       `json:"totalPnl"`
	TotalPnLPct    *float64      `json:"totalPnlPercentage"`
	Worth          float64       `json:"worth"`
}

// Positions returns the wallet's open trades with realized PnL
// replayed from history and unrealized PnL marked to the latest pair
// snapshot.
func (t *Trader) Positions(ctx context.Context, walletAddress string) ([]Position, error) {
	wallet, err := t.store.GetWallet(walletAddress)
	if err != nil {
		return nil, err
	}

	open := wallet.OpenTrades()
	if len(open) == 0 {
		return nil, nil
	}

	addresses := make([]string, 0, len(open))
	seen := make(map[string]bool)
	for _, trade := range open {
		if !seen[trade.PairAddress] {
			seen[trade.PairAddress] = true
			addresses = append(addresses, trade.PairAddress)
		}
	}

	pairs, err := t.market.GetPairs(ctx, addresses)
	if err != nil {
		return nil, err
	}
	byAddress := make(map[string]services.Pair, len(pairs))
	for _, pair := range pairs {
		byAddress[pair.PairAddress] = pair
	}

	positions := make([]Position, 0, len(open))
	for _, trade := range open {
		pair, ok := byAddress[trade.PairAddress]
		if !ok {
			continue
		}
		price, _ := strconv.ParseFloat(pair.PriceNative, 64)

		snapshot := pnl.ComputeRealized(trade.Transactions)
		unrealized := pnl.Unrealized(trade, price)
		total, totalPct := pnl.Total(snapshot, unrealized)

		positions = append(positions, Position{
			Trade:          trade,
			Pair:           pair,
			RealizedPnL:    snapshot.RealizedPnL,
			RealizedPnLPct: finiteOrNil(snapshot.RealizedPnLPct),
			TotalCost:      snapshot.TotalCost,
			TotalSold:      snapshot.TotalSold,
			UnrealizedPnL:  unrealized,
			TotalPnL:       total,
			TotalPnLPct:    finiteOrNil(totalPct),
			Worth:          trade.BalanceQuantity * price,
		})
	}
	return positions, nil
}

// finiteOrNil guards division-by-zero percentages before they reach
// JSON encoding, which rejects NaN and infinities.
func finiteOrNil(value float64) *float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return &value
}
