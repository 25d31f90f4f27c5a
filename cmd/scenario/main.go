// Command scenario runs a canned buy/sell sequence through the
// accounting engine with fixed quotes. No network and no database; it
// prints each step so the FIFO accounting can be eyeballed.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/wnt/tradequest/internal/engine"
	"github.com/wnt/tradequest/internal/models"
	"github.com/wnt/tradequest/internal/pnl"
)

type step struct {
	label       string
	buySOL      float64 // > 0 for buys
	sellPercent float64 // > 0 for sells
	price       float64 // token price in SOL for this step
}

func main() {
	var startBalance float64
	flag.Float64Var(&startBalance, "balance", 10, "Starting wallet balance in SOL")
	flag.Parse()

	wallet := models.Wallet{
		Address:    solana.NewWallet().PublicKey().String(),
		Name:       "Scenario Wallet",
		BalanceSOL: startBalance,
	}
	pair := engine.Pair{
		PairAddress:  "ScenarioPair1111111111111111111111111111111",
		TokenAddress: "ScenarioMint1111111111111111111111111111111",
		MarketCap:    1_000_000,
	}

	steps := []step{
		{label: "buy 1 SOL at 0.01", buySOL: 1, price: 0.01},
		{label: "buy 1 SOL at 0.02", buySOL: 1, price: 0.02},
		{label: "sell 50% at 0.03", sellPercent: 50, price: 0.03},
		{label: "sell 100% at 0.015", sellPercent: 100, price: 0.015},
	}

	var trade *models.Trade
	now := time.Now().UTC()

	for i, s := range steps {
		now = now.Add(time.Minute)

		var result engine.Result
		var err error
		if s.buySOL > 0 {
			quote := engine.Quote{OutputAmount: s.buySOL / s.price}
			result, err = engine.ApplyBuy(wallet, trade, pair, s.buySOL, quote, now)
		} else {
			sellAmount := engine.SellAmount(*trade, s.sellPercent)
			quote := engine.Quote{OutputAmount: sellAmount * s.price}
			result, err = engine.ApplySell(wallet, trade, s.sellPercent, pair.MarketCap, quote, now)
		}
		if err != nil {
			log.Fatalf("step %d (%s): %v", i+1, s.label, err)
		}

		wallet.BalanceSOL = result.NewBalanceSOL
		committed := result.Trade
		trade = &committed

		snapshot := pnl.ComputeRealized(trade.Transactions)
		unrealized := pnl.Unrealized(*trade, s.price)
		total, _ := pnl.Total(snapshot, unrealized)

		fmt.Printf("step %d: %s\n", i+1, s.label)
		fmt.Printf("  balance %.4f SOL, holding %.4f tokens (%s)\n",
			wallet.BalanceSOL, trade.BalanceQuantity, trade.Status)
		fmt.Printf("  realized %.4f SOL", snapshot.RealizedPnL)
		if snapshot.PctValid() {
			fmt.Printf(" (%.2f%%)", snapshot.RealizedPnLPct)
		}
		fmt.Printf(", unrealized %.4f SOL, total %.4f SOL\n", unrealized, total)
	}

	fmt.Printf("final balance: %.4f SOL (started with %.4f)\n", wallet.BalanceSOL, startBalance)
}
