// Package pnl computes realized and unrealized profit-and-loss from a
// trade's fill history using FIFO cost-basis matching. All functions
// are pure: they never mutate their input and are safe to call on
// every display refresh.
package pnl

import (
	"math"

	"github.com/wnt/tradequest/internal/models"
)

// Snapshot is the derived PnL view of one trade. It is recomputed on
// demand from the transaction list and never persisted.
type Snapshot struct {
	RealizedPnL    float64 `json:"realizedPnl"`
	RealizedPnLPct float64 `json:"realizedPnlPercentage"`
	TotalCost      float64 `json:"totalCost"`
	TotalSold      float64 `json:"totalSold"`
}

// PctValid reports whether RealizedPnLPct is a finite number. With no
// buys in the history TotalCost is zero and the percentage is NaN or
// infinite; callers must render such values as "N/A" instead of the
// raw number.
func (s Snapshot) PctValid() bool {
	return !math.IsNaN(s.RealizedPnLPct) && !math.IsInf(s.RealizedPnLPct, 0)
}

// lot is a buy fill with its not-yet-matched remainder.
type lot struct {
	price     float64
	remaining float64
}

// ComputeRealized FIFO-matches sell fills against buy fills in
// transaction order.
//
// TotalCost is the gross cost basis (sum over all buys) and TotalSold
// the gross proceeds (sum over all sells), regardless of how much was
// matched. A partially consumed buy lot keeps front-of-queue priority
// for the next sell. A sell that exhausts the buy queue realizes
// nothing for its unmatched remainder.
func ComputeRealized(transactions []models.Transaction) Snapshot {
	var buys []lot
	var sells []models.Transaction
	var totalCost, totalSold float64

	for _, txn := range transactions {
		switch txn.Type {
		case models.TransactionBuy:
			buys = append(buys, lot{price: txn.PriceSOL, remaining: txn.Quantity})
			totalCost += txn.TotalSOL
		case models.TransactionSell:
			sells = append(sells, txn)
			totalSold += txn.TotalSOL
		}
	}

	var realized float64
	for _, sell := range sells {
		remaining := sell.Quantity
		for remaining > 0 && len(buys) > 0 {
			buy := buys[0]
			buys = buys[1:]

			matched := math.Min(remaining, buy.remaining)
			realized += (sell.PriceSOL - buy.price) * matched
			remaining -= matched
			buy.remaining -= matched
			if buy.remaining > 0 {
				buys = append([]lot{buy}, buys...)
			}
		}
	}

	return Snapshot{
		RealizedPnL:    realized,
		RealizedPnLPct: realized / totalCost * 100,
		TotalCost:      totalCost,
		TotalSold:      totalSold,
	}
}

// Unrealized marks the currently held quantity to the given price,
// using the most recent fill's price as the cost reference. This is
// the original product behavior, not a weighted-average cost of the
// remaining lots after FIFO consumption.
func Unrealized(trade models.Trade, currentPrice float64) float64 {
	return trade.BalanceQuantity * (currentPrice - trade.LastPrice())
}

// Total combines realized and unrealized PnL with the percentage
// relative to gross cost basis. The percentage carries the same
// division-by-zero caveat as Snapshot.RealizedPnLPct.
func Total(snapshot Snapshot, unrealized float64) (total, pct float64) {
	total = snapshot.RealizedPnL + unrealized
	pct = total / snapshot.TotalCost * 100
	return total, pct
}
