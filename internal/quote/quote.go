// Package quote turns external swap quotes into simulated execution
// prices, handling token decimal scaling and slippage conversion.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// ErrQuoteUnavailable is returned when the price oracle is unreachable
// or returns no usable price. The trade must be aborted with no
// partial state change.
var ErrQuoteUnavailable = errors.New("swap quote unavailable")

// SOL is the native quote currency every simulated pair trades against.
var SOL = Token{Address: solana.SolMint.String(), Decimals: 9}

// Token is a mint with its decimal precision.
type Token struct {
	Address  string
	Decimals int
}

// Result is a normalized quote: the output amount in whole token units.
type Result struct {
	OutputAmount float64
}

// Oracle obtains raw swap quotes in raw token units.
type Oracle interface {
	GetSwapQuote(ctx context.Context, inputMint, outputMint string, rawAmount uint64, slippageBps int) (float64, error)
}

// DecimalsLookup resolves a mint's decimal precision.
type DecimalsLookup interface {
	GetDecimals(ctx context.Context, tokenAddress string) (int, error)
}

// Adapter normalizes amounts between whole-unit and raw-unit space
// around the oracle. Decimals are immutable per mint, so lookups are
// cached for the process lifetime.
type Adapter struct {
	oracle   Oracle
	decimals DecimalsLookup

	mu    sync.Mutex
	cache map[string]int
}

// NewAdapter creates a quote adapter over an oracle and a decimals lookup.
func NewAdapter(oracle Oracle, decimals DecimalsLookup) *Adapter {
	return &Adapter{
		oracle:   oracle,
		decimals: decimals,
		cache:    make(map[string]int),
	}
}

// TokenFor resolves a mint into a Token, consulting the cache first.
func (a *Adapter) TokenFor(ctx context.Context, tokenAddress string) (Token, error) {
	a.mu.Lock()
	cached, ok := a.cache[tokenAddress]
	a.mu.Unlock()
	if ok {
		return Token{Address: tokenAddress, Decimals: cached}, nil
	}

	decimals, err := a.decimals.GetDecimals(ctx, tokenAddress)
	if err != nil {
		return Token{}, fmt.Errorf("decimals for %s: %w: %w", tokenAddress, ErrQuoteUnavailable, err)
	}

	a.mu.Lock()
	a.cache[tokenAddress] = decimals
	a.mu.Unlock()
	return Token{Address: tokenAddress, Decimals: decimals}, nil
}

// Quote obtains a simulated execution for swapping amount of from into
// to at the given slippage tolerance in percent. The amount is scaled
// to raw units (floored to an integer), slippage converted to basis
// points, and the raw output descaled to whole units.
func (a *Adapter) Quote(ctx context.Context, from, to Token, amount, slippagePercent float64) (Result, error) {
	rawAmount := uint64(math.Floor(amount * math.Pow10(from.Decimals)))
	slippageBps := int(slippagePercent * 100)

	rawOut, err := a.oracle.GetSwapQuote(ctx, from.Address, to.Address, rawAmount, slippageBps)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrQuoteUnavailable, err)
	}
	if rawOut <= 0 || math.IsNaN(rawOut) || math.IsInf(rawOut, 0) {
		return Result{}, fmt.Errorf("%w: oracle returned no usable price", ErrQuoteUnavailable)
	}

	return Result{OutputAmount: rawOut / math.Pow10(to.Decimals)}, nil
}
