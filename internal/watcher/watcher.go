// Package watcher keeps a fresh price snapshot for every pair backing
// an open trade. It polls the market-data API on an interval, re-arms
// its pair set whenever wallet state changes, and never writes wallet
// state itself.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/tradequest/internal/metrics"
	"github.com/wnt/tradequest/internal/models"
	"github.com/wnt/tradequest/internal/services"
	"github.com/wnt/tradequest/internal/store"
	"golang.org/x/time/rate"
)

// Watcher polls pair snapshots for open trades.
type Watcher struct {
	store    *store.Store
	market   *services.DexScreenerClient
	interval time.Duration
	limiter  *rate.Limiter
	logger   zerolog.Logger

	mu     sync.RWMutex
	pairs  []string
	latest map[string]services.Pair
	stale  bool
}

// New creates a watcher polling at the given interval, capped at
// maxRate requests per second against the market-data API.
func New(st *store.Store, market *services.DexScreenerClient, interval time.Duration, maxRate float64, log zerolog.Logger) *Watcher {
	w := &Watcher{
		store:    st,
		market:   market,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Limit(maxRate), 1),
		logger:   log.With().Str("component", "watcher").Logger(),
		latest:   make(map[string]services.Pair),
		stale:    true,
	}
	// Re-arm the tracked pair set whenever wallets change: a buy can
	// open a position on a new pair, a sell or reset can retire one.
	st.Subscribe(store.TableWallets, w.markStale)
	return w
}

func (w *Watcher) markStale() {
	w.mu.Lock()
	w.stale = true
	w.mu.Unlock()
}

// refreshPairSet rebuilds the polled set from the open trades of all
// wallets.
func (w *Watcher) refreshPairSet() error {
	wallets, err := w.store.ListWallets()
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var pairs []string
	for _, wallet := range wallets {
		for _, trade := range wallet.OpenTrades() {
			if !seen[trade.PairAddress] {
				seen[trade.PairAddress] = true
				pairs = append(pairs, trade.PairAddress)
			}
		}
	}

	w.mu.Lock()
	w.pairs = pairs
	w.stale = false
	// Drop cached snapshots for pairs no longer tracked
	for address := range w.latest {
		if !seen[address] {
			delete(w.latest, address)
		}
	}
	w.mu.Unlock()

	w.updateOpenTradeGauge(wallets)
	return nil
}

func (w *Watcher) updateOpenTradeGauge(wallets []models.Wallet) {
	var open int
	for _, wallet := range wallets {
		open += len(wallet.OpenTrades())
	}
	metrics.OpenTrades.Set(float64(open))
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Msg("Starting price watcher")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Price watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.poll(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn().Err(err).Msg("Pair refresh failed")
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	w.mu.RLock()
	stale := w.stale
	w.mu.RUnlock()
	if stale {
		if err := w.refreshPairSet(); err != nil {
			return err
		}
	}

	w.mu.RLock()
	pairs := make([]string, len(w.pairs))
	copy(pairs, w.pairs)
	w.mu.RUnlock()

	if len(pairs) == 0 {
		return nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	snapshots, err := w.market.GetPairs(ctx, pairs)
	if err != nil {
		metrics.RecordPairRefresh("failed")
		return err
	}
	metrics.RecordPairRefresh("success")

	w.mu.Lock()
	for _, pair := range snapshots {
		w.latest[pair.PairAddress] = pair
	}
	w.mu.Unlock()

	w.logger.Debug().Int("pairs", len(snapshots)).Msg("Pair prices refreshed")
	return nil
}

// GetPairs serves pair snapshots from the cache, falling back to a
// direct market-data fetch for pairs not currently tracked. This lets
// the read path reuse the watcher's polling instead of hitting the API
// on every render.
func (w *Watcher) GetPairs(ctx context.Context, pairAddresses []string) ([]services.Pair, error) {
	w.mu.RLock()
	cached := make([]services.Pair, 0, len(pairAddresses))
	var missing []string
	for _, address := range pairAddresses {
		if pair, ok := w.latest[address]; ok {
			cached = append(cached, pair)
		} else {
			missing = append(missing, address)
		}
	}
	w.mu.RUnlock()

	if len(missing) == 0 {
		return cached, nil
	}

	fetched, err := w.market.GetPairs(ctx, missing)
	if err != nil {
		if len(cached) > 0 {
			return cached, nil
		}
		return nil, err
	}
	return append(cached, fetched...), nil
}
