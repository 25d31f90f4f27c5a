package watcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/tradequest/internal/database"
	"github.com/wnt/tradequest/internal/models"
	"github.com/wnt/tradequest/internal/services"
	"github.com/wnt/tradequest/internal/store"
)

// pairServer answers the batched pairs endpoint for any requested
// addresses and counts how many requests it served.
func pairServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		parts := strings.Split(r.URL.Path, "/")
		addresses := strings.Split(parts[len(parts)-1], ",")

		var pairs []string
		for _, addr := range addresses {
			pairs = append(pairs, fmt.Sprintf(
				`{"chainId": "solana", "pairAddress": %q, "priceNative": "0.01"}`, addr))
		}
		fmt.Fprintf(w, `{"schemaVersion": "1.0.0", "pairs": [%s]}`, strings.Join(pairs, ","))
	}))
}

func newTestWatcher(t *testing.T, serverURL string) (*Watcher, *store.Store, models.Wallet) {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, database.DefaultSeedBalance))

	st := store.New(db, zerolog.Nop())
	wallets, err := st.ListWallets()
	require.NoError(t, err)

	w := New(st, services.NewDexScreenerClient(serverURL), 10*time.Millisecond, 1000, zerolog.Nop())
	return w, st, wallets[0]
}

func openTrade(pairAddress string) models.Trade {
	now := time.Now().UTC()
	return models.Trade{
		ID:              uuid.NewString(),
		PairAddress:     pairAddress,
		BalanceQuantity: 100,
		Status:          models.TradeOpen,
		Transactions: []models.Transaction{{
			Quantity: 100, PriceSOL: 0.01, TotalSOL: 1, BalanceQuantity: 100,
			Type: models.TransactionBuy, CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRefreshPairSet(t *testing.T) {
	var requests atomic.Int64
	server := pairServer(t, &requests)
	defer server.Close()

	w, st, wallet := newTestWatcher(t, server.URL)

	require.NoError(t, w.refreshPairSet())
	assert.Empty(t, w.pairs)

	require.NoError(t, st.CommitTrade(wallet.Address, 9, openTrade("PairA")))
	require.NoError(t, st.CommitTrade(wallet.Address, 8, openTrade("PairB")))

	// The commit notifications marked the set stale; a poll rebuilds it.
	require.NoError(t, w.poll(context.Background()))

	w.mu.RLock()
	defer w.mu.RUnlock()
	assert.ElementsMatch(t, []string{"PairA", "PairB"}, w.pairs)
	assert.Contains(t, w.latest, "PairA")
	assert.Contains(t, w.latest, "PairB")
}

func TestPollDropsRetiredPairs(t *testing.T) {
	var requests atomic.Int64
	server := pairServer(t, &requests)
	defer server.Close()

	w, st, wallet := newTestWatcher(t, server.URL)

	trade := openTrade("PairA")
	require.NoError(t, st.CommitTrade(wallet.Address, 9, trade))
	require.NoError(t, w.poll(context.Background()))

	w.mu.RLock()
	assert.Contains(t, w.latest, "PairA")
	w.mu.RUnlock()

	// Close the trade; the next poll must stop tracking the pair.
	trade.Status = models.TradeClosed
	trade.BalanceQuantity = 0
	require.NoError(t, st.CommitTrade(wallet.Address, 10, trade))
	require.NoError(t, w.poll(context.Background()))

	w.mu.RLock()
	defer w.mu.RUnlock()
	assert.Empty(t, w.pairs)
	assert.NotContains(t, w.latest, "PairA")
}

func TestGetPairs(t *testing.T) {
	var requests atomic.Int64
	server := pairServer(t, &requests)
	defer server.Close()

	w, st, wallet := newTestWatcher(t, server.URL)

	t.Run("cached pairs skip the upstream call", func(t *testing.T) {
		require.NoError(t, st.CommitTrade(wallet.Address, 9, openTrade("PairA")))
		require.NoError(t, w.poll(context.Background()))

		before := requests.Load()
		pairs, err := w.GetPairs(context.Background(), []string{"PairA"})
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "PairA", pairs[0].PairAddress)
		assert.Equal(t, before, requests.Load())
	})

	t.Run("untracked pairs fall through to the API", func(t *testing.T) {
		before := requests.Load()
		pairs, err := w.GetPairs(context.Background(), []string{"PairZ"})
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "PairZ", pairs[0].PairAddress)
		assert.Equal(t, before+1, requests.Load())
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	var requests atomic.Int64
	server := pairServer(t, &requests)
	defer server.Close()

	w, _, _ := newTestWatcher(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
