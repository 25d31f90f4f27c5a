package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/tradequest/internal/database"
	"github.com/wnt/tradequest/internal/models"
	"github.com/wnt/tradequest/internal/quote"
	"github.com/wnt/tradequest/internal/services"
	"github.com/wnt/tradequest/internal/store"
	"github.com/wnt/tradequest/internal/trader"
)

const (
	testPairAddress = "TestPair1111111111111111111111111111111111"
	testMintAddress = "TestMint1111111111111111111111111111111111"
)

type fakeMarket struct {
	price float64
}

func (m *fakeMarket) GetPairs(_ context.Context, pairAddresses []string) ([]services.Pair, error) {
	var pairs []services.Pair
	for _, addr := range pairAddresses {
		if addr == testPairAddress {
			pairs = append(pairs, services.Pair{
				ChainID:     services.SolanaChainID,
				PairAddress: testPairAddress,
				BaseToken:   services.TokenRef{Address: testMintAddress, Symbol: "TEST"},
				PriceNative: "0.01",
				FDV:         1_000_000,
			})
		}
	}
	return pairs, nil
}

type fakeQuoter struct {
	price float64
}

func (q *fakeQuoter) TokenFor(_ context.Context, tokenAddress string) (quote.Token, error) {
	return quote.Token{Address: tokenAddress, Decimals: 6}, nil
}

func (q *fakeQuoter) Quote(_ context.Context, from, _ quote.Token, amount, _ float64) (quote.Result, error) {
	if from == quote.SOL {
		return quote.Result{OutputAmount: amount / q.price}, nil
	}
	return quote.Result{OutputAmount: amount * q.price}, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store, models.Wallet) {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, database.DefaultSeedBalance))

	st := store.New(db, zerolog.Nop())
	wallets, err := st.ListWallets()
	require.NoError(t, err)
	require.Len(t, wallets, 1)

	market := &fakeMarket{price: 0.01}
	tr := trader.New(st, market, &fakeQuoter{price: 0.01}, zerolog.Nop())
	srv := New(st, tr, services.NewDexScreenerClient("http://127.0.0.1:1"), market, database.DefaultSeedBalance, zerolog.Nop())
	return srv, st, wallets[0]
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWalletEndpoints(t *testing.T) {
	srv, _, seeded := newTestServer(t)

	t.Run("list includes the seeded wallet", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/wallets", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var wallets []models.Wallet
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallets))
		require.Len(t, wallets, 1)
		assert.Equal(t, seeded.Address, wallets[0].Address)
	})

	t.Run("create generates an address", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/wallets", gin.H{"name": "Degen"})
		require.Equal(t, http.StatusCreated, rec.Code)

		var wallet models.Wallet
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
		assert.NotEmpty(t, wallet.Address)
		assert.Equal(t, "Degen", wallet.Name)
		assert.InDelta(t, database.DefaultSeedBalance, wallet.BalanceSOL, 1e-9)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/wallets", gin.H{"name": "Degen"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing name is rejected", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/wallets", gin.H{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update renames", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPut, "/wallets/"+seeded.Address, gin.H{"name": "Main", "balanceSOL": 12.5})
		require.Equal(t, http.StatusOK, rec.Code)

		var wallet models.Wallet
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
		assert.Equal(t, "Main", wallet.Name)
		assert.InDelta(t, 12.5, wallet.BalanceSOL, 1e-9)
	})

	t.Run("update unknown wallet", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPut, "/wallets/missing", gin.H{"name": "X", "balanceSOL": 1})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reset restores the seed balance", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/wallets/"+seeded.Address+"/reset", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var wallet models.Wallet
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
		assert.InDelta(t, database.DefaultSeedBalance, wallet.BalanceSOL, 1e-9)
		assert.Empty(t, wallet.Trades)
	})

	t.Run("delete removes the wallet", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodDelete, "/wallets/"+seeded.Address, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, srv, http.MethodDelete, "/wallets/"+seeded.Address, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSettingsEndpoints(t *testing.T) {
	srv, _, seeded := newTestServer(t)

	t.Run("get returns seeded defaults", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/settings", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var settings models.Settings
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
		assert.Equal(t, seeded.Address, settings.DefaultWallet)
		assert.Equal(t, database.DefaultBuyAmounts, settings.BuyAmounts)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPut, "/settings", gin.H{"slippage": 2.5})
		require.Equal(t, http.StatusOK, rec.Code)

		var settings models.Settings
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
		assert.InDelta(t, 2.5, settings.Slippage, 1e-9)
		assert.Equal(t, database.DefaultBuyAmounts, settings.BuyAmounts)
	})

	t.Run("rejects out of range sell percentages", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPut, "/settings", gin.H{"sellAmountPercentages": []float64{0, 150}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown default wallet", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPut, "/settings", gin.H{"defaultWallet": "missing"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTradeEndpoints(t *testing.T) {
	srv, st, seeded := newTestServer(t)

	t.Run("buy executes against the default wallet", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/trades/buy", gin.H{
			"pairAddress": testPairAddress,
			"solAmount":   1,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var outcome trader.Outcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
		assert.InDelta(t, 9.0, outcome.NewBalanceSOL, 1e-9)
		assert.InDelta(t, 100.0, outcome.Quantity, 1e-9)
	})

	t.Run("positions reflect the open trade", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/wallets/"+seeded.Address+"/positions", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var positions []trader.Position
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
		require.Len(t, positions, 1)
		assert.Equal(t, testPairAddress, positions[0].Trade.PairAddress)
	})

	t.Run("sell closes out", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/trades/sell", gin.H{
			"walletAddress": seeded.Address,
			"pairAddress":   testPairAddress,
			"sellPercent":   100,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var outcome trader.Outcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
		assert.Equal(t, models.TradeClosed, outcome.Trade.Status)

		wallet, err := st.GetWallet(seeded.Address)
		require.NoError(t, err)
		assert.InDelta(t, 10.0, wallet.BalanceSOL, 1e-9)
	})

	t.Run("sell without a position is not found", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/trades/sell", gin.H{
			"pairAddress": testPairAddress,
			"sellPercent": 50,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("oversized buy is a bad request", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/trades/buy", gin.H{
			"pairAddress": testPairAddress,
			"solAmount":   1000,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown pair is not found", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/trades/buy", gin.H{
			"pairAddress": "UnknownPair",
			"solAmount":   1,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPairsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	t.Run("returns snapshots for the requested pairs", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/pairs?addresses="+testPairAddress, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var pairs []services.Pair
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pairs))
		require.Len(t, pairs, 1)
		assert.Equal(t, testPairAddress, pairs[0].PairAddress)
	})

	t.Run("requires addresses", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/pairs", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
