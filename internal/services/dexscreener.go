package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wnt/tradequest/internal/utils"
)

// SolanaChainID is the Dexscreener chain identifier trades are
// restricted to.
const SolanaChainID = "solana"

// ErrTokenNotFound is returned when a lookup yields no tradable
// Solana pair.
var ErrTokenNotFound = errors.New("token not found")

// DexScreenerClient is a client for the Dexscreener market-data API.
type DexScreenerClient struct {
	httpClient *utils.HTTPClient
}

// NewDexScreenerClient creates a new client for the Dexscreener public API
func NewDexScreenerClient(baseURL string) *DexScreenerClient {
	return &DexScreenerClient{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithDefaultHeaders(map[string]string{
				"Accept": "application/json",
			}),
		),
	}
}

// TokenRef identifies one side of a pair.
type TokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// QuoteTokenRef is the quote side of a pair; Dexscreener only
// guarantees the symbol.
type QuoteTokenRef struct {
	Symbol string `json:"symbol"`
}

// WindowValues holds a metric across Dexscreener's standard time windows.
type WindowValues struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// Liquidity is a pair's pooled liquidity snapshot.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// PairInfo carries optional pair imagery and links.
type PairInfo struct {
	ImageURL string `json:"imageUrl"`
}

// Pair is a tradable token pair snapshot as served by Dexscreener.
type Pair struct {
	ChainID       string        `json:"chainId"`
	DexID         string        `json:"dexId"`
	URL           string        `json:"url"`
	PairAddress   string        `json:"pairAddress"`
	BaseToken     TokenRef      `json:"baseToken"`
	QuoteToken    QuoteTokenRef `json:"quoteToken"`
	PriceNative   string        `json:"priceNative"`
	PriceUSD      string        `json:"priceUsd"`
	Volume        WindowValues  `json:"volume"`
	PriceChange   WindowValues  `json:"priceChange"`
	Liquidity     *Liquidity    `json:"liquidity"`
	FDV           float64       `json:"fdv"`
	PairCreatedAt int64         `json:"pairCreatedAt"`
	Info          *PairInfo     `json:"info"`
}

// SearchResponse is the payload of the search endpoint.
type SearchResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// PairsResponse is the payload of the batched pairs endpoint.
type PairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// Search queries pairs matching a free-text token query.
func (c *DexScreenerClient) Search(ctx context.Context, query string) ([]Pair, error) {
	params := url.Values{}
	params.Set("q", query)

	response, err := c.httpClient.Get(ctx, "/latest/dex/search/", params)
	if err != nil {
		return nil, fmt.Errorf("dexscreener search: %w", err)
	}

	var result SearchResponse
	if err := response.DecodeJSON(&result); err != nil {
		return nil, fmt.Errorf("dexscreener search: %w", err)
	}
	return result.Pairs, nil
}

// GetPairs fetches price snapshots for a batch of Solana pair
// addresses in a single comma-joined request.
func (c *DexScreenerClient) GetPairs(ctx context.Context, pairAddresses []string) ([]Pair, error) {
	if len(pairAddresses) == 0 {
		return nil, nil
	}

	path := fmt.Sprintf("/latest/dex/pairs/%s/%s", SolanaChainID, strings.Join(pairAddresses, ","))
	response, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("dexscreener pairs: %w", err)
	}

	var result PairsResponse
	if err := response.DecodeJSON(&result); err != nil {
		return nil, fmt.Errorf("dexscreener pairs: %w", err)
	}
	return result.Pairs, nil
}

// FindSolanaPair searches for a token and returns its first Solana
// pair, the lookup the trade flow starts from.
func (c *DexScreenerClient) FindSolanaPair(ctx context.Context, query string) (Pair, error) {
	pairs, err := c.Search(ctx, query)
	if err != nil {
		return Pair{}, err
	}
	for _, pair := range pairs {
		if pair.ChainID == SolanaChainID {
			return pair, nil
		}
	}
	return Pair{}, fmt.Errorf("%q: %w", query, ErrTokenNotFound)
}
