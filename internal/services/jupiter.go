package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/wnt/tradequest/internal/utils"
)

// JupiterClient is a client for the Jupiter swap-quote API. It is the
// price oracle for simulated fills and is treated as best-effort: any
// failure aborts the trade with no state change.
type JupiterClient struct {
	httpClient *utils.HTTPClient
}

// NewJupiterClient creates a new client for the Jupiter quote API
func NewJupiterClient(baseURL string) *JupiterClient {
	return &JupiterClient{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithDefaultHeaders(map[string]string{
				"Accept": "application/json",
			}),
		),
	}
}

// quoteResponse is the subset of the Jupiter v6 quote payload the
// simulator consumes. Amounts are raw token units encoded as strings.
type quoteResponse struct {
	OutAmount string `json:"outAmount"`
}

// GetSwapQuote asks for the raw output amount of swapping rawAmount of
// inputMint into outputMint at the given slippage tolerance.
func (c *JupiterClient) GetSwapQuote(ctx context.Context, inputMint, outputMint string, rawAmount uint64, slippageBps int) (float64, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(rawAmount, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	response, err := c.httpClient.Get(ctx, "/v6/quote", params)
	if err != nil {
		return 0, fmt.Errorf("jupiter quote: %w", err)
	}

	var result quoteResponse
	if err := response.DecodeJSON(&result); err != nil {
		return 0, fmt.Errorf("jupiter quote: %w", err)
	}

	out, err := strconv.ParseFloat(result.OutAmount, 64)
	if err != nil {
		return 0, fmt.Errorf("jupiter quote: invalid outAmount %q: %w", result.OutAmount, err)
	}
	return out, nil
}
