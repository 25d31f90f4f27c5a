package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wnt/tradequest/internal/utils"
)

// HeliusClient resolves token mint decimals through the Helius
// Solana RPC. Decimals are required before any swap amount scaling.
type HeliusClient struct {
	httpClient *utils.HTTPClient
	apiKey     string
}

// NewHeliusClient creates a new client for the Helius RPC endpoint
func NewHeliusClient(baseURL, apiKey string) *HeliusClient {
	return &HeliusClient{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithDefaultHeaders(map[string]string{
				"Content-Type": "application/json",
			}),
		),
		apiKey: apiKey,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type tokenSupplyResponse struct {
	Result struct {
		Value struct {
			Decimals int `json:"decimals"`
		} `json:"value"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetDecimals returns the decimal precision of a token mint via the
// getTokenSupply RPC call.
func (c *HeliusClient) GetDecimals(ctx context.Context, tokenAddress string) (int, error) {
	path := "/"
	if c.apiKey != "" {
		path = "/?" + url.Values{"api-key": {c.apiKey}}.Encode()
	}

	response, err := c.httpClient.Post(ctx, path, rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getTokenSupply",
		Params:  []interface{}{tokenAddress},
	})
	if err != nil {
		return 0, fmt.Errorf("helius getTokenSupply: %w", err)
	}

	var result tokenSupplyResponse
	if err := response.DecodeJSON(&result); err != nil {
		return 0, fmt.Errorf("helius getTokenSupply: %w", err)
	}
	if result.Error != nil {
		return 0, fmt.Errorf("helius getTokenSupply: rpc error %d: %s", result.Error.Code, result.Error.Message)
	}
	return result.Result.Value.Decimals, nil
}
