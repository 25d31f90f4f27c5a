// Package web exposes the simulator over HTTP. Handlers are thin: they
// bind the request, call into the store or trader, and translate error
// kinds into status codes.
package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/wnt/tradequest/internal/engine"
	"github.com/wnt/tradequest/internal/models"
	"github.com/wnt/tradequest/internal/quote"
	"github.com/wnt/tradequest/internal/services"
	"github.com/wnt/tradequest/internal/store"
	"github.com/wnt/tradequest/internal/trader"
	"github.com/wnt/tradequest/internal/utils"
)

// Server wires the HTTP routes to the store and trader.
type Server struct {
	store       *store.Store
	trader      *trader.Trader
	search      *services.DexScreenerClient
	market      trader.MarketData
	seedBalance float64
	logger      zerolog.Logger
	engine      *gin.Engine
}

// New builds the router. The market argument is used for pair lookups
// and is normally the watcher's cached view.
func New(st *store.Store, tr *trader.Trader, search *services.DexScreenerClient, market trader.MarketData, seedBalance float64, log zerolog.Logger) *Server {
	s := &Server{
		store:       st,
		trader:      tr,
		search:      search,
		market:      market,
		seedBalance: seedBalance,
		logger:      log.With().Str("component", "web").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	wallets := r.Group("/wallets")
	{
		wallets.GET("", s.listWallets)
		wallets.POST("", s.createWallet)
		wallets.PUT("/:address", s.updateWallet)
		wallets.DELETE("/:address", s.deleteWallet)
		wallets.POST("/:address/reset", s.resetWallet)
		wallets.GET("/:address/positions", s.listPositions)
	}

	r.GET("/settings", s.getSettings)
	r.PUT("/settings", s.updateSettings)

	r.GET("/tokens/search", s.searchTokens)
	r.GET("/pairs", s.getPairs)

	trades := r.Group("/trades")
	{
		trades.POST("/buy", s.buy)
		trades.POST("/sell", s.sell)
	}

	s.engine = r
	return s
}

// Run starts the HTTP listener and blocks until it fails.
func (s *Server) Run(port string) error {
	return s.engine.Run(":" + port)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// respondError maps error kinds onto HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidPercent),
		errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrInvalidQuote):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, engine.ErrNoOpenPosition),
		errors.Is(err, services.ErrTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateName):
		status = http.StatusConflict
	case errors.Is(err, quote.ErrQuoteUnavailable):
		status = http.StatusBadGateway
	}

	var upstream *utils.Error
	if status == http.StatusInternalServerError && errors.As(err, &upstream) {
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) listWallets(c *gin.Context) {
	wallets, err := s.store.ListWallets()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallets)
}

// CreateWalletRequest is the payload for creating a wallet. The
// address is generated server side; balance defaults to the seed
// balance when omitted.
type CreateWalletRequest struct {
	Name       string   `json:"name" binding:"required"`
	BalanceSOL *float64 `json:"balanceSOL"`
}

func (s *Server) createWallet(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance := s.seedBalance
	if req.BalanceSOL != nil {
		if *req.BalanceSOL < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "balanceSOL must not be negative"})
			return
		}
		balance = *req.BalanceSOL
	}

	wallet := models.Wallet{
		Address:    solana.NewWallet().PublicKey().String(),
		Name:       strings.TrimSpace(req.Name),
		BalanceSOL: balance,
	}
	if wallet.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
		return
	}

	if err := s.store.CreateWallet(wallet); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wallet)
}

// UpdateWalletRequest is the payload for renaming a wallet or setting
// its balance directly.
type UpdateWalletRequest struct {
	Name       string  `json:"name" binding:"required"`
	BalanceSOL float64 `json:"balanceSOL"`
}

func (s *Server) updateWallet(c *gin.Context) {
	var req UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.BalanceSOL < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "balanceSOL must not be negative"})
		return
	}

	address := c.Param("address")
	if err := s.store.UpdateWallet(address, strings.TrimSpace(req.Name), req.BalanceSOL); err != nil {
		s.respondError(c, err)
		return
	}

	wallet, err := s.store.GetWallet(address)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (s *Server) deleteWallet(c *gin.Context) {
	if err := s.store.DeleteWallet(c.Param("address")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) resetWallet(c *gin.Context) {
	address := c.Param("address")
	if err := s.store.ResetWallet(address, s.seedBalance); err != nil {
		s.respondError(c, err)
		return
	}

	wallet, err := s.store.GetWallet(address)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.store.GetSettings()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettingsRequest is the payload for updating quick-trade
// settings. Omitted fields keep their current value.
type UpdateSettingsRequest struct {
	DefaultWallet   *string    `json:"defaultWallet"`
	BuyAmounts      *[]float64 `json:"buyAmounts"`
	SellPercentages *[]float64 `json:"sellAmountPercentages"`
	Slippage        *float64   `json:"slippage"`
}

func (s *Server) updateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		s.respondError(c, err)
		return
	}

	if req.DefaultWallet != nil {
		if _, err := s.store.GetWallet(*req.DefaultWallet); err != nil {
			s.respondError(c, err)
			return
		}
		settings.DefaultWallet = *req.DefaultWallet
	}
	if req.BuyAmounts != nil {
		for _, amount := range *req.BuyAmounts {
			if amount <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "buyAmounts must be positive"})
				return
			}
		}
		settings.BuyAmounts = models.FloatList(*req.BuyAmounts)
	}
	if req.SellPercentages != nil {
		for _, pct := range *req.SellPercentages {
			if pct <= 0 || pct > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "sellAmountPercentages must be in (0, 100]"})
				return
			}
		}
		settings.SellPercentages = models.FloatList(*req.SellPercentages)
	}
	if req.Slippage != nil {
		if *req.Slippage < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "slippage must not be negative"})
			return
		}
		settings.Slippage = *req.Slippage
	}

	if err := s.store.UpdateSettings(settings); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) searchTokens(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	pairs, err := s.search.Search(c.Request.Context(), query)
	if err != nil {
		s.respondError(c, err)
		return
	}

	// Only Solana pairs are tradable here.
	solanaPairs := make([]services.Pair, 0, len(pairs))
	for _, pair := range pairs {
		if pair.ChainID == services.SolanaChainID {
			solanaPairs = append(solanaPairs, pair)
		}
	}
	c.JSON(http.StatusOK, solanaPairs)
}

func (s *Server) getPairs(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("addresses"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "addresses is required"})
		return
	}

	addresses := make([]string, 0)
	for _, addr := range strings.Split(raw, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addresses = append(addresses, addr)
		}
	}

	pairs, err := s.market.GetPairs(c.Request.Context(), addresses)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pairs)
}

// TradeRequest is the payload for buy and sell orders. WalletAddress
// falls back to the settings default when omitted.
type TradeRequest struct {
	WalletAddress string  `json:"walletAddress"`
	PairAddress   string  `json:"pairAddress" binding:"required"`
	SolAmount     float64 `json:"solAmount"`
	SellPercent   float64 `json:"sellPercent"`
}

func (s *Server) walletFor(req TradeRequest) (string, error) {
	if req.WalletAddress != "" {
		return req.WalletAddress, nil
	}
	settings, err := s.store.GetSettings()
	if err != nil {
		return "", err
	}
	if settings.DefaultWallet == "" {
		return "", store.ErrNotFound
	}
	return settings.DefaultWallet, nil
}

func (s *Server) buy(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	walletAddress, err := s.walletFor(req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	outcome, err := s.trader.Buy(c.Request.Context(), walletAddress, req.PairAddress, req.SolAmount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) sell(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	walletAddress, err := s.walletFor(req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	outcome, err := s.trader.Sell(c.Request.Context(), walletAddress, req.PairAddress, req.SellPercent)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) listPositions(c *gin.Context) {
	positions, err := s.trader.Positions(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if positions == nil {
		positions = []trader.Position{}
	}
	c.JSON(http.StatusOK, positions)
}
