package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aminsammara/foundry-stablecoin/internal/engine"
	"github.com/aminsammara/foundry-stablecoin/internal/observability"
	"github.com/aminsammara/foundry-stablecoin/internal/oracle"
	"github.com/aminsammara/foundry-stablecoin/internal/query"
)

// AdminHooks are optional dev-mode handlers. Fund credits a holder in the
// collateral bank; SetPrice overrides an asset's feed. Both are nil in
// deployments backed by real token contracts and feeds.
type AdminHooks struct {
	Fund     func(asset string, user uuid.UUID, amount *big.Int) error
	SetPrice func(asset string, price int64) error
}

// HTTPServer serves the JSON API, health endpoints, and Prometheus metrics.
type HTTPServer struct {
	httpServer    *http.Server
	addr          string
	eng           *engine.Engine
	querySvc      *query.Service
	healthChecker *observability.HealthChecker
	admin         *AdminHooks
}

func NewHTTPServer(addr string, eng *engine.Engine, querySvc *query.Service, hc *observability.HealthChecker, admin *AdminHooks) *HTTPServer {
	return &HTTPServer{
		addr:          addr,
		eng:           eng,
		querySvc:      querySvc,
		healthChecker: hc,
		admin:         admin,
	}
}

// Start runs the HTTP server (blocking) until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	mux := runtime.NewServeMux()

	type route struct {
		method  string
		path    string
		handler runtime.HandlerFunc
	}
	routes := []route{
		{"POST", "/v1/collateral/deposit", s.handleDeposit},
		{"POST", "/v1/collateral/redeem", s.handleRedeem},
		{"POST", "/v1/collateral/deposit-and-mint", s.handleDepositAndMint},
		{"POST", "/v1/collateral/redeem-for-burn", s.handleRedeemForBurn},
		{"POST", "/v1/debt/mint", s.handleMint},
		{"POST", "/v1/debt/burn", s.handleBurn},
		{"POST", "/v1/liquidations", s.handleLiquidate},
		{"GET", "/v1/accounts/{user}", s.handleAccountSnapshot},
		{"GET", "/v1/accounts/{user}/health-factor", s.handleHealthFactor},
		{"GET", "/v1/accounts/{user}/collateral/{asset}", s.handleCollateralBalance},
		{"GET", "/v1/assets", s.handleAssets},
		{"GET", "/v1/assets/{asset}/price", s.handlePrice},
		{"GET", "/v1/assets/{asset}/value", s.handleUsdValue},
		{"GET", "/v1/supply", s.handleSupply},
	}
	if s.admin != nil {
		routes = append(routes,
			route{"POST", "/v1/admin/fund", s.handleFund},
			route{"POST", "/v1/assets/{asset}/price", s.handleSetPrice},
		)
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", r.method, r.path, err)
		}
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", promhttp.Handler())
	if s.healthChecker != nil {
		httpMux.HandleFunc("/healthz", s.healthChecker.LivenessHandler)
		httpMux.HandleFunc("/readyz", s.healthChecker.ReadinessHandler)
	}
	httpMux.Handle("/", mux)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: httpMux,
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ============================================================================
// Mutation handlers
// ============================================================================

type depositRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (s *HTTPServer) handleDeposit(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req depositRequest
	user, amount, ok := decodeMutation(w, r, &req, &req.User, &req.Amount)
	if !ok {
		return
	}
	s.finish(w, s.eng.DepositCollateral(user, req.Asset, amount))
}

func (s *HTTPServer) handleRedeem(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req depositRequest
	user, amount, ok := decodeMutation(w, r, &req, &req.User, &req.Amount)
	if !ok {
		return
	}
	s.finish(w, s.eng.RedeemCollateral(user, req.Asset, amount))
}

type debtRequest struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

func (s *HTTPServer) handleMint(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req debtRequest
	user, amount, ok := decodeMutation(w, r, &req, &req.User, &req.Amount)
	if !ok {
		return
	}
	s.finish(w, s.eng.MintStableToken(user, amount))
}

func (s *HTTPServer) handleBurn(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req debtRequest
	user, amount, ok := decodeMutation(w, r, &req, &req.User, &req.Amount)
	if !ok {
		return
	}
	s.finish(w, s.eng.BurnStableToken(user, amount))
}

type compositeRequest struct {
	User             string `json:"user"`
	Asset            string `json:"asset"`
	CollateralAmount string `json:"collateral_amount"`
	DebtAmount       string `json:"debt_amount"`
}

func (s *HTTPServer) handleDepositAndMint(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	user, collateral, debt, asset, ok := decodeComposite(w, r)
	if !ok {
		return
	}
	s.finish(w, s.eng.DepositAndMint(user, asset, collateral, debt))
}

func (s *HTTPServer) handleRedeemForBurn(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	user, collateral, debt, asset, ok := decodeComposite(w, r)
	if !ok {
		return
	}
	s.finish(w, s.eng.RedeemForBurn(user, asset, collateral, debt))
}

type liquidateRequest struct {
	Liquidator  string `json:"liquidator"`
	User        string `json:"user"`
	Asset       string `json:"asset"`
	DebtToCover string `json:"debt_to_cover"`
}

func (s *HTTPServer) handleLiquidate(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req liquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	liquidator, err := uuid.Parse(req.Liquidator)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid liquidator")
		return
	}
	user, err := uuid.Parse(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user")
		return
	}
	debtToCover, ok := parseAmount(req.DebtToCover)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debt_to_cover")
		return
	}
	s.finish(w, s.eng.Liquidate(liquidator, user, req.Asset, debtToCover))
}

// ============================================================================
// Admin handlers (dev mode only)
// ============================================================================

func (s *HTTPServer) handleFund(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req depositRequest
	user, amount, ok := decodeMutation(w, r, &req, &req.User, &req.Amount)
	if !ok {
		return
	}
	if err := s.admin.Fund(req.Asset, user, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "funded"})
}

type setPriceRequest struct {
	Price int64 `json:"price"`
}

func (s *HTTPServer) handleSetPrice(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req setPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}
	if err := s.admin.SetPrice(pathParams["asset"], req.Price); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset": pathParams["asset"],
		"price": req.Price,
	})
}

// ============================================================================
// Query handlers
// ============================================================================

func (s *HTTPServer) handleAccountSnapshot(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	user, err := uuid.Parse(pathParams["user"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user")
		return
	}
	snap, err := s.querySvc.AccountSnapshot(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *HTTPServer) handleHealthFactor(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	user, err := uuid.Parse(pathParams["user"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user")
		return
	}
	hf, err := s.querySvc.HealthFactor(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user":          user.String(),
		"health_factor": hf.String(),
	})
}

func (s *HTTPServer) handleCollateralBalance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	user, err := uuid.Parse(pathParams["user"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user")
		return
	}
	asset := pathParams["asset"]
	bal, err := s.querySvc.CollateralBalance(user, asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user":    user.String(),
		"asset":   asset,
		"balance": bal.String(),
	})
}

func (s *HTTPServer) handleAssets(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"assets": s.querySvc.Assets(),
		"stable": s.eng.StableSymbol(),
	})
}

func (s *HTTPServer) handlePrice(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	asset := pathParams["asset"]
	feed, err := s.querySvc.PriceFeed(asset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	price, updatedAt, err := feed.LatestPrice()
	if err != nil {
		writeEngineError(w, fmt.Errorf("%w: %v", oracle.ErrFeedUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":      asset,
		"price":      price,
		"updated_at": updatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (s *HTTPServer) handleUsdValue(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	asset := pathParams["asset"]
	amount, ok := parseAmount(r.URL.Query().Get("amount"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	usd, err := s.querySvc.UsdValue(asset, amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":     asset,
		"amount":    amount.String(),
		"usd_value": usd.String(),
	})
}

func (s *HTTPServer) handleSupply(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{
		"stable":       s.eng.StableSymbol(),
		"total_issued": s.querySvc.TotalStableIssued().String(),
	})
}

// ============================================================================
// Helpers
// ============================================================================

func decodeMutation(w http.ResponseWriter, r *http.Request, req any, userField, amountField *string) (uuid.UUID, *big.Int, bool) {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return uuid.Nil, nil, false
	}
	user, err := uuid.Parse(*userField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user")
		return uuid.Nil, nil, false
	}
	amount, ok := parseAmount(*amountField)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return uuid.Nil, nil, false
	}
	return user, amount, true
}

func decodeComposite(w http.ResponseWriter, r *http.Request) (uuid.UUID, *big.Int, *big.Int, string, bool) {
	var req compositeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return uuid.Nil, nil, nil, "", false
	}
	user, err := uuid.Parse(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user")
		return uuid.Nil, nil, nil, "", false
	}
	collateral, ok := parseAmount(req.CollateralAmount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid collateral_amount")
		return uuid.Nil, nil, nil, "", false
	}
	debt, ok := parseAmount(req.DebtAmount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid debt_amount")
		return uuid.Nil, nil, nil, "", false
	}
	return user, collateral, debt, req.Asset, true
}

// parseAmount reads a base-10 integer amount in 18-decimal fixed point.
func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return v, true
}

func (s *HTTPServer) finish(w http.ResponseWriter, err error) {
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "committed",
		"sequence": s.eng.Sequence(),
	})
}

// writeEngineError maps engine error kinds onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var code int
	switch {
	case errors.Is(err, engine.ErrZeroAmount):
		code = http.StatusBadRequest
	case errors.Is(err, engine.ErrUnknownAsset):
		code = http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrHealthFactorBroken),
		errors.Is(err, engine.ErrHealthFactorOk),
		errors.Is(err, engine.ErrHealthFactorNotImproved):
		code = http.StatusConflict
	case errors.Is(err, engine.ErrOperationInFlight),
		errors.Is(err, oracle.ErrStalePrice),
		errors.Is(err, oracle.ErrFeedUnavailable):
		code = http.StatusServiceUnavailable
	default:
		code = http.StatusInternalServerError
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
