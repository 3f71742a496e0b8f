package query

import (
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aminsammara/foundry-stablecoin/internal/engine"
	"github.com/aminsammara/foundry-stablecoin/internal/observability"
	"github.com/aminsammara/foundry-stablecoin/internal/oracle"
)

// Service exposes the engine's read-only views. No query mutates anything;
// results are derived snapshots, never references into ledger state.
type Service struct {
	eng     *engine.Engine
	metrics *observability.Metrics
	log     zerolog.Logger
}

// AccountSnapshot is the full derived view of one account.
type AccountSnapshot struct {
	User          uuid.UUID           `json:"user"`
	Collateral    map[string]*big.Int `json:"collateral"`
	CollateralUsd *big.Int            `json:"collateral_usd"`
	Debt          *big.Int            `json:"debt"`
	HealthFactor  *big.Int            `json:"health_factor"`
}

func NewService(eng *engine.Engine, metrics *observability.Metrics) *Service {
	return &Service{
		eng:     eng,
		metrics: metrics,
		log:     observability.NewLogger("query"),
	}
}

func (s *Service) observe(endpoint string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.QueryErrors.WithLabelValues(endpoint, errorCode(err)).Inc()
	}
	s.metrics.QueryRequests.WithLabelValues(endpoint, status).Inc()
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnknownAsset):
		return "unknown_asset"
	case errors.Is(err, oracle.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, oracle.ErrFeedUnavailable):
		return "feed_unavailable"
	default:
		return "internal"
	}
}

// AccountSnapshot returns collateral balances per asset, the aggregate USD
// valuation, outstanding debt, and the health factor for one account.
func (s *Service) AccountSnapshot(user uuid.UUID) (snap *AccountSnapshot, err error) {
	start := time.Now()
	defer func() { s.observe("account_snapshot", start, err) }()

	collateral := make(map[string]*big.Int)
	for _, asset := range s.eng.Assets() {
		collateral[asset] = s.eng.CollateralBalance(user, asset)
	}

	collateralUsd, debt, err := s.eng.AccountInformation(user)
	if err != nil {
		return nil, err
	}
	hf, err := s.eng.HealthFactor(user)
	if err != nil {
		return nil, err
	}

	return &AccountSnapshot{
		User:          user,
		Collateral:    collateral,
		CollateralUsd: collateralUsd,
		Debt:          debt,
		HealthFactor:  hf,
	}, nil
}

// CollateralBalance returns user's deposited amount of one configured asset.
func (s *Service) CollateralBalance(user uuid.UUID, asset string) (bal *big.Int, err error) {
	start := time.Now()
	defer func() { s.observe("collateral_balance", start, err) }()

	if _, ok := s.eng.PriceFeed(asset); !ok {
		return nil, engine.ErrUnknownAsset
	}
	return s.eng.CollateralBalance(user, asset), nil
}

// DebtBalance returns user's outstanding stable-token debt.
func (s *Service) DebtBalance(user uuid.UUID) *big.Int {
	start := time.Now()
	defer func() { s.observe("debt_balance", start, nil) }()
	return s.eng.DebtBalance(user)
}

// HealthFactor returns user's current health factor.
func (s *Service) HealthFactor(user uuid.UUID) (hf *big.Int, err error) {
	start := time.Now()
	defer func() { s.observe("health_factor", start, err) }()
	return s.eng.HealthFactor(user)
}

// Assets returns the configured collateral asset symbols.
func (s *Service) Assets() []string {
	start := time.Now()
	defer func() { s.observe("assets", start, nil) }()
	return s.eng.Assets()
}

// PriceFeed returns the configured feed reference for an asset.
func (s *Service) PriceFeed(asset string) (oracle.PriceFeed, error) {
	feed, ok := s.eng.PriceFeed(asset)
	if !ok {
		return nil, engine.ErrUnknownAsset
	}
	return feed, nil
}

// UsdValue values an arbitrary (asset, amount) pair at the current price.
func (s *Service) UsdValue(asset string, amount *big.Int) (usd *big.Int, err error) {
	start := time.Now()
	defer func() { s.observe("usd_value", start, err) }()
	return s.eng.UsdValue(asset, amount)
}

// TokenAmountFromUsd converts an 18-decimal USD amount into native units.
func (s *Service) TokenAmountFromUsd(asset string, usd *big.Int) (amount *big.Int, err error) {
	start := time.Now()
	defer func() { s.observe("token_amount", start, err) }()
	return s.eng.TokenAmountFromUsd(asset, usd)
}

// TotalStableIssued returns the outstanding stable-token supply.
func (s *Service) TotalStableIssued() *big.Int {
	start := time.Now()
	defer func() { s.observe("total_issued", start, nil) }()
	return s.eng.TotalStableIssued()
}
