package engine

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// DepositAndMint locks collateral and mints debt against it as one atomic
// unit. If the mint's invariant check fails, the deposit does not survive on
// its own: the composite reverts together.
func (e *Engine) DepositAndMint(user uuid.UUID, asset string, collateralAmount, debtAmount *big.Int) error {
	const op = "deposit_and_mint"

	if err := e.acquire(op); err != nil {
		return e.reject(op, err)
	}
	defer e.release()
	start := time.Now()

	dep, err := e.stageDeposit(user, asset, collateralAmount)
	if err != nil {
		return e.reject(op, err)
	}

	mint, err := e.stageMint(user, debtAmount)
	if err != nil {
		e.rollback(op, dep)
		return e.reject(op, err)
	}

	e.commit(op, start, dep, mint)
	return nil
}

// RedeemForBurn repays debt and withdraws collateral as one atomic unit.
// The burn runs first so the health-factor check after redemption reflects
// the reduced debt.
func (e *Engine) RedeemForBurn(user uuid.UUID, asset string, collateralAmount, debtAmount *big.Int) error {
	const op = "redeem_for_burn"

	if err := e.acquire(op); err != nil {
		return e.reject(op, err)
	}
	defer e.release()
	start := time.Now()

	burn, err := e.stageBurn(user, user, debtAmount)
	if err != nil {
		return e.reject(op, err)
	}

	redeem, err := e.stageRedeem(user, user, asset, collateralAmount)
	if err != nil {
		e.rollback(op, burn)
		return e.reject(op, err)
	}

	e.commit(op, start, burn, redeem)
	return nil
}
