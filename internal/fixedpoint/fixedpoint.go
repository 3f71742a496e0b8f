package fixedpoint

import (
	"math/big"
	"sync"
)

// The engine works in 18-decimal fixed point ("wad"). Price feeds report
// 8-decimal fixed point, Chainlink style.
const (
	WadDecimals  = 18
	FeedDecimals = 8
)

var (
	// Wad is the working scale: 10^18.
	Wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(WadDecimals), nil)

	// FeedScale is the native feed scale: 10^8.
	FeedScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(FeedDecimals), nil)

	// FeedToWad lifts an 8-decimal feed price into the 18-decimal scale: 10^10.
	FeedToWad = new(big.Int).Exp(big.NewInt(10), big.NewInt(WadDecimals-FeedDecimals), nil)

	// MaxHealthFactor is the sentinel returned for accounts with no debt.
	// 2^256 - 1, the largest value the ledger will ever represent.
	MaxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// Pooled big.Int for intermediate products
var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0)
	intPool.Put(v)
}

// MulDiv computes floor(a * b / denom) without intermediate overflow.
// Panics if denom is zero; callers guard the zero-debt case themselves.
func MulDiv(a, b, denom *big.Int) *big.Int {
	prod := getInt()
	prod.Mul(a, b)

	out := new(big.Int).Quo(prod, denom)
	putInt(prod)
	return out
}

// Pow10 returns 10^n as a fresh big.Int.
func Pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// FromUnits returns n * 10^decimals, e.g. FromUnits(5, 18) = 5 whole tokens.
func FromUnits(n int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Pow10(decimals))
}

// PercentOf computes amount * pct / 100.
func PercentOf(amount *big.Int, pct int64) *big.Int {
	return MulDiv(amount, big.NewInt(pct), big.NewInt(100))
}
