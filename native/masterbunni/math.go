package masterbunni

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Fixed-point scales. Stake-time and reward-per-token accumulators live at
// 1e36; recur reward rates are stored as reward units scaled by 1e6 per
// second so that slow drips over long periods keep sub-unit resolution.
var (
	precision           = mustUint256("1000000000000000000000000000000000000") // 1e36
	rewardRatePrecision = mustUint256("1000000")                               // 1e6
	// precision / rewardRatePrecision, the factor applied when folding a
	// scaled rate into the 1e36 reward-per-token accumulator.
	ratePrecisionQuotient = mustUint256("1000000000000000000000000000000") // 1e30
)

func mustUint256(value string) *uint256.Int {
	b, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid uint256 constant")
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		panic("uint256 constant overflow")
	}
	return v
}

// mulDiv computes floor(x*y/d) with a full-width intermediate product.
// A zero denominator or a quotient above 2^256-1 is a hard error that must
// abort the enclosing operation.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d == nil || d.IsZero() {
		return nil, errDivisionByZero
	}
	product := new(big.Int).Mul(u(x).ToBig(), u(y).ToBig())
	product.Quo(product, d.ToBig())
	out, overflow := uint256.FromBig(product)
	if overflow {
		return nil, errMulDivOverflow
	}
	return out, nil
}

// mulDivUp computes ceil(x*y/d). Used where the result is an amount owed to
// stakers that must round against the depositor.
func mulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d == nil || d.IsZero() {
		return nil, errDivisionByZero
	}
	product := new(big.Int).Mul(u(x).ToBig(), u(y).ToBig())
	den := d.ToBig()
	rem := new(big.Int)
	product.QuoRem(product, den, rem)
	if rem.Sign() != 0 {
		product.Add(product, big.NewInt(1))
	}
	out, overflow := uint256.FromBig(product)
	if overflow {
		return nil, errMulDivOverflow
	}
	return out, nil
}

// addCheck returns x+y, failing on 256-bit wrap-around.
func addCheck(x, y *uint256.Int) (*uint256.Int, error) {
	sum, carry := new(uint256.Int).AddOverflow(u(x), u(y))
	if carry {
		return nil, errAmountOverflow
	}
	return sum, nil
}

// subCheck returns x-y, failing on underflow.
func subCheck(x, y *uint256.Int) (*uint256.Int, error) {
	diff, borrow := new(uint256.Int).SubOverflow(u(x), u(y))
	if borrow {
		return nil, errAmountOverflow
	}
	return diff, nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
