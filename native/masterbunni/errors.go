package masterbunni

import "errors"

var (
	errNilState          = errors.New("masterbunni: state not configured")
	errNilTokenPort      = errors.New("masterbunni: token port not configured")
	errNilLockPort       = errors.New("masterbunni: lock port not configured")
	errReentrancy        = errors.New("masterbunni: reentrant call")
	errMulDivOverflow    = errors.New("masterbunni: mulDiv overflow")
	errDivisionByZero    = errors.New("masterbunni: division by zero")
	errAmountOverflow    = errors.New("masterbunni: amount overflow")
	errDepositUnderflow  = errors.New("masterbunni: withdraw exceeds deposited incentive")
	errRewardRateTooHigh = errors.New("masterbunni: reward rate would overflow accumulator")
	errLockCountCorrupt  = errors.New("masterbunni: lock count underflow")
)

// ErrReentrancy is surfaced when a mutating operation is invoked while
// another mutating operation on the same engine is still executing.
var ErrReentrancy = errReentrancy

// ErrDepositUnderflow marks an incentive withdrawal larger than the caller's
// remaining attributed deposit. It aborts the entire call.
var ErrDepositUnderflow = errDepositUnderflow

// ErrRewardRateTooHigh marks a recur incentive whose resulting reward rate
// could overflow the reward-per-token accumulator before the period ends.
var ErrRewardRateTooHigh = errRewardRateTooHigh
