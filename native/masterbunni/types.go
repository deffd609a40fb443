package masterbunni

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PoolID is the 32-byte digest derived from a pool key. Pool state is always
// addressed by this digest; the id itself is never persisted.
type PoolID = common.Hash

// RushPoolKey describes one fixed-incentive staking program. The key is
// immutable; any field change (including only the start timestamp) yields a
// distinct pool.
type RushPoolKey struct {
	StakeToken     common.Address
	StakeCap       *uint256.Int
	StartTimestamp uint64
	ProgramLength  uint64
}

// Valid reports whether every field of the key is non-degenerate.
func (k RushPoolKey) Valid() bool {
	return k.StakeToken != (common.Address{}) &&
		k.StakeCap != nil && !k.StakeCap.IsZero() &&
		k.StartTimestamp != 0 &&
		k.ProgramLength != 0
}

// EndTimestamp returns the instant after which no further stake-time accrues.
func (k RushPoolKey) EndTimestamp() uint64 {
	return k.StartTimestamp + k.ProgramLength
}

// RecurPoolKey describes one streaming-reward pool. A pool pays exactly one
// reward token; the same stake token with a different reward token is a
// different pool.
type RecurPoolKey struct {
	StakeToken  common.Address
	RewardToken common.Address
	Duration    uint64
}

// Valid reports whether every field of the key is non-degenerate.
func (k RecurPoolKey) Valid() bool {
	return k.StakeToken != (common.Address{}) &&
		k.RewardToken != (common.Address{}) &&
		k.Duration != 0
}

// RushStakeState holds a stake amount together with its normalized
// stake-time accumulator. The same record shape serves both the pool
// aggregate and each per-user position.
type RushStakeState struct {
	StakeAmount      *uint256.Int
	StakeXTimeStored *uint256.Int
	LastUpdate       uint64
}

func newRushStakeState() *RushStakeState {
	return &RushStakeState{
		StakeAmount:      uint256.NewInt(0),
		StakeXTimeStored: uint256.NewInt(0),
	}
}

// RecurPoolState carries the pool-level half of the reward-per-token
// algorithm.
type RecurPoolState struct {
	LastUpdateTime       uint64
	PeriodFinish         uint64
	RewardRate           *uint256.Int
	RewardPerTokenStored *uint256.Int
	TotalSupply          *uint256.Int
}

func newRecurPoolState() *RecurPoolState {
	return &RecurPoolState{
		RewardRate:           uint256.NewInt(0),
		RewardPerTokenStored: uint256.NewInt(0),
		TotalSupply:          uint256.NewInt(0),
	}
}

// RecurUserState carries the per-user half of the reward-per-token
// algorithm.
type RecurUserState struct {
	Balance            *uint256.Int
	RewardPerTokenPaid *uint256.Int
	AccruedReward      *uint256.Int
}

func newRecurUserState() *RecurUserState {
	return &RecurUserState{
		Balance:            uint256.NewInt(0),
		RewardPerTokenPaid: uint256.NewInt(0),
		AccruedReward:      uint256.NewInt(0),
	}
}

// RushIncentiveParams pairs a rush pool key with an incentive amount for
// batched deposits and withdrawals.
type RushIncentiveParams struct {
	Key    RushPoolKey
	Amount *uint256.Int
}

// RushClaimParams groups the rush pools to settle for one incentive token.
// A single transfer per incentive token is performed at the end of the batch.
type RushClaimParams struct {
	IncentiveToken common.Address
	Keys           []RushPoolKey
}

// RecurIncentiveParams pairs a recur pool key with a top-up amount.
type RecurIncentiveParams struct {
	Key    RecurPoolKey
	Amount *uint256.Int
}

// RecurClaimParams groups the recur pools to settle for one incentive token.
type RecurClaimParams struct {
	IncentiveToken common.Address
	Keys           []RecurPoolKey
}

// LockCallbackData names the pools a freshly locked balance should be staked
// into. It is supplied by the locking user through the stake asset and
// forwarded verbatim to the engine callback.
type LockCallbackData struct {
	RushKeys  []RushPoolKey
	RecurKeys []RecurPoolKey
}

// TokenPort is the fungible-asset transfer collaborator. Both calls are
// all-or-nothing; an error aborts the enclosing engine operation.
type TokenPort interface {
	Transfer(token, to common.Address, amount *uint256.Int) error
	TransferFrom(token, from, to common.Address, amount *uint256.Int) error
}

// LockPort is the exclusive-lock collaborator for stake assets. The engine
// acts as unlocker: it only ever calls Unlock for users whose membership
// count has reached zero.
type LockPort interface {
	IsLocked(token, user common.Address) (bool, error)
	UnlockerOf(token, user common.Address) (common.Address, error)
	Unlock(token, user common.Address) error
	BalanceOf(token, user common.Address) (*uint256.Int, error)
}

func u(x *uint256.Int) *uint256.Int {
	if x == nil {
		return uint256.NewInt(0)
	}
	return x
}
