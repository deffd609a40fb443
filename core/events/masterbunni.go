package events

import (
	"encoding/hex"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// TypeRushIncentiveDeposited is emitted when incentive funding is added
	// to a not-yet-started rush pool.
	TypeRushIncentiveDeposited = "masterbunni.rush.incentive_deposited"
	// TypeRushIncentiveWithdrawn is emitted when a depositor pulls funding
	// back out of a not-yet-started rush pool.
	TypeRushIncentiveWithdrawn = "masterbunni.rush.incentive_withdrawn"
	// TypeRushJoined is emitted when a staker's position in a rush pool
	// increases.
	TypeRushJoined = "masterbunni.rush.joined"
	// TypeRushExited is emitted when a staker zeroes their rush position.
	TypeRushExited = "masterbunni.rush.exited"
	// TypeRushClaimed is emitted per (pool, incentive token) on claim.
	TypeRushClaimed = "masterbunni.rush.claimed"
	// TypeRushRefunded is emitted when a depositor reclaims the unearned
	// share of their incentive after the program ended.
	TypeRushRefunded = "masterbunni.rush.refunded"
	// TypeRecurIncentivized is emitted when a recur pool's reward stream is
	// opened or topped up.
	TypeRecurIncentivized = "masterbunni.recur.incentivized"
	// TypeRecurJoined is emitted when a staker's recur balance increases.
	TypeRecurJoined = "masterbunni.recur.joined"
	// TypeRecurExited is emitted when a staker zeroes their recur balance.
	TypeRecurExited = "masterbunni.recur.exited"
	// TypeRecurClaimed is emitted per pool on recur claims.
	TypeRecurClaimed = "masterbunni.recur.claimed"
	// TypeUnlocked is emitted when the engine releases a stake token lock.
	TypeUnlocked = "masterbunni.unlocked"
)

// PoolSettlement captures a value movement against a pool for one account
// and one token. It backs most masterbunni event variants.
type PoolSettlement struct {
	Type    string
	PoolID  [32]byte
	Account common.Address
	Token   common.Address
	Amount  *uint256.Int
}

// Event converts the settlement into the generic envelope.
func (s PoolSettlement) Event() *Event {
	attrs := map[string]string{
		"poolId":  hex.EncodeToString(s.PoolID[:]),
		"account": s.Account.Hex(),
	}
	if s.Token != (common.Address{}) {
		attrs["token"] = s.Token.Hex()
	}
	if s.Amount != nil {
		attrs["amount"] = s.Amount.Dec()
	}
	return &Event{Type: s.Type, Attributes: attrs}
}

// Unlocked captures a stake token lock release.
type Unlocked struct {
	Account common.Address
	Token   common.Address
}

// Event converts the release into the generic envelope.
func (u Unlocked) Event() *Event {
	return &Event{Type: TypeUnlocked, Attributes: map[string]string{
		"account": u.Account.Hex(),
		"token":   u.Token.Hex(),
	}}
}

// RecurStream captures the rate and period of a recur pool after an
// incentive top-up.
type RecurStream struct {
	PoolID       [32]byte
	Funder       common.Address
	RewardToken  common.Address
	Amount       *uint256.Int
	RewardRate   *uint256.Int
	PeriodFinish uint64
}

// Event converts the stream update into the generic envelope.
func (r RecurStream) Event() *Event {
	attrs := map[string]string{
		"poolId":       hex.EncodeToString(r.PoolID[:]),
		"funder":       r.Funder.Hex(),
		"rewardToken":  r.RewardToken.Hex(),
		"periodFinish": strconv.FormatUint(r.PeriodFinish, 10),
	}
	if r.Amount != nil {
		attrs["amount"] = r.Amount.Dec()
	}
	if r.RewardRate != nil {
		attrs["rewardRate"] = r.RewardRate.Dec()
	}
	return &Event{Type: TypeRecurIncentivized, Attributes: attrs}
}
