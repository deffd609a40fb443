package masterbunni

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Bunniapp/tokenomics-sub000/core/events"
)

// rewardPerToken advances the 1e36-scale reward-per-token accumulator to
// applicable (min(now, periodFinish)). While total supply is zero the stored
// value is frozen: reward streamed during such windows is distributed to
// nobody rather than carried forward.
func rewardPerToken(pool *RecurPoolState, applicable uint64) (*uint256.Int, error) {
	if pool.TotalSupply.IsZero() || applicable <= pool.LastUpdateTime {
		return pool.RewardPerTokenStored.Clone(), nil
	}
	elapsed := applicable - pool.LastUpdateTime
	streamed, overflow := new(uint256.Int).MulOverflow(pool.RewardRate, uint256.NewInt(elapsed))
	if overflow {
		return nil, errMulDivOverflow
	}
	increment, err := mulDiv(streamed, ratePrecisionQuotient, pool.TotalSupply)
	if err != nil {
		return nil, err
	}
	return addCheck(pool.RewardPerTokenStored, increment)
}

// earned reports the user's settled-plus-pending reward at the given
// reward-per-token value, rounding down against the pool.
func earned(user *RecurUserState, rpt *uint256.Int) (*uint256.Int, error) {
	delta, err := subCheck(rpt, user.RewardPerTokenPaid)
	if err != nil {
		return nil, err
	}
	pending, err := mulDiv(user.Balance, delta, precision)
	if err != nil {
		return nil, err
	}
	return addCheck(user.AccruedReward, pending)
}

// touchRecurPool settles the pool-level accumulator up to now.
func touchRecurPool(pool *RecurPoolState, now uint64) error {
	applicable := minUint64(now, pool.PeriodFinish)
	rpt, err := rewardPerToken(pool, applicable)
	if err != nil {
		return err
	}
	pool.RewardPerTokenStored = rpt
	pool.LastUpdateTime = applicable
	return nil
}

// touchRecurUser snapshots the user's earned reward at the pool's current
// accumulator. Must run before any balance change in the same call, since
// earned depends on the pre-change balance.
func touchRecurUser(pool *RecurPoolState, user *RecurUserState, now uint64) error {
	if err := touchRecurPool(pool, now); err != nil {
		return err
	}
	reward, err := earned(user, pool.RewardPerTokenStored)
	if err != nil {
		return err
	}
	user.AccruedReward = reward
	user.RewardPerTokenPaid = pool.RewardPerTokenStored.Clone()
	return nil
}

// checkRewardRate rejects rates that could overflow the reward-per-token
// multiply before the period ends.
func checkRewardRate(rate *uint256.Int, span uint64) error {
	streamed, overflow := new(uint256.Int).MulOverflow(rate, uint256.NewInt(span))
	if overflow {
		return errRewardRateTooHigh
	}
	if _, overflow = new(uint256.Int).MulOverflow(streamed, ratePrecisionQuotient); overflow {
		return errRewardRateTooHigh
	}
	return nil
}

// IncentivizeRecurPool opens or tops up the reward stream of each pool. The
// incentive token must match the pool's configured reward token; mismatched
// or zero-amount entries are skipped. A top-up while the period is still
// running replaces the rate with newAmount/remainingTime; reward already
// streamed at the old rate is retained only through the settled accumulator.
// The accepted sum is pulled from sender in a single transfer.
func (e *Engine) IncentivizeRecurPool(sender common.Address, params []RecurIncentiveParams, incentiveToken common.Address) (*uint256.Int, error) {
	st, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer e.exit()

	now := e.now()
	total := uint256.NewInt(0)
	for _, p := range params {
		amount := u(p.Amount)
		if amount.IsZero() || !p.Key.Valid() || incentiveToken != p.Key.RewardToken {
			continue
		}
		id := p.Key.ID()
		pool, err := loadRecurPoolState(st, id)
		if err != nil {
			return nil, err
		}
		if err := touchRecurPool(pool, now); err != nil {
			return nil, err
		}

		var span uint64
		if now >= pool.PeriodFinish {
			span = p.Key.Duration
			pool.PeriodFinish = now + span
		} else {
			span = pool.PeriodFinish - now
		}
		rate, err := mulDiv(amount, rewardRatePrecision, uint256.NewInt(span))
		if err != nil {
			return nil, err
		}
		if err := checkRewardRate(rate, span); err != nil {
			return nil, err
		}
		pool.RewardRate = rate
		pool.LastUpdateTime = now

		if err := putRecurPoolState(st, id, pool); err != nil {
			return nil, err
		}
		total, err = addCheck(total, amount)
		if err != nil {
			return nil, err
		}
		e.emit(events.RecurStream{
			PoolID:       id,
			Funder:       sender,
			RewardToken:  p.Key.RewardToken,
			Amount:       amount,
			RewardRate:   rate,
			PeriodFinish: pool.PeriodFinish,
		}.Event())
	}
	if !total.IsZero() {
		if err := e.token.TransferFrom(incentiveToken, sender, e.self, total); err != nil {
			return nil, err
		}
	}
	return total, e.commit(st)
}

// JoinRecurPool raises the sender's staked balance in each pool to their
// current locked balance. Re-joining with an unchanged or lower balance is a
// no-op; the user must hold a lock naming this engine as unlocker.
func (e *Engine) JoinRecurPool(sender common.Address, keys []RecurPoolKey) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	now := e.now()
	for _, key := range keys {
		if !key.Valid() {
			continue
		}
		held, err := e.holdsLock(key.StakeToken, sender)
		if err != nil {
			return err
		}
		if !held {
			continue
		}
		balance, err := e.lock.BalanceOf(key.StakeToken, sender)
		if err != nil {
			return err
		}

		id := key.ID()
		pool, err := loadRecurPoolState(st, id)
		if err != nil {
			return err
		}
		user, err := loadRecurUserState(st, id, sender)
		if err != nil {
			return err
		}
		if !u(balance).Gt(user.Balance) {
			continue
		}
		if err := touchRecurUser(pool, user, now); err != nil {
			return err
		}

		delta, err := subCheck(balance, user.Balance)
		if err != nil {
			return err
		}
		pool.TotalSupply, err = addCheck(pool.TotalSupply, delta)
		if err != nil {
			return err
		}
		if user.Balance.IsZero() {
			if err := incrementLockCount(st, sender, key.StakeToken); err != nil {
				return err
			}
		}
		user.Balance = u(balance).Clone()

		if err := putRecurPoolState(st, id, pool); err != nil {
			return err
		}
		if err := putRecurUserState(st, id, sender, user); err != nil {
			return err
		}
		e.emit(events.PoolSettlement{
			Type:    events.TypeRecurJoined,
			PoolID:  id,
			Account: sender,
			Token:   key.StakeToken,
			Amount:  delta,
		}.Event())
	}
	return e.commit(st)
}

// ExitRecurPool zeroes the sender's balance in each pool, snapshotting the
// earned reward first so it remains claimable. Pools where the sender holds
// no balance are skipped.
func (e *Engine) ExitRecurPool(sender common.Address, keys []RecurPoolKey) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	now := e.now()
	for _, key := range keys {
		if !key.Valid() {
			continue
		}
		id := key.ID()
		user, err := loadRecurUserState(st, id, sender)
		if err != nil {
			return err
		}
		if user.Balance.IsZero() {
			continue
		}
		pool, err := loadRecurPoolState(st, id)
		if err != nil {
			return err
		}
		if err := touchRecurUser(pool, user, now); err != nil {
			return err
		}

		withdrawn := user.Balance
		pool.TotalSupply, err = subCheck(pool.TotalSupply, withdrawn)
		if err != nil {
			return err
		}
		user.Balance = uint256.NewInt(0)

		if err := decrementLockCount(st, sender, key.StakeToken); err != nil {
			return err
		}
		if err := putRecurPoolState(st, id, pool); err != nil {
			return err
		}
		if err := putRecurUserState(st, id, sender, user); err != nil {
			return err
		}
		e.emit(events.PoolSettlement{
			Type:    events.TypeRecurExited,
			PoolID:  id,
			Account: sender,
			Token:   key.StakeToken,
			Amount:  withdrawn,
		}.Event())
	}
	return e.commit(st)
}

// ClaimRecurPool settles and pays out the sender's accrued rewards, one
// transfer per incentive token. Keys whose reward token does not match the
// claim's incentive token are skipped.
func (e *Engine) ClaimRecurPool(sender common.Address, claims []RecurClaimParams, recipient common.Address) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	now := e.now()
	for _, claim := range claims {
		total := uint256.NewInt(0)
		for _, key := range claim.Keys {
			if !key.Valid() || claim.IncentiveToken != key.RewardToken {
				continue
			}
			id := key.ID()
			pool, err := loadRecurPoolState(st, id)
			if err != nil {
				return err
			}
			user, err := loadRecurUserState(st, id, sender)
			if err != nil {
				return err
			}
			if err := touchRecurUser(pool, user, now); err != nil {
				return err
			}
			reward := user.AccruedReward
			if reward.IsZero() {
				continue
			}
			user.AccruedReward = uint256.NewInt(0)
			if err := putRecurPoolState(st, id, pool); err != nil {
				return err
			}
			if err := putRecurUserState(st, id, sender, user); err != nil {
				return err
			}
			total, err = addCheck(total, reward)
			if err != nil {
				return err
			}
			e.emit(events.PoolSettlement{
				Type:    events.TypeRecurClaimed,
				PoolID:  id,
				Account: sender,
				Token:   claim.IncentiveToken,
				Amount:  reward,
			}.Event())
		}
		if !total.IsZero() {
			if err := e.token.Transfer(claim.IncentiveToken, recipient, total); err != nil {
				return err
			}
		}
	}
	return e.commit(st)
}

// recurLockCallback stakes a freshly locked balance into each named pool.
// Only accounts with no existing balance are joined; the user snapshot
// starts at the pool's current accumulator so nothing accrues retroactively.
func (e *Engine) recurLockCallback(st State, caller, account common.Address, balance *uint256.Int, keys []RecurPoolKey) error {
	if balance.IsZero() {
		return nil
	}
	now := e.now()
	for _, key := range keys {
		if !key.Valid() || key.StakeToken != caller {
			continue
		}
		id := key.ID()
		user, err := loadRecurUserState(st, id, account)
		if err != nil {
			return err
		}
		if !user.Balance.IsZero() {
			continue
		}
		pool, err := loadRecurPoolState(st, id)
		if err != nil {
			return err
		}
		if err := touchRecurUser(pool, user, now); err != nil {
			return err
		}

		pool.TotalSupply, err = addCheck(pool.TotalSupply, balance)
		if err != nil {
			return err
		}
		user.Balance = balance.Clone()

		if err := incrementLockCount(st, account, key.StakeToken); err != nil {
			return err
		}
		if err := putRecurPoolState(st, id, pool); err != nil {
			return err
		}
		if err := putRecurUserState(st, id, account, user); err != nil {
			return err
		}
		e.emit(events.PoolSettlement{
			Type:    events.TypeRecurJoined,
			PoolID:  id,
			Account: account,
			Token:   key.StakeToken,
			Amount:  balance,
		}.Event())
	}
	return nil
}

// RecurPool returns the pool-level streaming state.
func (e *Engine) RecurPool(key RecurPoolKey) (*RecurPoolState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return loadRecurPoolState(e.state, key.ID())
}

// RecurUser returns the per-user streaming state.
func (e *Engine) RecurUser(key RecurPoolKey, user common.Address) (*RecurUserState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return loadRecurUserState(e.state, key.ID(), user)
}

// RecurEarned reports the reward the user could claim right now, without
// mutating any state.
func (e *Engine) RecurEarned(key RecurPoolKey, account common.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	id := key.ID()
	pool, err := loadRecurPoolState(e.state, id)
	if err != nil {
		return nil, err
	}
	user, err := loadRecurUserState(e.state, id, account)
	if err != nil {
		return nil, err
	}
	rpt, err := rewardPerToken(pool, minUint64(e.now(), pool.PeriodFinish))
	if err != nil {
		return nil, err
	}
	return earned(user, rpt)
}
