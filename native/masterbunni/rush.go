package masterbunni

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Bunniapp/tokenomics-sub000/core/events"
)

// computeStakeXTime advances a normalized stake-time accumulator from
// lastUpdate to now. The result is the stored value plus
// (stakeAmount/stakeCap)*(elapsed/programLength) in 1e36 fixed point, with
// elapsed bounded by the program end so nothing accrues past it. A full-cap
// stake held for the whole program accumulates exactly precision (1.0).
//
// Callers must never pass a lastUpdate in the future of min(now, end).
func computeStakeXTime(key RushPoolKey, stored, stakeAmount *uint256.Int, lastUpdate, now uint64) (*uint256.Int, error) {
	if now < key.StartTimestamp {
		return uint256.NewInt(0), nil
	}
	bounded := minUint64(now, key.EndTimestamp())
	if bounded <= lastUpdate || u(stakeAmount).IsZero() {
		return u(stored).Clone(), nil
	}
	elapsed := bounded - lastUpdate
	capFraction, err := mulDiv(stakeAmount, precision, key.StakeCap)
	if err != nil {
		return nil, err
	}
	increment, err := mulDiv(capFraction, uint256.NewInt(elapsed), uint256.NewInt(key.ProgramLength))
	if err != nil {
		return nil, err
	}
	return addCheck(stored, increment)
}

// DepositIncentive adds incentive funding to not-yet-started rush pools,
// attributing the deposit to recipient for later refunds. Entries whose pool
// already started or whose key is degenerate are skipped. The accepted sum
// is pulled from sender in a single transfer and returned so callers can
// detect skipped entries.
func (e *Engine) DepositIncentive(sender common.Address, params []RushIncentiveParams, incentiveToken, recipient common.Address) (*uint256.Int, error) {
	st, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer e.exit()

	now := e.now()
	total := uint256.NewInt(0)
	for _, p := range params {
		amount := u(p.Amount)
		if amount.IsZero() || !p.Key.Valid() || now >= p.Key.StartTimestamp {
			continue
		}
		id := p.Key.ID()

		totalKey := rushIncentiveTotalKey(id, incentiveToken)
		poolTotal, err := loadAmount(st, totalKey)
		if err != nil {
			return nil, err
		}
		poolTotal, err = addCheck(poolTotal, amount)
		if err != nil {
			return nil, err
		}
		if err := putAmount(st, totalKey, poolTotal); err != nil {
			return nil, err
		}

		depositKey := rushIncentiveDepositKey(id, incentiveToken, recipient)
		deposited, err := loadAmount(st, depositKey)
		if err != nil {
			return nil, err
		}
		deposited, err = addCheck(deposited, amount)
		if err != nil {
			return nil, err
		}
		if err := putAmount(st, depositKey, deposited); err != nil {
			return nil, err
		}

		total, err = addCheck(total, amount)
		if err != nil {
			return nil, err
		}
		e.emit(events.PoolSettlement{
			Type:    events.TypeRushIncentiveDeposited,
			PoolID:  id,
			Account: recipient,
			Token:   incentiveToken,
			Amount:  amount,
		}.Event())
	}
	if !total.IsZero() {
		if err := e.token.TransferFrom(incentiveToken, sender, e.self, total); err != nil {
			return nil, err
		}
	}
	return total, e.commit(st)
}

// WithdrawIncentive pulls previously deposited incentive back out of
// not-yet-started rush pools. Withdrawing more than the sender's remaining
// attributed deposit is a hard error that aborts the whole call. The
// accepted sum is pushed to recipient in a single transfer.
func (e *Engine) WithdrawIncentive(sender common.Address, params []RushIncentiveParams, incentiveToken, recipient common.Address) (*uint256.Int, error) {
	st, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer e.exit()

	now := e.now()
	total := uint256.NewInt(0)
	for _, p := range params {
		amount := u(p.Amount)
		if amount.IsZero() || !p.Key.Valid() || now >= p.Key.StartTimestamp {
			continue
		}
		id := p.Key.ID()

		depositKey := rushIncentiveDepositKey(id, incentiveToken, sender)
		deposited, err := loadAmount(st, depositKey)
		if err != nil {
			return nil, err
		}
		if deposited.Lt(amount) {
			return nil, errDepositUnderflow
		}
		deposited, err = subCheck(deposited, amount)
		if err != nil {
			return nil, err
		}
		if err := putAmount(st, depositKey, deposited); err != nil {
			return nil, err
		}

		totalKey := rushIncentiveTotalKey(id, incentiveToken)
		poolTotal, err := loadAmount(st, totalKey)
		if err != nil {
			return nil, err
		}
		poolTotal, err = subCheck(poolTotal, amount)
		if err != nil {
			return nil, err
		}
		if err := putAmount(st, totalKey, poolTotal); err != nil {
			return nil, err
		}

		total, err = addCheck(total, amount)
		if err != nil {
			return nil, err
		}
		e.emit(events.PoolSettlement{
			Type:    events.TypeRushIncentiveWithdrawn,
			PoolID:  id,
			Account: sender,
			Token:   incentiveToken,
			Amount:  amount,
		}.Event())
	}
	if !total.IsZero() {
		if err := e.token.Transfer(incentiveToken, recipient, total); err != nil {
			return nil, err
		}
	}
	return total, e.commit(st)
}

// JoinRushPool stakes the sender's locked balance into each active pool.
// The join is monotonic: the position only changes when the newly eligible
// amount strictly exceeds the recorded stake, and the stake applied is
// truncated to the pool's remaining capacity. Both accumulators are
// synchronized before the stake amounts move so reward accrued at the old
// amount is locked in first.
func (e *Engine) JoinRushPool(sender common.Address, keys []RushPoolKey) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	now := e.now()
	for _, key := range keys {
		if !key.Valid() || now < key.StartTimestamp || now > key.EndTimestamp() {
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
		pool, err := loadRushPoolState(st, id)
		if err != nil {
			return err
		}
		user, err := loadRushUserState(st, id, sender)
		if err != nil {
			return err
		}

		otherStake, err := subCheck(pool.StakeAmount, user.StakeAmount)
		if err != nil {
			return err
		}
		capacity := uint256.NewInt(0)
		if key.StakeCap.Gt(otherStake) {
			capacity.Sub(key.StakeCap, otherStake)
		}
		newAmount := u(balance).Clone()
		if newAmount.Gt(capacity) {
			newAmount = capacity
		}
		if !newAmount.Gt(user.StakeAmount) {
			continue
		}

		pool.StakeXTimeStored, err = computeStakeXTime(key, pool.StakeXTimeStored, pool.StakeAmount, pool.LastUpdate, now)
		if err != nil {
			return err
		}
		user.StakeXTimeStored, err = computeStakeXTime(key, user.StakeXTimeStored, user.StakeAmount, user.LastUpdate, now)
		if err != nil {
			return err
		}

		if user.StakeAmount.IsZero() {
			if err := incrementLockCount(st, sender, key.StakeToken); err != nil {
				return err
			}
		}
		pool.StakeAmount, err = addCheck(otherStake, newAmount)
		if err != nil {
			return err
		}
		user.StakeAmount = newAmount
		pool.LastUpdate = now
		user.LastUpdate = now

		if err := putRushPoolState(st, id, pool); err != nil {
			return err
		}
		if err := putRushUserState(st, id, sender, user); err != nil {
			return err
		}
		e.emit(events.PoolSettlement{
			Type:    events.TypeRushJoined,
			PoolID:  id,
			Account: sender,
			Token:   key.StakeToken,
			Amount:  newAmount,
		}.Event())
	}
	return e.commit(st)
}

// ExitRushPool zeroes the sender's stake in each started pool, retaining the
// accumulator so already-earned reward stays claimable. Pools where the
// sender has no stake are skipped without any storage write.
func (e *Engine) ExitRushPool(sender common.Address, keys []RushPoolKey) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	now := e.now()
	for _, key := range keys {
		if !key.Valid() || now < key.StartTimestamp {
			continue
		}
		id := key.ID()
		user, err := loadRushUserState(st, id, sender)
		if err != nil {
			return err
		}
		if user.StakeAmount.IsZero() {
			continue
		}
		pool, err := loadRushPoolState(st, id)
		if err != nil {
			return err
		}

		bounded := minUint64(now, key.EndTimestamp())
		pool.StakeXTimeStored, err = computeStakeXTime(key, pool.StakeXTimeStored, pool.StakeAmount, pool.LastUpdate, now)
		if err != nil {
			return err
		}
		user.StakeXTimeStored, err = computeStakeXTime(key, user.StakeXTimeStored, user.StakeAmount, user.LastUpdate, now)
		if err != nil {
			return err
		}

		withdrawn := user.StakeAmount
		pool.StakeAmount, err = subCheck(pool.StakeAmount, withdrawn)
		if err != nil {
			return err
		}
		user.StakeAmount = uint256.NewInt(0)
		pool.LastUpdate = bounded
		user.LastUpdate = bounded

		if err := decrementLockCount(st, sender, key.StakeToken); err != nil {
			return err
		}
		if err := putRushPoolState(st, id, pool); err != nil {
			return err
		}
		if err := putRushUserState(st, id, sender, user); err != nil {
			return err
		}
		e.emit(events.PoolSettlement{
			Type:    events.TypeRushExited,
			PoolID:  id,
			Account: sender,
			Token:   key.StakeToken,
			Amount:  withdrawn,
		}.Event())
	}
	return e.commit(st)
}

// ClaimRushPool settles the sender's accrued rewards. The accumulator is
// recomputed on the fly, so a claim needs no prior join or exit sync; only
// the per-token claimed high-water mark is written. One transfer is made per
// incentive token.
func (e *Engine) ClaimRushPool(sender common.Address, claims []RushClaimParams, recipient common.Address) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	now := e.now()
	for _, claim := range claims {
		total := uint256.NewInt(0)
		for _, key := range claim.Keys {
			if !key.Valid() {
				continue
			}
			id := key.ID()
			user, err := loadRushUserState(st, id, sender)
			if err != nil {
				return err
			}
			accum, err := computeStakeXTime(key, user.StakeXTimeStored, user.StakeAmount, user.LastUpdate, now)
			if err != nil {
				return err
			}
			poolTotal, err := loadAmount(st, rushIncentiveTotalKey(id, claim.IncentiveToken))
			if err != nil {
				return err
			}
			accrued, err := mulDiv(poolTotal, accum, precision)
			if err != nil {
				return err
			}
			claimedKey := rushClaimedKey(id, sender, claim.IncentiveToken)
			claimed, err := loadAmount(st, claimedKey)
			if err != nil {
				return err
			}
			if !accrued.Gt(claimed) {
				continue
			}
			reward, err := subCheck(accrued, claimed)
			if err != nil {
				return err
			}
			if err := putAmount(st, claimedKey, accrued); err != nil {
				return err
			}
			total, err = addCheck(total, reward)
			if err != nil {
				return err
			}
			e.emit(events.PoolSettlement{
				Type:    events.TypeRushClaimed,
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

// RefundIncentive returns the share of the sender's own deposits that no
// staker earned, available only once the program has ended. The sender's
// attribution is zeroed so a second refund yields nothing; the share earned
// by stakers rounds up against the depositor.
func (e *Engine) RefundIncentive(sender common.Address, claims []RushClaimParams, recipient common.Address) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	now := e.now()
	for _, claim := range claims {
		total := uint256.NewInt(0)
		for _, key := range claim.Keys {
			if !key.Valid() || now <= key.EndTimestamp() {
				continue
			}
			id := key.ID()
			depositKey := rushIncentiveDepositKey(id, claim.IncentiveToken, sender)
			deposited, err := loadAmount(st, depositKey)
			if err != nil {
				return err
			}
			if deposited.IsZero() {
				continue
			}
			pool, err := loadRushPoolState(st, id)
			if err != nil {
				return err
			}
			poolAccum, err := computeStakeXTime(key, pool.StakeXTimeStored, pool.StakeAmount, pool.LastUpdate, now)
			if err != nil {
				return err
			}
			earnedShare, err := mulDivUp(deposited, poolAccum, precision)
			if err != nil {
				return err
			}
			if earnedShare.Gt(deposited) {
				earnedShare = deposited.Clone()
			}
			refund, err := subCheck(deposited, earnedShare)
			if err != nil {
				return err
			}
			if err := putAmount(st, depositKey, uint256.NewInt(0)); err != nil {
				return err
			}
			if refund.IsZero() {
				continue
			}
			total, err = addCheck(total, refund)
			if err != nil {
				return err
			}
			e.emit(events.PoolSettlement{
				Type:    events.TypeRushRefunded,
				PoolID:  id,
				Account: sender,
				Token:   claim.IncentiveToken,
				Amount:  refund,
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

// rushLockCallback applies the capacity-bounded join to each named pool for
// a freshly locked balance. The position is seeded from zero, so the user
// accumulator is not back-synced; accrual starts at now.
func (e *Engine) rushLockCallback(st State, caller, account common.Address, balance *uint256.Int, keys []RushPoolKey) error {
	now := e.now()
	for _, key := range keys {
		if !key.Valid() || key.StakeToken != caller {
			continue
		}
		if now < key.StartTimestamp || now > key.EndTimestamp() {
			continue
		}
		id := key.ID()
		user, err := loadRushUserState(st, id, account)
		if err != nil {
			return err
		}
		if !user.StakeAmount.IsZero() {
			continue
		}
		pool, err := loadRushPoolState(st, id)
		if err != nil {
			return err
		}
		capacity := uint256.NewInt(0)
		if key.StakeCap.Gt(pool.StakeAmount) {
			capacity.Sub(key.StakeCap, pool.StakeAmount)
		}
		amount := balance.Clone()
		if amount.Gt(capacity) {
			amount = capacity
		}
		if amount.IsZero() {
			continue
		}

		pool.StakeXTimeStored, err = computeStakeXTime(key, pool.StakeXTimeStored, pool.StakeAmount, pool.LastUpdate, now)
		if err != nil {
			return err
		}
		pool.StakeAmount, err = addCheck(pool.StakeAmount, amount)
		if err != nil {
			return err
		}
		pool.LastUpdate = now
		user.StakeAmount = amount
		user.LastUpdate = now

		if err := incrementLockCount(st, account, key.StakeToken); err != nil {
			return err
		}
		if err := putRushPoolState(st, id, pool); err != nil {
			return err
		}
		if err := putRushUserState(st, id, account, user); err != nil {
			return err
		}
		e.emit(events.PoolSettlement{
			Type:    events.TypeRushJoined,
			PoolID:  id,
			Account: account,
			Token:   key.StakeToken,
			Amount:  amount,
		}.Event())
	}
	return nil
}

// RushPoolStake returns the pool-aggregate stake record.
func (e *Engine) RushPoolStake(key RushPoolKey) (*RushStakeState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return loadRushPoolState(e.state, key.ID())
}

// RushUserStake returns the per-user stake record.
func (e *Engine) RushUserStake(key RushPoolKey, user common.Address) (*RushStakeState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return loadRushUserState(e.state, key.ID(), user)
}

// RushIncentiveDeposited returns the total amount of incentiveToken funded
// into the pool.
func (e *Engine) RushIncentiveDeposited(key RushPoolKey, incentiveToken common.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return loadAmount(e.state, rushIncentiveTotalKey(key.ID(), incentiveToken))
}

// RushClaimable reports the reward the user could claim right now for one
// incentive token, without mutating any state.
func (e *Engine) RushClaimable(key RushPoolKey, user, incentiveToken common.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	id := key.ID()
	record, err := loadRushUserState(e.state, id, user)
	if err != nil {
		return nil, err
	}
	accum, err := computeStakeXTime(key, record.StakeXTimeStored, record.StakeAmount, record.LastUpdate, e.now())
	if err != nil {
		return nil, err
	}
	poolTotal, err := loadAmount(e.state, rushIncentiveTotalKey(id, incentiveToken))
	if err != nil {
		return nil, err
	}
	accrued, err := mulDiv(poolTotal, accum, precision)
	if err != nil {
		return nil, err
	}
	claimed, err := loadAmount(e.state, rushClaimedKey(id, user, incentiveToken))
	if err != nil {
		return nil, err
	}
	if !accrued.Gt(claimed) {
		return uint256.NewInt(0), nil
	}
	return subCheck(accrued, claimed)
}
