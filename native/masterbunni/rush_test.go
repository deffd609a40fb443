package masterbunni

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	alice     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob       = common.HexToAddress("0x2222222222222222222222222222222222222222")
	funder    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	stakeTok  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	rewardTok = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func testRushKey() RushPoolKey {
	return RushPoolKey{
		StakeToken:     stakeTok,
		StakeCap:       uint256.NewInt(1000),
		StartTimestamp: 1000,
		ProgramLength:  1000,
	}
}

// fundRush deposits amount of rewardTok into the pool before it starts.
func fundRush(t *testing.T, env *testEnv, key RushPoolKey, amount uint64) {
	t.Helper()
	saved := env.now
	env.now = key.StartTimestamp - 1
	accepted, err := env.engine.DepositIncentive(funder, []RushIncentiveParams{
		{Key: key, Amount: uint256.NewInt(amount)},
	}, rewardTok, funder)
	if err != nil {
		t.Fatalf("deposit incentive: %v", err)
	}
	if accepted.Uint64() != amount {
		t.Fatalf("expected accepted %d, got %s", amount, accepted.Dec())
	}
	env.now = saved
}

func TestRushFullCapLinearAccrual(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 1000)

	env.now = 1000
	env.stakeRush(t, alice, 1000, key)

	env.now = 1500
	claimable, err := env.engine.RushClaimable(key, alice, rewardTok)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	if claimable.Uint64() != 500 {
		t.Fatalf("expected 500 claimable at halfway, got %s", claimable.Dec())
	}

	env.now = 2000
	claimable, err = env.engine.RushClaimable(key, alice, rewardTok)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	if claimable.Uint64() != 1000 {
		t.Fatalf("expected full incentive at program end, got %s", claimable.Dec())
	}

	// Nothing further accrues past the end.
	env.now = 5000
	claimable, err = env.engine.RushClaimable(key, alice, rewardTok)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	if claimable.Uint64() != 1000 {
		t.Fatalf("expected accrual frozen past end, got %s", claimable.Dec())
	}
}

func TestRushClaimTransfersAndHighWaterMark(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 1000)

	env.now = 1000
	env.stakeRush(t, alice, 1000, key)

	env.now = 1500
	claims := []RushClaimParams{{IncentiveToken: rewardTok, Keys: []RushPoolKey{key}}}
	if err := env.engine.ClaimRushPool(alice, claims, alice); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := env.token.sentTo(alice, rewardTok); got.Uint64() != 500 {
		t.Fatalf("expected 500 transferred, got %s", got.Dec())
	}

	// An immediate second claim pays nothing.
	if err := env.engine.ClaimRushPool(alice, claims, alice); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if got := env.token.sentTo(alice, rewardTok); got.Uint64() != 500 {
		t.Fatalf("second claim moved tokens, total %s", got.Dec())
	}

	env.now = 2000
	if err := env.engine.ClaimRushPool(alice, claims, alice); err != nil {
		t.Fatalf("final claim: %v", err)
	}
	if got := env.token.sentTo(alice, rewardTok); got.Uint64() != 1000 {
		t.Fatalf("expected 1000 total after final claim, got %s", got.Dec())
	}
}

func TestRushTwoStakersCapTruncationAndRefund(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 1000)

	// Alice stakes 500 at program start.
	env.now = 1000
	env.stakeRush(t, alice, 500, key)

	// Bob arrives at t+600 with 600, but only 500 of capacity remains.
	env.now = 1600
	env.stakeRush(t, bob, 600, key)
	bobStake, err := env.engine.RushUserStake(key, bob)
	if err != nil {
		t.Fatalf("bob stake: %v", err)
	}
	if bobStake.StakeAmount.Uint64() != 500 {
		t.Fatalf("expected bob truncated to 500, got %s", bobStake.StakeAmount.Dec())
	}
	poolStake, err := env.engine.RushPoolStake(key)
	if err != nil {
		t.Fatalf("pool stake: %v", err)
	}
	if poolStake.StakeAmount.Uint64() != 1000 {
		t.Fatalf("expected pool at cap, got %s", poolStake.StakeAmount.Dec())
	}

	// Past the end: alice held 50% of cap the whole program (500 reward),
	// bob held 50% for the last 40% of it (200 reward).
	env.now = 2100
	aliceClaim, err := env.engine.RushClaimable(key, alice, rewardTok)
	if err != nil {
		t.Fatalf("alice claimable: %v", err)
	}
	if aliceClaim.Uint64() != 500 {
		t.Fatalf("expected alice 500, got %s", aliceClaim.Dec())
	}
	bobClaim, err := env.engine.RushClaimable(key, bob, rewardTok)
	if err != nil {
		t.Fatalf("bob claimable: %v", err)
	}
	if bobClaim.Uint64() != 200 {
		t.Fatalf("expected bob 200, got %s", bobClaim.Dec())
	}

	// The unearned remainder refunds to the depositor: 1000 - 500 - 200.
	refunds := []RushClaimParams{{IncentiveToken: rewardTok, Keys: []RushPoolKey{key}}}
	if err := env.engine.RefundIncentive(funder, refunds, funder); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := env.token.sentTo(funder, rewardTok); got.Uint64() != 300 {
		t.Fatalf("expected 300 refunded, got %s", got.Dec())
	}

	// Conservation: claims plus refund equal the deposit.
	claims := []RushClaimParams{{IncentiveToken: rewardTok, Keys: []RushPoolKey{key}}}
	if err := env.engine.ClaimRushPool(alice, claims, alice); err != nil {
		t.Fatalf("alice claim: %v", err)
	}
	if err := env.engine.ClaimRushPool(bob, claims, bob); err != nil {
		t.Fatalf("bob claim: %v", err)
	}
	paid := new(uint256.Int).Add(env.token.sentTo(alice, rewardTok), env.token.sentTo(bob, rewardTok))
	paid.Add(paid, env.token.sentTo(funder, rewardTok))
	if paid.Uint64() != 1000 {
		t.Fatalf("conservation violated: paid out %s of 1000", paid.Dec())
	}
}

func TestRushExitRetainsAccruedReward(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 1000)

	env.now = 1000
	env.stakeRush(t, alice, 500, key)

	env.now = 1500
	if err := env.engine.ExitRushPool(alice, []RushPoolKey{key}); err != nil {
		t.Fatalf("exit: %v", err)
	}

	// Half the cap for half the program: 250, frozen from the exit on.
	env.now = 2100
	claimable, err := env.engine.RushClaimable(key, alice, rewardTok)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	if claimable.Uint64() != 250 {
		t.Fatalf("expected 250 after exit, got %s", claimable.Dec())
	}
}

func TestRushExitWithoutStakeWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()

	env.now = 1500
	before := env.state.writes
	if err := env.engine.ExitRushPool(alice, []RushPoolKey{key}); err != nil {
		t.Fatalf("exit: %v", err)
	}
	if env.state.writes != before {
		t.Fatalf("exit of empty position wrote %d records", env.state.writes-before)
	}
}

func TestRushJoinMonotonic(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()

	env.now = 1000
	env.stakeRush(t, alice, 500, key)

	// Re-joining with the same balance changes nothing.
	before := env.state.writes
	if err := env.engine.JoinRushPool(alice, []RushPoolKey{key}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if env.state.writes != before {
		t.Fatal("no-op rejoin wrote state")
	}

	// A higher locked balance raises the stake; the membership count does
	// not move on a top-up.
	env.now = 1200
	env.lock.setBalance(stakeTok, alice, 800)
	if err := env.engine.JoinRushPool(alice, []RushPoolKey{key}); err != nil {
		t.Fatalf("top-up join: %v", err)
	}
	stake, err := env.engine.RushUserStake(key, alice)
	if err != nil {
		t.Fatalf("user stake: %v", err)
	}
	if stake.StakeAmount.Uint64() != 800 {
		t.Fatalf("expected stake raised to 800, got %s", stake.StakeAmount.Dec())
	}
	count, err := env.engine.LockCount(alice, stakeTok)
	if err != nil {
		t.Fatalf("lock count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected membership count 1 after top-up, got %d", count)
	}

	// A lower balance never reduces the position.
	env.lock.setBalance(stakeTok, alice, 100)
	if err := env.engine.JoinRushPool(alice, []RushPoolKey{key}); err != nil {
		t.Fatalf("join with lower balance: %v", err)
	}
	stake, err = env.engine.RushUserStake(key, alice)
	if err != nil {
		t.Fatalf("user stake: %v", err)
	}
	if stake.StakeAmount.Uint64() != 800 {
		t.Fatalf("stake reduced by lower balance: %s", stake.StakeAmount.Dec())
	}
}

func TestRushJoinOutsideWindowSkipped(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	env.lock.setBalance(stakeTok, alice, 500)
	env.lock.lock(stakeTok, alice, engineAddr)

	for _, now := range []uint64{999, 2001} {
		env.now = now
		if err := env.engine.JoinRushPool(alice, []RushPoolKey{key}); err != nil {
			t.Fatalf("join at %d: %v", now, err)
		}
		stake, err := env.engine.RushUserStake(key, alice)
		if err != nil {
			t.Fatalf("user stake: %v", err)
		}
		if !stake.StakeAmount.IsZero() {
			t.Fatalf("join at %d created a position", now)
		}
	}
}

func TestRushJoinRequiresEngineLock(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	env.now = 1000
	env.lock.setBalance(stakeTok, alice, 500)
	// Balance present but never locked to the engine.
	if err := env.engine.JoinRushPool(alice, []RushPoolKey{key}); err != nil {
		t.Fatalf("join: %v", err)
	}
	stake, err := env.engine.RushUserStake(key, alice)
	if err != nil {
		t.Fatalf("user stake: %v", err)
	}
	if !stake.StakeAmount.IsZero() {
		t.Fatal("join succeeded without an engine-held lock")
	}
}

func TestRushDepositSkipsStartedAndInvalidPools(t *testing.T) {
	env := newTestEnv(t)
	started := testRushKey()
	invalid := RushPoolKey{StakeToken: stakeTok, StakeCap: uint256.NewInt(0), StartTimestamp: 5000, ProgramLength: 1000}
	open := RushPoolKey{StakeToken: stakeTok, StakeCap: uint256.NewInt(1000), StartTimestamp: 5000, ProgramLength: 1000}

	env.now = 1000 // started's start instant: too late to fund it
	accepted, err := env.engine.DepositIncentive(funder, []RushIncentiveParams{
		{Key: started, Amount: uint256.NewInt(100)},
		{Key: invalid, Amount: uint256.NewInt(100)},
		{Key: open, Amount: uint256.NewInt(100)},
		{Key: open, Amount: uint256.NewInt(0)},
	}, rewardTok, funder)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if accepted.Uint64() != 100 {
		t.Fatalf("expected only the open pool funded, accepted %s", accepted.Dec())
	}
	if len(env.token.pulls) != 1 || env.token.pulls[0].Amount.Uint64() != 100 {
		t.Fatalf("expected one pull of 100, got %+v", env.token.pulls)
	}
}

func TestRushWithdrawUnderflowAborts(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 100)

	env.now = 500
	_, err := env.engine.WithdrawIncentive(funder, []RushIncentiveParams{
		{Key: key, Amount: uint256.NewInt(200)},
	}, rewardTok, funder)
	if !errors.Is(err, ErrDepositUnderflow) {
		t.Fatalf("expected deposit underflow, got %v", err)
	}
	// The aborted withdrawal must not have paid anything out.
	if len(env.token.transfers) != 0 {
		t.Fatalf("aborted withdraw transferred: %+v", env.token.transfers)
	}

	// Withdrawing within the deposit works and reduces the pool total.
	if _, err := env.engine.WithdrawIncentive(funder, []RushIncentiveParams{
		{Key: key, Amount: uint256.NewInt(40)},
	}, rewardTok, funder); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	remaining, err := env.engine.RushIncentiveDeposited(key, rewardTok)
	if err != nil {
		t.Fatalf("deposited: %v", err)
	}
	if remaining.Uint64() != 60 {
		t.Fatalf("expected 60 remaining, got %s", remaining.Dec())
	}
}

func TestRushRefundBeforeEndSkipped(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 1000)

	env.now = 2000 // exactly the end instant is still too early
	refunds := []RushClaimParams{{IncentiveToken: rewardTok, Keys: []RushPoolKey{key}}}
	if err := env.engine.RefundIncentive(funder, refunds, funder); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if len(env.token.transfers) != 0 {
		t.Fatalf("refund paid before program end: %+v", env.token.transfers)
	}
}

func TestRushRefundZeroesAttribution(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 1000)

	// Nobody staked: the full deposit comes back, once.
	env.now = 2100
	refunds := []RushClaimParams{{IncentiveToken: rewardTok, Keys: []RushPoolKey{key}}}
	if err := env.engine.RefundIncentive(funder, refunds, funder); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := env.token.sentTo(funder, rewardTok); got.Uint64() != 1000 {
		t.Fatalf("expected full refund, got %s", got.Dec())
	}
	if err := env.engine.RefundIncentive(funder, refunds, funder); err != nil {
		t.Fatalf("second refund: %v", err)
	}
	if got := env.token.sentTo(funder, rewardTok); got.Uint64() != 1000 {
		t.Fatalf("second refund paid again, total %s", got.Dec())
	}
}

func TestRushLockCallbackSkipsExistingPosition(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()

	env.now = 1000
	env.stakeRush(t, alice, 300, key)

	// A second lock callback for the same account must not disturb the
	// existing position or double-count the membership.
	if err := env.engine.LockCallback(stakeTok, alice, uint256.NewInt(900), LockCallbackData{
		RushKeys: []RushPoolKey{key},
	}); err != nil {
		t.Fatalf("lock callback: %v", err)
	}
	stake, err := env.engine.RushUserStake(key, alice)
	if err != nil {
		t.Fatalf("user stake: %v", err)
	}
	if stake.StakeAmount.Uint64() != 300 {
		t.Fatalf("callback altered existing position: %s", stake.StakeAmount.Dec())
	}
	count, err := env.engine.LockCount(alice, stakeTok)
	if err != nil {
		t.Fatalf("lock count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single membership, got %d", count)
	}
}

func TestRushClaimFailedTransferKeepsClaimable(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 1000)

	env.now = 1000
	env.stakeRush(t, alice, 1000, key)

	env.now = 1500
	claims := []RushClaimParams{{IncentiveToken: rewardTok, Keys: []RushPoolKey{key}}}
	env.token.fail = errors.New("transfer rejected")
	if err := env.engine.ClaimRushPool(alice, claims, alice); err == nil {
		t.Fatal("expected claim to abort on failed payout")
	}

	// The aborted claim must not have raised the claimed high-water mark.
	claimable, err := env.engine.RushClaimable(key, alice, rewardTok)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	if claimable.Uint64() != 500 {
		t.Fatalf("aborted claim burned the reward: claimable %s, want 500", claimable.Dec())
	}

	env.token.fail = nil
	if err := env.engine.ClaimRushPool(alice, claims, alice); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := env.token.sentTo(alice, rewardTok); got.Uint64() != 500 {
		t.Fatalf("expected 500 paid after retry, got %s", got.Dec())
	}
}

func TestRushDepositFailedPullLeavesLedgerEmpty(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()

	env.now = 500
	env.token.fail = errors.New("pull rejected")
	_, err := env.engine.DepositIncentive(funder, []RushIncentiveParams{
		{Key: key, Amount: uint256.NewInt(1000)},
	}, rewardTok, funder)
	if err == nil {
		t.Fatal("expected deposit to abort on failed pull")
	}
	if env.state.writes != 0 {
		t.Fatalf("aborted deposit reached state: %d writes", env.state.writes)
	}
	deposited, err := env.engine.RushIncentiveDeposited(key, rewardTok)
	if err != nil {
		t.Fatalf("deposited: %v", err)
	}
	if !deposited.IsZero() {
		t.Fatalf("ledger credited with funds never received: %s", deposited.Dec())
	}
}

func TestRushWithdrawUnderflowRollsBackEarlierEntries(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 100)

	// The first entry is within the deposit; the second underflows. The
	// abort must also undo the first entry's ledger change.
	env.now = 500
	writes := env.state.writes
	_, err := env.engine.WithdrawIncentive(funder, []RushIncentiveParams{
		{Key: key, Amount: uint256.NewInt(50)},
		{Key: key, Amount: uint256.NewInt(200)},
	}, rewardTok, funder)
	if !errors.Is(err, ErrDepositUnderflow) {
		t.Fatalf("expected deposit underflow, got %v", err)
	}
	if env.state.writes != writes {
		t.Fatal("aborted withdraw committed earlier batch entries")
	}
	remaining, err := env.engine.RushIncentiveDeposited(key, rewardTok)
	if err != nil {
		t.Fatalf("deposited: %v", err)
	}
	if remaining.Uint64() != 100 {
		t.Fatalf("expected deposit intact at 100, got %s", remaining.Dec())
	}
}

func TestRushRefundFailedTransferKeepsAttribution(t *testing.T) {
	env := newTestEnv(t)
	key := testRushKey()
	fundRush(t, env, key, 1000)

	env.now = 2100
	refunds := []RushClaimParams{{IncentiveToken: rewardTok, Keys: []RushPoolKey{key}}}
	env.token.fail = errors.New("transfer rejected")
	if err := env.engine.RefundIncentive(funder, refunds, funder); err == nil {
		t.Fatal("expected refund to abort on failed payout")
	}

	// Attribution survives the abort, so the retry still pays out in full.
	env.token.fail = nil
	if err := env.engine.RefundIncentive(funder, refunds, funder); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := env.token.sentTo(funder, rewardTok); got.Uint64() != 1000 {
		t.Fatalf("expected full refund after retry, got %s", got.Dec())
	}
}
