package masterbunni

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestRushPoolIDDependsOnEveryField(t *testing.T) {
	base := testRushKey()
	baseID := base.ID()

	variants := []RushPoolKey{
		{StakeToken: rewardTok, StakeCap: base.StakeCap, StartTimestamp: base.StartTimestamp, ProgramLength: base.ProgramLength},
		{StakeToken: base.StakeToken, StakeCap: uint256.NewInt(2000), StartTimestamp: base.StartTimestamp, ProgramLength: base.ProgramLength},
		{StakeToken: base.StakeToken, StakeCap: base.StakeCap, StartTimestamp: base.StartTimestamp + 1, ProgramLength: base.ProgramLength},
		{StakeToken: base.StakeToken, StakeCap: base.StakeCap, StartTimestamp: base.StartTimestamp, ProgramLength: base.ProgramLength + 1},
	}
	for i, variant := range variants {
		if variant.ID() == baseID {
			t.Fatalf("variant %d collides with base id", i)
		}
	}

	// Value-equal keys hash identically even when the cap is a distinct
	// allocation.
	clone := base
	clone.StakeCap = base.StakeCap.Clone()
	if clone.ID() != baseID {
		t.Fatal("value-equal keys produced different ids")
	}
}

func TestRecurPoolIDDependsOnEveryField(t *testing.T) {
	base := testRecurKey()
	baseID := base.ID()

	variants := []RecurPoolKey{
		{StakeToken: rewardTok, RewardToken: base.RewardToken, Duration: base.Duration},
		{StakeToken: base.StakeToken, RewardToken: stakeTok, Duration: base.Duration},
		{StakeToken: base.StakeToken, RewardToken: base.RewardToken, Duration: base.Duration + 1},
	}
	for i, variant := range variants {
		if variant.ID() == baseID {
			t.Fatalf("variant %d collides with base id", i)
		}
	}
	if (RecurPoolKey{StakeToken: base.StakeToken, RewardToken: base.RewardToken, Duration: base.Duration}).ID() != baseID {
		t.Fatal("value-equal keys produced different ids")
	}
}

func TestRushAndRecurIDsDisjointDomains(t *testing.T) {
	// A rush and a recur key packing the same leading words still differ,
	// since the packed payloads have different lengths.
	rush := RushPoolKey{StakeToken: stakeTok, StakeCap: uint256.NewInt(1), StartTimestamp: 1, ProgramLength: 1}
	recur := RecurPoolKey{StakeToken: stakeTok, RewardToken: rewardTok, Duration: 1}
	if rush.ID() == recur.ID() {
		t.Fatal("rush and recur ids collide")
	}
}

func TestKeyValidity(t *testing.T) {
	valid := testRushKey()
	if !valid.Valid() {
		t.Fatal("expected valid key")
	}
	invalids := []RushPoolKey{
		{StakeCap: uint256.NewInt(1), StartTimestamp: 1, ProgramLength: 1},
		{StakeToken: stakeTok, StartTimestamp: 1, ProgramLength: 1},
		{StakeToken: stakeTok, StakeCap: uint256.NewInt(0), StartTimestamp: 1, ProgramLength: 1},
		{StakeToken: stakeTok, StakeCap: uint256.NewInt(1), ProgramLength: 1},
		{StakeToken: stakeTok, StakeCap: uint256.NewInt(1), StartTimestamp: 1},
	}
	for i, key := range invalids {
		if key.Valid() {
			t.Fatalf("invalid rush key %d reported valid", i)
		}
	}

	if !(testRecurKey()).Valid() {
		t.Fatal("expected valid recur key")
	}
	invalidRecur := []RecurPoolKey{
		{RewardToken: rewardTok, Duration: 1},
		{StakeToken: stakeTok, Duration: 1},
		{StakeToken: stakeTok, RewardToken: rewardTok},
	}
	for i, key := range invalidRecur {
		if key.Valid() {
			t.Fatalf("invalid recur key %d reported valid", i)
		}
	}

	if valid.EndTimestamp() != valid.StartTimestamp+valid.ProgramLength {
		t.Fatal("end timestamp mismatch")
	}
}
