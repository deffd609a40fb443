package masterbunni

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State abstracts the subset of state-manager functionality required by the
// reward engines. Values round-trip through the manager's codec; absent keys
// report found == false and leave out untouched.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type storedAmount struct {
	Value *uint256.Int
}

type storedCount struct {
	Value uint64
}

func loadRushStakeState(st State, key []byte) (*RushStakeState, error) {
	record := new(RushStakeState)
	found, err := st.KVGet(key, record)
	if err != nil {
		return nil, err
	}
	if !found {
		return newRushStakeState(), nil
	}
	record.StakeAmount = u(record.StakeAmount)
	record.StakeXTimeStored = u(record.StakeXTimeStored)
	return record, nil
}

func loadRushPoolState(st State, id PoolID) (*RushStakeState, error) {
	return loadRushStakeState(st, rushPoolStateKey(id))
}

func loadRushUserState(st State, id PoolID, user common.Address) (*RushStakeState, error) {
	return loadRushStakeState(st, rushUserStateKey(id, user))
}

func putRushPoolState(st State, id PoolID, record *RushStakeState) error {
	return st.KVPut(rushPoolStateKey(id), record)
}

func putRushUserState(st State, id PoolID, user common.Address, record *RushStakeState) error {
	return st.KVPut(rushUserStateKey(id, user), record)
}

func loadRecurPoolState(st State, id PoolID) (*RecurPoolState, error) {
	record := new(RecurPoolState)
	found, err := st.KVGet(recurPoolStateKey(id), record)
	if err != nil {
		return nil, err
	}
	if !found {
		return newRecurPoolState(), nil
	}
	record.RewardRate = u(record.RewardRate)
	record.RewardPerTokenStored = u(record.RewardPerTokenStored)
	record.TotalSupply = u(record.TotalSupply)
	return record, nil
}

func putRecurPoolState(st State, id PoolID, record *RecurPoolState) error {
	return st.KVPut(recurPoolStateKey(id), record)
}

func loadRecurUserState(st State, id PoolID, user common.Address) (*RecurUserState, error) {
	record := new(RecurUserState)
	found, err := st.KVGet(recurUserStateKey(id, user), record)
	if err != nil {
		return nil, err
	}
	if !found {
		return newRecurUserState(), nil
	}
	record.Balance = u(record.Balance)
	record.RewardPerTokenPaid = u(record.RewardPerTokenPaid)
	record.AccruedReward = u(record.AccruedReward)
	return record, nil
}

func putRecurUserState(st State, id PoolID, user common.Address, record *RecurUserState) error {
	return st.KVPut(recurUserStateKey(id, user), record)
}

func loadAmount(st State, key []byte) (*uint256.Int, error) {
	record := new(storedAmount)
	found, err := st.KVGet(key, record)
	if err != nil {
		return nil, err
	}
	if !found {
		return uint256.NewInt(0), nil
	}
	return u(record.Value), nil
}

func putAmount(st State, key []byte, value *uint256.Int) error {
	return st.KVPut(key, &storedAmount{Value: u(value)})
}

func loadCount(st State, key []byte) (uint64, error) {
	record := new(storedCount)
	found, err := st.KVGet(key, record)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return record.Value, nil
}

func putCount(st State, key []byte, value uint64) error {
	return st.KVPut(key, &storedCount{Value: value})
}
