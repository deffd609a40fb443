package masterbunni

import "github.com/ethereum/go-ethereum/common"

// The lock ledger counts, per (user, stake token), how many pools currently
// hold a nonzero stake for that user. The counter moves only on the
// zero->nonzero and nonzero->zero membership transitions; partial top-ups of
// an existing position leave it untouched.

func incrementLockCount(st State, user, token common.Address) error {
	key := lockCountKey(user, token)
	count, err := loadCount(st, key)
	if err != nil {
		return err
	}
	return putCount(st, key, count+1)
}

func decrementLockCount(st State, user, token common.Address) error {
	key := lockCountKey(user, token)
	count, err := loadCount(st, key)
	if err != nil {
		return err
	}
	if count == 0 {
		return errLockCountCorrupt
	}
	return putCount(st, key, count-1)
}

// LockCount reports how many pools the user is currently staked into with
// the given stake token.
func (e *Engine) LockCount(user, token common.Address) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return loadCount(e.state, lockCountKey(user, token))
}

// CanUnlock reports whether the user's stake token may be released back to
// them, i.e. whether no pool membership remains for that token.
func (e *Engine) CanUnlock(user, token common.Address) (bool, error) {
	count, err := e.LockCount(user, token)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
