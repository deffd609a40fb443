package masterbunni

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	rushPoolPrefix      = "masterbunni/rush/pool/"
	rushUserPrefix      = "masterbunni/rush/user/"
	rushIncentivePrefix = "masterbunni/rush/incentive/"
	rushDepositPrefix   = "masterbunni/rush/deposit/"
	rushClaimedPrefix   = "masterbunni/rush/claimed/"
	recurPoolPrefix     = "masterbunni/recur/pool/"
	recurUserPrefix     = "masterbunni/recur/user/"
	lockCountPrefix     = "masterbunni/lock/count/"
)

func rushPoolStateKey(id PoolID) []byte {
	return []byte(fmt.Sprintf("%s%x", rushPoolPrefix, id))
}

func rushUserStateKey(id PoolID, user common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", rushUserPrefix, id, user))
}

func rushIncentiveTotalKey(id PoolID, token common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", rushIncentivePrefix, id, token))
}

func rushIncentiveDepositKey(id PoolID, token, depositor common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x/%x", rushDepositPrefix, id, token, depositor))
}

func rushClaimedKey(id PoolID, user, token common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x/%x", rushClaimedPrefix, id, user, token))
}

func recurPoolStateKey(id PoolID) []byte {
	return []byte(fmt.Sprintf("%s%x", recurPoolPrefix, id))
}

func recurUserStateKey(id PoolID, user common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", recurUserPrefix, id, user))
}

func lockCountKey(user, token common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", lockCountPrefix, user, token))
}
