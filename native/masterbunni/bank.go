package masterbunni

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	errBankInsufficientBalance   = errors.New("masterbunni bank: insufficient balance")
	errBankInsufficientAllowance = errors.New("masterbunni bank: insufficient allowance")
	errBankAlreadyLocked         = errors.New("masterbunni bank: balance already locked")
	errBankNotLocked             = errors.New("masterbunni bank: balance not locked")
	errBankNotUnlocker           = errors.New("masterbunni bank: caller is not the unlocker")
	errBankBalanceLocked         = errors.New("masterbunni bank: balance is locked")
	errBankNoReceiver            = errors.New("masterbunni bank: no lock receiver registered for unlocker")
)

var (
	bankBalancePrefix   = "masterbunni/bank/balance/"
	bankAllowancePrefix = "masterbunni/bank/allowance/"
	bankLockPrefix      = "masterbunni/bank/lock/"
)

func bankBalanceKey(token, holder common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", bankBalancePrefix, token, holder))
}

func bankAllowanceKey(token, owner, spender common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x/%x", bankAllowancePrefix, token, owner, spender))
}

func bankLockKey(token, user common.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", bankLockPrefix, token, user))
}

type storedLock struct {
	Locked   bool
	Unlocker common.Address
}

// LockReceiver is the callback contract a lock target must satisfy. The
// engine implements it; the bank invokes it when a user locks a balance and
// when a locked user receives more balance.
type LockReceiver interface {
	LockCallback(caller, account common.Address, balance *uint256.Int, data LockCallbackData) error
	LockedUserReceiveCallback(caller, account common.Address, amount *uint256.Int) error
}

// Bank is an in-process implementation of the fungible-asset and
// exclusive-lock collaborators, backed by the same key-value state as the
// engine. It lets a host run the reward core end-to-end without external
// token contracts.
type Bank struct {
	state     State
	receivers map[common.Address]LockReceiver
}

// NewBank constructs a bank over the given state.
func NewBank(state State) *Bank {
	return &Bank{state: state, receivers: make(map[common.Address]LockReceiver)}
}

// RegisterLockReceiver binds a lock receiver to its unlocker identity. Locks
// naming that unlocker trigger the receiver's callback.
func (b *Bank) RegisterLockReceiver(unlocker common.Address, recv LockReceiver) {
	if b == nil || recv == nil {
		return
	}
	b.receivers[unlocker] = recv
}

// Mint credits freshly issued balance to an account.
func (b *Bank) Mint(token, to common.Address, amount *uint256.Int) error {
	balance, err := loadAmount(b.state, bankBalanceKey(token, to))
	if err != nil {
		return err
	}
	balance, err = addCheck(balance, amount)
	if err != nil {
		return err
	}
	if err := putAmount(b.state, bankBalanceKey(token, to), balance); err != nil {
		return err
	}
	record := new(storedLock)
	found, err := b.state.KVGet(bankLockKey(token, to), record)
	if err != nil {
		return err
	}
	if found && record.Locked {
		if recv, ok := b.receivers[record.Unlocker]; ok {
			return recv.LockedUserReceiveCallback(token, to, amount)
		}
	}
	return nil
}

// Approve lets spender pull up to amount of owner's token balance.
func (b *Bank) Approve(token, owner, spender common.Address, amount *uint256.Int) error {
	return putAmount(b.state, bankAllowanceKey(token, owner, spender), u(amount))
}

// BalanceOf reports the account's balance for token.
func (b *Bank) BalanceOf(token, user common.Address) (*uint256.Int, error) {
	return loadAmount(b.state, bankBalanceKey(token, user))
}

// IsLocked reports whether the user's token balance is under an exclusive
// lock.
func (b *Bank) IsLocked(token, user common.Address) (bool, error) {
	record := new(storedLock)
	found, err := b.state.KVGet(bankLockKey(token, user), record)
	if err != nil {
		return false, err
	}
	return found && record.Locked, nil
}

// UnlockerOf reports the identity allowed to release the user's lock.
func (b *Bank) UnlockerOf(token, user common.Address) (common.Address, error) {
	record := new(storedLock)
	found, err := b.state.KVGet(bankLockKey(token, user), record)
	if err != nil {
		return common.Address{}, err
	}
	if !found || !record.Locked {
		return common.Address{}, nil
	}
	return record.Unlocker, nil
}

// Lock places the user's entire token balance under an exclusive lock held
// by unlocker, then invokes the registered receiver callback with the locked
// balance and the user-supplied pool selection.
func (b *Bank) Lock(token, user, unlocker common.Address, data LockCallbackData) error {
	locked, err := b.IsLocked(token, user)
	if err != nil {
		return err
	}
	if locked {
		return errBankAlreadyLocked
	}
	recv, ok := b.receivers[unlocker]
	if !ok {
		return errBankNoReceiver
	}
	if err := b.state.KVPut(bankLockKey(token, user), &storedLock{Locked: true, Unlocker: unlocker}); err != nil {
		return err
	}
	balance, err := b.BalanceOf(token, user)
	if err != nil {
		return err
	}
	return recv.LockCallback(token, user, balance, data)
}

// unlock releases the user's token lock after checking the caller is the
// registered unlocker.
func (b *Bank) unlock(caller, token, user common.Address) error {
	record := new(storedLock)
	found, err := b.state.KVGet(bankLockKey(token, user), record)
	if err != nil {
		return err
	}
	if !found || !record.Locked {
		return errBankNotLocked
	}
	if record.Unlocker != caller {
		return errBankNotUnlocker
	}
	return b.state.KVPut(bankLockKey(token, user), &storedLock{})
}

func (b *Bank) move(token, from, to common.Address, amount *uint256.Int) error {
	locked, err := b.IsLocked(token, from)
	if err != nil {
		return err
	}
	if locked {
		return errBankBalanceLocked
	}
	fromBalance, err := loadAmount(b.state, bankBalanceKey(token, from))
	if err != nil {
		return err
	}
	if fromBalance.Lt(u(amount)) {
		return errBankInsufficientBalance
	}
	fromBalance, err = subCheck(fromBalance, amount)
	if err != nil {
		return err
	}
	toBalance, err := loadAmount(b.state, bankBalanceKey(token, to))
	if err != nil {
		return err
	}
	toBalance, err = addCheck(toBalance, amount)
	if err != nil {
		return err
	}
	if err := putAmount(b.state, bankBalanceKey(token, from), fromBalance); err != nil {
		return err
	}
	return putAmount(b.state, bankBalanceKey(token, to), toBalance)
}

// BankPort presents the bank as the engine-facing collaborator ports, bound
// to one account identity. Transfers debit the bound account; TransferFrom
// spends the bound account's allowance; Unlock asserts the bound account is
// the registered unlocker.
type BankPort struct {
	bank  *Bank
	owner common.Address
}

// Bind returns collaborator ports acting as owner.
func (b *Bank) Bind(owner common.Address) *BankPort {
	return &BankPort{bank: b, owner: owner}
}

// Transfer moves amount of token from the bound account to recipient.
func (p *BankPort) Transfer(token, to common.Address, amount *uint256.Int) error {
	return p.bank.move(token, p.owner, to, amount)
}

// TransferFrom moves amount of token from the given account, consuming the
// bound account's allowance.
func (p *BankPort) TransferFrom(token, from, to common.Address, amount *uint256.Int) error {
	allowanceKey := bankAllowanceKey(token, from, p.owner)
	allowance, err := loadAmount(p.bank.state, allowanceKey)
	if err != nil {
		return err
	}
	if allowance.Lt(u(amount)) {
		return errBankInsufficientAllowance
	}
	allowance, err = subCheck(allowance, amount)
	if err != nil {
		return err
	}
	if err := putAmount(p.bank.state, allowanceKey, allowance); err != nil {
		return err
	}
	return p.bank.move(token, from, to, amount)
}

// IsLocked implements LockPort.
func (p *BankPort) IsLocked(token, user common.Address) (bool, error) {
	return p.bank.IsLocked(token, user)
}

// UnlockerOf implements LockPort.
func (p *BankPort) UnlockerOf(token, user common.Address) (common.Address, error) {
	return p.bank.UnlockerOf(token, user)
}

// Unlock implements LockPort.
func (p *BankPort) Unlock(token, user common.Address) error {
	return p.bank.unlock(p.owner, token, user)
}

// BalanceOf implements LockPort.
func (p *BankPort) BalanceOf(token, user common.Address) (*uint256.Int, error) {
	return p.bank.BalanceOf(token, user)
}
