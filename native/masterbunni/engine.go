package masterbunni

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Bunniapp/tokenomics-sub000/core/events"
)

// Emitter receives the typed events produced by the engine. A nil emitter
// silently drops them.
type Emitter interface {
	AppendEvent(evt *events.Event)
}

// Engine hosts both reward-accounting engines behind a single dispatcher.
// All mutating entry points are serialized by a re-entrancy guard that stays
// held across external transfer calls. Each call writes through a staged
// overlay and flushes it only on success, so an abort anywhere in the call
// leaves no partial state change and no stray event.
type Engine struct {
	state   State
	token   TokenPort
	lock    LockPort
	self    common.Address
	emitter Emitter
	nowFn   func() uint64
	entered bool
	pending []*events.Event
}

// NewEngine constructs an engine identified by self. The identity is what
// stake assets report as unlocker for balances locked to this engine.
func NewEngine(self common.Address) *Engine {
	return &Engine{
		self:  self,
		nowFn: func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state State) { e.state = state }

// SetTokenPort wires the fungible-asset transfer collaborator.
func (e *Engine) SetTokenPort(port TokenPort) { e.token = port }

// SetLockPort wires the exclusive-lock collaborator.
func (e *Engine) SetLockPort(port LockPort) { e.lock = port }

// SetEmitter wires the event sink.
func (e *Engine) SetEmitter(emitter Emitter) { e.emitter = emitter }

// SetNowFunc overrides the wall clock. Primarily leveraged in tests to
// provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

// Self returns the engine's unlocker identity.
func (e *Engine) Self() common.Address {
	if e == nil {
		return common.Address{}
	}
	return e.self
}

func (e *Engine) now() uint64 { return e.nowFn() }

// enter acquires the re-entrancy guard, validates the wiring every mutating
// entry point depends on, and opens the call's write stage. Callers must
// defer e.exit() immediately after a successful enter and route every state
// read and write through the returned stage.
func (e *Engine) enter() (*stagedState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.token == nil {
		return nil, errNilTokenPort
	}
	if e.lock == nil {
		return nil, errNilLockPort
	}
	if e.entered {
		return nil, errReentrancy
	}
	e.entered = true
	return newStagedState(e.state), nil
}

// exit releases the guard and discards whatever the call did not commit.
func (e *Engine) exit() {
	e.entered = false
	e.pending = nil
}

// commit flushes the call's staged writes to the backing state and then
// delivers the buffered events. Called only on a call's success path, after
// every external transfer has gone through.
func (e *Engine) commit(st *stagedState) error {
	if err := st.flush(); err != nil {
		return err
	}
	if e.emitter != nil {
		for _, evt := range e.pending {
			e.emitter.AppendEvent(evt)
		}
	}
	e.pending = nil
	return nil
}

func (e *Engine) emit(evt *events.Event) {
	if evt == nil {
		return
	}
	e.pending = append(e.pending, evt)
}

// holdsLock reports whether the user's balance in token is currently locked
// with this engine registered as unlocker.
func (e *Engine) holdsLock(token, user common.Address) (bool, error) {
	locked, err := e.lock.IsLocked(token, user)
	if err != nil {
		return false, err
	}
	if !locked {
		return false, nil
	}
	unlocker, err := e.lock.UnlockerOf(token, user)
	if err != nil {
		return false, err
	}
	return unlocker == e.self, nil
}

// Unlock releases the caller's stake tokens that no longer back any pool
// membership. Tokens still backing a membership, tokens not locked, and
// tokens locked to a different unlocker are skipped silently.
func (e *Engine) Unlock(sender common.Address, tokens []common.Address) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	for _, token := range tokens {
		count, err := loadCount(st, lockCountKey(sender, token))
		if err != nil {
			return err
		}
		if count != 0 {
			continue
		}
		held, err := e.holdsLock(token, sender)
		if err != nil {
			return err
		}
		if !held {
			continue
		}
		if err := e.lock.Unlock(token, sender); err != nil {
			return err
		}
		e.emit(events.Unlocked{Account: sender, Token: token}.Event())
	}
	return e.commit(st)
}

// LockCallback is invoked by a stake asset when account locks its balance
// with this engine as unlocker. The named pools are joined with the full
// locked balance, subject to each pool's own eligibility rules.
func (e *Engine) LockCallback(caller, account common.Address, balance *uint256.Int, data LockCallbackData) error {
	st, err := e.enter()
	if err != nil {
		return err
	}
	defer e.exit()

	if err := e.rushLockCallback(st, caller, account, u(balance), data.RushKeys); err != nil {
		return err
	}
	if err := e.recurLockCallback(st, caller, account, u(balance), data.RecurKeys); err != nil {
		return err
	}
	return e.commit(st)
}

// LockedUserReceiveCallback is invoked when a locked user receives
// additional balance. Receiving more balance does not auto-join any pool;
// the user must explicitly re-join to pick up the increase.
func (e *Engine) LockedUserReceiveCallback(caller, account common.Address, amount *uint256.Int) error {
	return nil
}
