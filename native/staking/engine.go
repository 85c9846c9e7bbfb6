package staking

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	"stakeledger/config"
	"stakeledger/core/events"
	nativecommon "stakeledger/native/common"
	"stakeledger/observability/logging"
	"stakeledger/observability/metrics"
)

const moduleName = "staking"

const (
	opCreateStakeAccount = "create_stake_account"
	opDeposit            = "deposit"
	opCreatePosition     = "create_position"
	opSplitPosition      = "split_position"
	opClosePosition      = "close_position"
	opCleanupPositions   = "cleanup_positions"
	opWithdraw           = "withdraw"
	opCloseStakeAccount  = "close_stake_account"
)

type engineState interface {
	StakeAccountGet(handle solana.PublicKey) (*StakeAccount, bool, error)
	StakeAccountPut(account *StakeAccount) error
	StakeAccountDelete(handle solana.PublicKey) error
}

// Transferer moves tokens of the configured mint between token accounts. It
// stands for the external token program; a failed call must leave balances
// untouched.
type Transferer interface {
	Transfer(from, to solana.PublicKey, amount uint64) error
}

// Engine runs the staking operations against a state backend. It assumes the
// host executes at most one operation per stake account at a time.
type Engine struct {
	state    engineState
	transfer Transferer
	params   config.Staking
	auth     *Authorizer
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *metrics.StakingMetrics
}

// NewEngine creates an engine for the given chain-wide parameters with a no-op
// emitter and the real clock.
func NewEngine(params config.Staking) *Engine {
	if params.MaxPositions <= 0 {
		params.MaxPositions = DefaultMaxPositions
	}
	if params.EpochDuration == 0 {
		params.EpochDuration = config.DefaultEpochDuration
	}
	if params.UnlockingDuration == 0 {
		params.UnlockingDuration = config.DefaultUnlockingDuration
	}
	return &Engine{
		params:  params,
		auth:    NewAuthorizer(params.ProgramID),
		emitter: events.NoopEmitter{},
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default().With("component", moduleName),
		metrics: metrics.Staking(),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTransferer configures the token transfer primitive.
func (e *Engine) SetTransferer(t Transferer) { e.transfer = t }

// SetPauses wires the module pause switch.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetClock overrides the time source used for Now. Primarily intended for
// tests.
func (e *Engine) SetClock(clock clockwork.Clock) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e.clock = clock
}

// SetLogger overrides the logger; nil restores slog.Default.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger.With("component", moduleName)
}

// Params returns the injected chain-wide parameters.
func (e *Engine) Params() config.Staking { return e.params }

// Authorizer returns the capability check used by the engine.
func (e *Engine) Authorizer() *Authorizer { return e.auth }

// Now returns the engine clock as a unix timestamp.
func (e *Engine) Now() Timestamp { return e.clock.Now().Unix() }

// CurrentEpoch returns the epoch the engine clock falls in. Times before the
// unix epoch map to epoch zero.
func (e *Engine) CurrentEpoch() uint64 {
	now := e.Now()
	if now < 0 {
		return 0
	}
	return uint64(now) / e.params.EpochDuration
}

// CreateStakeAccount binds a new, empty stake account at handle to owner. The
// vesting schedule is fixed for the lifetime of the account.
func (e *Engine) CreateStakeAccount(handle, owner solana.PublicKey, schedule VestingSchedule) (*StakeAccount, error) {
	acct, err := e.createStakeAccount(handle, owner, schedule)
	if err := e.finish(opCreateStakeAccount, handle, err); err != nil {
		return nil, err
	}
	e.emit(events.StakeAccountCreated{
		Account:  handle,
		Owner:    owner,
		Custody:  acct.Metadata.Custody,
		Schedule: schedule.Kind.String(),
		Capacity: acct.Positions.Capacity(),
	})
	e.logger.Info("stake account created",
		"account", handle.String(),
		logging.ShortKey("owner", owner.String()),
		"schedule", schedule.Kind.String())
	return acct.Clone(), nil
}

func (e *Engine) createStakeAccount(handle, owner solana.PublicKey, schedule VestingSchedule) (*StakeAccount, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: zero owner", ErrUnauthorized)
	}
	if handle.IsZero() {
		return nil, fmt.Errorf("%w: zero positions account", ErrNonCanonicalAccount)
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	_, exists, err := e.state.StakeAccountGet(handle)
	if err != nil {
		return nil, fmt.Errorf("load stake account: %w", err)
	}
	if exists {
		return nil, ErrStakeAccountExists
	}
	meta, err := e.auth.NewMetadata(owner, handle)
	if err != nil {
		return nil, err
	}
	ledger, err := NewPositionLedger(e.params.MaxPositions)
	if err != nil {
		return nil, err
	}
	acct := &StakeAccount{
		Metadata:  meta,
		Custody:   CustodyAccount{Mint: e.params.TokenMint, Vesting: schedule},
		Positions: ledger,
	}
	if err := e.store(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Deposit moves amount from a wallet token account into the custody of the
// stake account. Anyone may deposit; the source must not be a custody or other
// derived address.
func (e *Engine) Deposit(handle, from solana.PublicKey, amount uint64) error {
	acct, err := e.deposit(handle, from, amount)
	if err := e.finish(opDeposit, handle, err); err != nil {
		return err
	}
	e.metrics.AddDeposited(amount)
	e.emit(events.StakeDeposited{Account: handle, From: from, Amount: amount, Total: acct.Custody.TotalAmount})
	return nil
}

func (e *Engine) deposit(handle, from solana.PublicKey, amount uint64) (*StakeAccount, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acct, err := e.load(handle)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.auth.CheckTokenAccount(acct.Metadata, from); err != nil {
		return nil, err
	}
	before := acct.Clone()
	if err := acct.Custody.credit(amount); err != nil {
		return nil, err
	}
	if err := e.moveTokens(acct, before, from, acct.Metadata.Custody, amount); err != nil {
		return nil, err
	}
	return acct, nil
}

// CreatePosition commits amount of the custodied balance to (product,
// publisher) and returns the slot it was written to.
func (e *Engine) CreatePosition(handle, caller, product, publisher solana.PublicKey, amount uint64) (PositionIndex, error) {
	acct, index, err := e.createPosition(handle, caller, product, publisher, amount)
	if err := e.finish(opCreatePosition, handle, err); err != nil {
		return 0, err
	}
	e.afterLedgerChange(acct)
	e.emit(events.StakePositionCreated{
		Account:   handle,
		Index:     uint32(index),
		Product:   product,
		Publisher: publisher,
		Amount:    amount,
	})
	return index, nil
}

func (e *Engine) createPosition(handle, caller, product, publisher solana.PublicKey, amount uint64) (*StakeAccount, PositionIndex, error) {
	acct, err := e.loadAuthorized(handle, caller)
	if err != nil {
		return nil, 0, err
	}
	index, err := acct.CreatePosition(product, publisher, amount)
	if err != nil {
		return nil, 0, err
	}
	if err := e.store(acct); err != nil {
		return nil, 0, err
	}
	return acct, index, nil
}

// SplitPosition moves amount out of the position at index into a new slot
// with the same target and returns the new slot.
func (e *Engine) SplitPosition(handle, caller solana.PublicKey, index PositionIndex, amount uint64) (PositionIndex, error) {
	acct, target, err := e.splitPosition(handle, caller, index, amount)
	if err := e.finish(opSplitPosition, handle, err); err != nil {
		return 0, err
	}
	remaining, _ := acct.Positions.Get(index)
	e.afterLedgerChange(acct)
	e.emit(events.StakePositionSplit{
		Account:     handle,
		Source:      uint32(index),
		Target:      uint32(target),
		Remaining:   remaining.Amount,
		SplitAmount: amount,
	})
	return target, nil
}

func (e *Engine) splitPosition(handle, caller solana.PublicKey, index PositionIndex, amount uint64) (*StakeAccount, PositionIndex, error) {
	acct, err := e.loadAuthorized(handle, caller)
	if err != nil {
		return nil, 0, err
	}
	target, err := acct.Positions.SplitPosition(index, amount)
	if err != nil {
		return nil, 0, err
	}
	if err := e.store(acct); err != nil {
		return nil, 0, err
	}
	return acct, target, nil
}

// ClosePosition empties the slot at index.
func (e *Engine) ClosePosition(handle, caller solana.PublicKey, index PositionIndex) error {
	acct, closed, err := e.closePosition(handle, caller, index)
	if err := e.finish(opClosePosition, handle, err); err != nil {
		return err
	}
	e.afterLedgerChange(acct)
	e.emit(events.StakePositionClosed{Account: handle, Index: uint32(index), Amount: closed.Amount})
	return nil
}

func (e *Engine) closePosition(handle, caller solana.PublicKey, index PositionIndex) (*StakeAccount, Position, error) {
	acct, err := e.loadAuthorized(handle, caller)
	if err != nil {
		return nil, Position{}, err
	}
	closed, err := acct.Positions.ClosePosition(index)
	if err != nil {
		return nil, Position{}, err
	}
	if err := e.store(acct); err != nil {
		return nil, Position{}, err
	}
	return acct, closed, nil
}

// CleanupPositions closes every position matching pred and returns the freed
// slots. Nothing is written when no position matches.
func (e *Engine) CleanupPositions(handle, caller solana.PublicKey, pred CleanupPredicate) ([]PositionIndex, error) {
	acct, closed, released, err := e.cleanupPositions(handle, caller, pred)
	if err := e.finish(opCleanupPositions, handle, err); err != nil {
		return nil, err
	}
	if len(closed) == 0 {
		return nil, nil
	}
	indices := make([]uint32, len(closed))
	for i, idx := range closed {
		indices[i] = uint32(idx)
	}
	e.afterLedgerChange(acct)
	e.emit(events.StakePositionsCleaned{Account: handle, Indices: indices, Amount: released})
	return closed, nil
}

func (e *Engine) cleanupPositions(handle, caller solana.PublicKey, pred CleanupPredicate) (*StakeAccount, []PositionIndex, uint64, error) {
	acct, err := e.loadAuthorized(handle, caller)
	if err != nil {
		return nil, nil, 0, err
	}
	before, err := acct.Staked()
	if err != nil {
		return nil, nil, 0, err
	}
	closed := acct.Positions.CleanupPositions(pred)
	if len(closed) == 0 {
		return acct, nil, 0, nil
	}
	after, err := acct.Staked()
	if err != nil {
		return nil, nil, 0, err
	}
	if err := e.store(acct); err != nil {
		return nil, nil, 0, err
	}
	return acct, closed, before - after, nil
}

// Withdraw releases amount from custody to a wallet destination. The amount
// must not exceed the withdrawable balance at now. When the transfer fails the custody
// balance is restored and a *TransferError is returned.
func (e *Engine) Withdraw(handle, caller, destination solana.PublicKey, amount uint64, now Timestamp) error {
	acct, err := e.withdraw(handle, caller, destination, amount, now)
	if err := e.finish(opWithdraw, handle, err); err != nil {
		var werr *WithdrawError
		if errors.As(err, &werr) {
			e.metrics.ObserveWithdrawRejected(werr.Reason.String())
		}
		return err
	}
	e.metrics.AddWithdrawn(amount)
	e.emit(events.StakeWithdrawn{
		Account:     handle,
		Destination: destination,
		Amount:      amount,
		Remaining:   acct.Custody.TotalAmount,
	})
	return nil
}

func (e *Engine) withdraw(handle, caller, destination solana.PublicKey, amount uint64, now Timestamp) (*StakeAccount, error) {
	acct, err := e.loadAuthorized(handle, caller)
	if err != nil {
		return nil, err
	}
	if err := e.auth.CheckTokenAccount(acct.Metadata, destination); err != nil {
		return nil, err
	}
	before := acct.Clone()
	if err := acct.withdraw(amount, now); err != nil {
		return nil, err
	}
	if err := e.moveTokens(acct, before, acct.Metadata.Custody, destination, amount); err != nil {
		return nil, err
	}
	return acct, nil
}

// CloseStakeAccount removes an account that holds neither balance nor
// positions.
func (e *Engine) CloseStakeAccount(handle, caller solana.PublicKey) error {
	acct, err := e.closeStakeAccount(handle, caller)
	if err := e.finish(opCloseStakeAccount, handle, err); err != nil {
		return err
	}
	e.metrics.ForgetAccount(handle.String())
	e.emit(events.StakeAccountClosed{Account: handle, Owner: acct.Metadata.Owner})
	return nil
}

func (e *Engine) closeStakeAccount(handle, caller solana.PublicKey) (*StakeAccount, error) {
	acct, err := e.loadAuthorized(handle, caller)
	if err != nil {
		return nil, err
	}
	if acct.Status() != StatusCloseable {
		return nil, ErrNotCloseable
	}
	if err := e.state.StakeAccountDelete(handle); err != nil {
		return nil, fmt.Errorf("delete stake account: %w", err)
	}
	return acct, nil
}

// StakeAccount returns a copy of the stored account.
func (e *Engine) StakeAccount(handle solana.PublicKey) (*StakeAccount, error) {
	return e.load(handle)
}

// Withdrawable returns the amount the owner could withdraw at now.
func (e *Engine) Withdrawable(handle solana.PublicKey, now Timestamp) (uint64, error) {
	acct, err := e.load(handle)
	if err != nil {
		return 0, err
	}
	return acct.Withdrawable(now)
}

// Status returns the lifecycle state of the account.
func (e *Engine) Status(handle solana.PublicKey) (AccountStatus, error) {
	acct, err := e.load(handle)
	if err != nil {
		return 0, err
	}
	return acct.Status(), nil
}

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) load(handle solana.PublicKey) (*StakeAccount, error) {
	if e.state == nil {
		return nil, errNilState
	}
	acct, ok, err := e.state.StakeAccountGet(handle)
	if err != nil {
		return nil, fmt.Errorf("load stake account: %w", err)
	}
	if !ok || acct == nil {
		return nil, ErrStakeAccountNotFound
	}
	if !acct.Metadata.Positions.Equals(handle) {
		return nil, fmt.Errorf("%w: stored for %s", ErrNonCanonicalAccount, acct.Metadata.Positions)
	}
	if !acct.Custody.Mint.Equals(e.params.TokenMint) {
		return nil, fmt.Errorf("%w: custody holds %s", ErrWrongMint, acct.Custody.Mint)
	}
	return acct, nil
}

func (e *Engine) loadAuthorized(handle, caller solana.PublicKey) (*StakeAccount, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acct, err := e.load(handle)
	if err != nil {
		return nil, err
	}
	if err := e.auth.Authorize(acct.Metadata, caller); err != nil {
		return nil, err
	}
	return acct, nil
}

func (e *Engine) store(acct *StakeAccount) error {
	if err := e.state.StakeAccountPut(acct); err != nil {
		return fmt.Errorf("store stake account: %w", err)
	}
	return nil
}

// moveTokens persists the already-adjusted account and then runs the
// transfer. If the transfer fails the previous record is written back.
func (e *Engine) moveTokens(acct, before *StakeAccount, from, to solana.PublicKey, amount uint64) error {
	if e.transfer == nil {
		return errNilTransfer
	}
	if err := e.store(acct); err != nil {
		return err
	}
	if err := e.transfer.Transfer(from, to, amount); err != nil {
		terr := &TransferError{Err: err}
		if rerr := e.store(before); rerr != nil {
			e.logger.Error("custody rollback failed", "account", acct.Handle().String(), "error", rerr)
			return errors.Join(terr, fmt.Errorf("rollback: %w", rerr))
		}
		return terr
	}
	return nil
}

func (e *Engine) afterLedgerChange(acct *StakeAccount) {
	e.metrics.SetActivePositions(acct.Handle().String(), acct.Positions.Len())
}

func (e *Engine) finish(op string, handle solana.PublicKey, err error) error {
	if err == nil {
		e.metrics.ObserveOperation(op, "ok")
		e.logger.Debug("staking operation applied", "operation", op, "account", handle.String())
		return nil
	}
	e.metrics.ObserveOperation(op, outcome(err))
	e.logger.Warn("staking operation rejected", "operation", op, "account", handle.String(), "error", err)
	return err
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		return "paused"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNonCanonicalAccount):
		return "unauthorized"
	case errors.Is(err, ErrStakeAccountNotFound), errors.Is(err, ErrPositionNotFound):
		return "not_found"
	case errors.Is(err, ErrLedgerFull):
		return "ledger_full"
	case errors.Is(err, ErrInsufficientUnstakedBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrExceedsWithdrawable):
		return "exceeds_withdrawable"
	case errors.Is(err, ErrTransfer):
		return "transfer_failed"
	case errors.Is(err, ErrInvalidSchedule), errors.Is(err, ErrInvalidSplitAmount),
		errors.Is(err, ErrZeroPosition), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidTokenAccount):
		return "invalid_argument"
	default:
		return "error"
	}
}
