package staking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSchedule             = errors.New("staking: invalid vesting schedule")
	ErrLedgerFull                  = errors.New("staking: number of position limit reached")
	ErrPositionNotFound            = errors.New("staking: position not found")
	ErrInvalidSplitAmount          = errors.New("staking: split amount must be positive and below the position amount")
	ErrInsufficientUnstakedBalance = errors.New("staking: insufficient balance to take on a new position")
	ErrZeroPosition                = errors.New("staking: new position needs to have positive balance")
	ErrInvalidAmount               = errors.New("staking: amount must be positive")
	ErrAmountOverflow              = errors.New("staking: amount overflows custody balance")
	ErrExceedsWithdrawable         = errors.New("staking: amount exceeds withdrawable balance")
	ErrTransfer                    = errors.New("staking: token transfer failed")

	ErrUnauthorized         = errors.New("staking: caller does not own stake account")
	ErrNonCanonicalAccount  = errors.New("staking: account is not the canonical derived address")
	ErrStakeAccountNotFound = errors.New("staking: stake account not found")
	ErrStakeAccountExists   = errors.New("staking: stake account already exists")
	ErrNotCloseable         = errors.New("staking: stake account still holds positions or balance")
	ErrWrongMint            = errors.New("staking: token mint not accepted")
	ErrInvalidTokenAccount  = errors.New("staking: token account must be a wallet outside the stake account")

	errNilState     = errors.New("staking engine: state not configured")
	errNilTransfer  = errors.New("staking engine: transfer primitive not configured")
	errInvalidLimit = errors.New("staking: ledger capacity must be positive")
)

// WithdrawReason tells apart the two ways a withdrawal can exceed the
// withdrawable balance.
type WithdrawReason uint8

const (
	// WithdrawReasonVesting means the amount is larger than what the vesting
	// schedule has unlocked so far.
	WithdrawReasonVesting WithdrawReason = iota + 1
	// WithdrawReasonStaked means the amount is unlocked but committed to
	// active positions.
	WithdrawReasonStaked
)

func (r WithdrawReason) String() string {
	switch r {
	case WithdrawReasonVesting:
		return "vesting"
	case WithdrawReasonStaked:
		return "staked"
	default:
		return "unknown"
	}
}

// WithdrawError reports a rejected withdrawal together with the balances the
// decision was based on.
type WithdrawError struct {
	Reason       WithdrawReason
	Requested    uint64
	Unlocked     uint64
	Locked       uint64
	Withdrawable uint64
}

func (e *WithdrawError) Error() string {
	return fmt.Sprintf("%s: requested %d, unlocked %d, locked %d, withdrawable %d (%s)",
		ErrExceedsWithdrawable, e.Requested, e.Unlocked, e.Locked, e.Withdrawable, e.Reason)
}

func (e *WithdrawError) Is(target error) bool { return target == ErrExceedsWithdrawable }

// TransferError wraps a failure returned by the token transfer primitive.
type TransferError struct {
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTransfer, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

func (e *TransferError) Is(target error) bool { return target == ErrTransfer }
