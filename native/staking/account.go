package staking

import (
	"github.com/gagliardetto/solana-go"
)

// AccountStatus is the coarse lifecycle state of a stake account.
type AccountStatus uint8

const (
	// StatusActive accounts hold a balance or at least one position.
	StatusActive AccountStatus = iota + 1
	// StatusCloseable accounts hold neither and may be closed.
	StatusCloseable
)

func (s AccountStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCloseable:
		return "closeable"
	default:
		return "unknown"
	}
}

// StakeAccountMetadata binds an owner to the derived accounts of one stake
// account. It is written once at creation.
type StakeAccountMetadata struct {
	Owner         solana.PublicKey
	Positions     solana.PublicKey
	Metadata      solana.PublicKey
	Custody       solana.PublicKey
	Authority     solana.PublicKey
	MetadataBump  uint8
	CustodyBump   uint8
	AuthorityBump uint8
}

// StakeAccount aggregates the metadata, custody balance and position ledger
// of a single stake account. The Positions key in the metadata is the handle
// callers use to address it.
type StakeAccount struct {
	Metadata  StakeAccountMetadata
	Custody   CustodyAccount
	Positions *PositionLedger
}

// Handle returns the key the stake account is addressed by.
func (a *StakeAccount) Handle() solana.PublicKey { return a.Metadata.Positions }

// Clone returns a deep copy of the account.
func (a *StakeAccount) Clone() *StakeAccount {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Positions = a.Positions.Clone()
	return &clone
}

// Staked returns the total committed to active positions.
func (a *StakeAccount) Staked() (uint64, error) {
	return a.Positions.Staked()
}

// Withdrawable returns the vested balance not committed to positions at now.
func (a *StakeAccount) Withdrawable(now Timestamp) (uint64, error) {
	staked, err := a.Staked()
	if err != nil {
		return 0, err
	}
	unlocked := a.Custody.Unlocked(now)
	if staked >= unlocked {
		return 0, nil
	}
	return unlocked - staked, nil
}

// CheckWithdraw validates a withdrawal of amount at now without mutating the
// account. Rejections are reported as *WithdrawError.
func (a *StakeAccount) CheckWithdraw(amount uint64, now Timestamp) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	withdrawable, err := a.Withdrawable(now)
	if err != nil {
		return err
	}
	if amount <= withdrawable {
		return nil
	}
	unlocked := a.Custody.Unlocked(now)
	reason := WithdrawReasonStaked
	if amount > unlocked {
		reason = WithdrawReasonVesting
	}
	return &WithdrawError{
		Reason:       reason,
		Requested:    amount,
		Unlocked:     unlocked,
		Locked:       a.Custody.Locked(now),
		Withdrawable: withdrawable,
	}
}

// Status reports whether the account may be closed.
func (a *StakeAccount) Status() AccountStatus {
	if a.Custody.TotalAmount == 0 && a.Positions.Len() == 0 {
		return StatusCloseable
	}
	return StatusActive
}

// CreatePosition commits amount of the custodied balance to a target.
func (a *StakeAccount) CreatePosition(product, publisher solana.PublicKey, amount uint64) (PositionIndex, error) {
	return a.Positions.CreatePosition(product, publisher, amount, a.Custody.TotalAmount)
}

// withdraw debits the custody after CheckWithdraw has passed.
func (a *StakeAccount) withdraw(amount uint64, now Timestamp) error {
	if err := a.CheckWithdraw(amount, now); err != nil {
		return err
	}
	return a.Custody.debit(amount)
}
