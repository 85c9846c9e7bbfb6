package staking

import (
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
)

// CustodyAccount is the escrow balance held for a stake account together with
// the vesting schedule that limits withdrawals from it.
type CustodyAccount struct {
	Mint        solana.PublicKey
	TotalAmount uint64
	Vesting     VestingSchedule
}

// Unlocked returns the vested part of the custodied balance at now.
func (c *CustodyAccount) Unlocked(now Timestamp) uint64 {
	return c.Vesting.Unlocked(c.TotalAmount, now)
}

// Locked returns the part of the custodied balance the schedule still holds
// back at now.
func (c *CustodyAccount) Locked(now Timestamp) uint64 {
	return c.Vesting.Locked(c.TotalAmount, now)
}

func (c *CustodyAccount) credit(amount uint64) error {
	if amount > math.MaxUint64-c.TotalAmount {
		return fmt.Errorf("%w: %d + %d", ErrAmountOverflow, c.TotalAmount, amount)
	}
	c.TotalAmount += amount
	return nil
}

func (c *CustodyAccount) debit(amount uint64) error {
	if amount > c.TotalAmount {
		return fmt.Errorf("%w: debit %d from %d", ErrExceedsWithdrawable, amount, c.TotalAmount)
	}
	c.TotalAmount -= amount
	return nil
}
