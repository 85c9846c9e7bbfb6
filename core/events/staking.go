package events

import (
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const (
	// TypeStakeAccountCreated is emitted once per stake account.
	TypeStakeAccountCreated = "staking.accountCreated"
	// TypeStakeDeposited records tokens moved into custody.
	TypeStakeDeposited = "staking.deposited"
	// TypeStakePositionCreated records a new position.
	TypeStakePositionCreated = "staking.positionCreated"
	// TypeStakePositionSplit records a position split into two slots.
	TypeStakePositionSplit = "staking.positionSplit"
	// TypeStakePositionClosed records a single closed position.
	TypeStakePositionClosed = "staking.positionClosed"
	// TypeStakePositionsCleaned records a batch cleanup.
	TypeStakePositionsCleaned = "staking.positionsCleaned"
	// TypeStakeWithdrawn records tokens moved out of custody.
	TypeStakeWithdrawn = "staking.withdrawn"
	// TypeStakeAccountClosed is emitted when an empty account is removed.
	TypeStakeAccountClosed = "staking.accountClosed"
)

// StakeAccountCreated captures the binding recorded for a new stake account.
type StakeAccountCreated struct {
	Account  solana.PublicKey
	Owner    solana.PublicKey
	Custody  solana.PublicKey
	Schedule string
	Capacity int
}

// EventType satisfies the Event interface.
func (StakeAccountCreated) EventType() string { return TypeStakeAccountCreated }

// Record flattens the event.
func (e StakeAccountCreated) Record() *Record {
	return &Record{Type: TypeStakeAccountCreated, Attributes: map[string]string{
		"account":  e.Account.String(),
		"owner":    e.Owner.String(),
		"custody":  e.Custody.String(),
		"schedule": e.Schedule,
		"capacity": strconv.Itoa(e.Capacity),
	}}
}

// StakeDeposited captures a deposit into custody.
type StakeDeposited struct {
	Account solana.PublicKey
	From    solana.PublicKey
	Amount  uint64
	Total   uint64
}

// EventType satisfies the Event interface.
func (StakeDeposited) EventType() string { return TypeStakeDeposited }

// Record flattens the event.
func (e StakeDeposited) Record() *Record {
	return &Record{Type: TypeStakeDeposited, Attributes: map[string]string{
		"account": e.Account.String(),
		"from":    e.From.String(),
		"amount":  formatAmount(e.Amount),
		"total":   formatAmount(e.Total),
	}}
}

// StakePositionCreated captures a position written into a slot.
type StakePositionCreated struct {
	Account   solana.PublicKey
	Index     uint32
	Product   solana.PublicKey
	Publisher solana.PublicKey
	Amount    uint64
}

// EventType satisfies the Event interface.
func (StakePositionCreated) EventType() string { return TypeStakePositionCreated }

// Record flattens the event.
func (e StakePositionCreated) Record() *Record {
	return &Record{Type: TypeStakePositionCreated, Attributes: map[string]string{
		"account":   e.Account.String(),
		"index":     formatIndex(e.Index),
		"product":   e.Product.String(),
		"publisher": e.Publisher.String(),
		"amount":    formatAmount(e.Amount),
	}}
}

// StakePositionSplit captures the two slots produced by a split.
type StakePositionSplit struct {
	Account     solana.PublicKey
	Source      uint32
	Target      uint32
	Remaining   uint64
	SplitAmount uint64
}

// EventType satisfies the Event interface.
func (StakePositionSplit) EventType() string { return TypeStakePositionSplit }

// Record flattens the event.
func (e StakePositionSplit) Record() *Record {
	return &Record{Type: TypeStakePositionSplit, Attributes: map[string]string{
		"account":     e.Account.String(),
		"source":      formatIndex(e.Source),
		"target":      formatIndex(e.Target),
		"remaining":   formatAmount(e.Remaining),
		"splitAmount": formatAmount(e.SplitAmount),
	}}
}

// StakePositionClosed captures a closed slot.
type StakePositionClosed struct {
	Account solana.PublicKey
	Index   uint32
	Amount  uint64
}

// EventType satisfies the Event interface.
func (StakePositionClosed) EventType() string { return TypeStakePositionClosed }

// Record flattens the event.
func (e StakePositionClosed) Record() *Record {
	return &Record{Type: TypeStakePositionClosed, Attributes: map[string]string{
		"account": e.Account.String(),
		"index":   formatIndex(e.Index),
		"amount":  formatAmount(e.Amount),
	}}
}

// StakePositionsCleaned captures the slots freed by a batch cleanup.
type StakePositionsCleaned struct {
	Account solana.PublicKey
	Indices []uint32
	Amount  uint64
}

// EventType satisfies the Event interface.
func (StakePositionsCleaned) EventType() string { return TypeStakePositionsCleaned }

// Record flattens the event.
func (e StakePositionsCleaned) Record() *Record {
	indices := make([]string, len(e.Indices))
	for i, idx := range e.Indices {
		indices[i] = formatIndex(idx)
	}
	return &Record{Type: TypeStakePositionsCleaned, Attributes: map[string]string{
		"account": e.Account.String(),
		"indices": strings.Join(indices, ","),
		"count":   strconv.Itoa(len(e.Indices)),
		"amount":  formatAmount(e.Amount),
	}}
}

// StakeWithdrawn captures tokens released from custody.
type StakeWithdrawn struct {
	Account     solana.PublicKey
	Destination solana.PublicKey
	Amount      uint64
	Remaining   uint64
}

// EventType satisfies the Event interface.
func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// Record flattens the event.
func (e StakeWithdrawn) Record() *Record {
	return &Record{Type: TypeStakeWithdrawn, Attributes: map[string]string{
		"account":     e.Account.String(),
		"destination": e.Destination.String(),
		"amount":      formatAmount(e.Amount),
		"remaining":   formatAmount(e.Remaining),
	}}
}

// StakeAccountClosed captures the removal of an empty stake account.
type StakeAccountClosed struct {
	Account solana.PublicKey
	Owner   solana.PublicKey
}

// EventType satisfies the Event interface.
func (StakeAccountClosed) EventType() string { return TypeStakeAccountClosed }

// Record flattens the event.
func (e StakeAccountClosed) Record() *Record {
	return &Record{Type: TypeStakeAccountClosed, Attributes: map[string]string{
		"account": e.Account.String(),
		"owner":   e.Owner.String(),
	}}
}

func formatAmount(v uint64) string { return strconv.FormatUint(v, 10) }

func formatIndex(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
