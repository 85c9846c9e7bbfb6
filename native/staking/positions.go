package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// DefaultMaxPositions is the number of position slots allocated per stake
// account when the configuration does not override it.
const DefaultMaxPositions = 100

// PositionIndex addresses a slot in a PositionLedger. Indices stay valid until
// the slot they point at is closed.
type PositionIndex uint32

// Position commits part of the custodied balance to a (product, publisher)
// target. A zero amount marks an empty slot.
type Position struct {
	Product   solana.PublicKey
	Publisher solana.PublicKey
	Amount    uint64
}

// IsEmpty reports whether the slot holds no position.
func (p Position) IsEmpty() bool { return p.Amount == 0 }

// IndexedPosition pairs an active position with its slot.
type IndexedPosition struct {
	Index    PositionIndex
	Position Position
}

// PositionLedger is a fixed-capacity arena of position slots. Slots are never
// shifted: closing a position zeroes it in place and the next allocation
// reuses the lowest empty slot.
type PositionLedger struct {
	slots []Position
}

// NewPositionLedger allocates a zeroed ledger with the given number of slots.
func NewPositionLedger(capacity int) (*PositionLedger, error) {
	if capacity <= 0 {
		return nil, errInvalidLimit
	}
	return &PositionLedger{slots: make([]Position, capacity)}, nil
}

// LoadPositionLedger rebuilds a ledger from persisted slots. The slice length
// becomes the capacity.
func LoadPositionLedger(slots []Position) (*PositionLedger, error) {
	if len(slots) == 0 {
		return nil, errInvalidLimit
	}
	l := &PositionLedger{slots: append([]Position(nil), slots...)}
	if _, err := l.Staked(); err != nil {
		return nil, err
	}
	return l, nil
}

// Capacity returns the number of slots.
func (l *PositionLedger) Capacity() int { return len(l.slots) }

// Len returns the number of active positions.
func (l *PositionLedger) Len() int {
	n := 0
	for _, p := range l.slots {
		if !p.IsEmpty() {
			n++
		}
	}
	return n
}

// Slots returns a copy of every slot, empty ones included.
func (l *PositionLedger) Slots() []Position {
	return append([]Position(nil), l.slots...)
}

// Clone returns an independent copy of the ledger.
func (l *PositionLedger) Clone() *PositionLedger {
	if l == nil {
		return nil
	}
	return &PositionLedger{slots: l.Slots()}
}

// Get returns the active position stored at index.
func (l *PositionLedger) Get(index PositionIndex) (Position, error) {
	if int64(index) >= int64(len(l.slots)) || l.slots[index].IsEmpty() {
		return Position{}, fmt.Errorf("%w: index %d", ErrPositionNotFound, index)
	}
	return l.slots[index], nil
}

// Active lists the non-empty slots in index order.
func (l *PositionLedger) Active() []IndexedPosition {
	out := make([]IndexedPosition, 0, len(l.slots))
	for i, p := range l.slots {
		if p.IsEmpty() {
			continue
		}
		out = append(out, IndexedPosition{Index: PositionIndex(i), Position: p})
	}
	return out
}

// Staked sums the amounts of all active positions.
func (l *PositionLedger) Staked() (uint64, error) {
	sum := new(uint256.Int)
	for _, p := range l.slots {
		sum.Add(sum, uint256.NewInt(p.Amount))
	}
	if !sum.IsUint64() {
		return 0, fmt.Errorf("%w: staked sum overflows", ErrAmountOverflow)
	}
	return sum.Uint64(), nil
}

// CreatePosition writes a new position into the lowest empty slot. The sum of
// all positions after the write must not exceed custodyTotal.
func (l *PositionLedger) CreatePosition(product, publisher solana.PublicKey, amount, custodyTotal uint64) (PositionIndex, error) {
	if amount == 0 {
		return 0, ErrZeroPosition
	}
	index, ok := l.firstEmpty()
	if !ok {
		return 0, ErrLedgerFull
	}
	staked, err := l.Staked()
	if err != nil {
		return 0, err
	}
	next := new(uint256.Int).Add(uint256.NewInt(staked), uint256.NewInt(amount))
	if next.Gt(uint256.NewInt(custodyTotal)) {
		return 0, fmt.Errorf("%w: staked %d + %d > custody %d", ErrInsufficientUnstakedBalance, staked, amount, custodyTotal)
	}
	l.slots[index] = Position{Product: product, Publisher: publisher, Amount: amount}
	return index, nil
}

// SplitPosition moves splitAmount out of the position at index into a new
// position for the same target. The total staked amount is unchanged.
func (l *PositionLedger) SplitPosition(index PositionIndex, splitAmount uint64) (PositionIndex, error) {
	source, err := l.Get(index)
	if err != nil {
		return 0, err
	}
	if splitAmount == 0 || splitAmount >= source.Amount {
		return 0, fmt.Errorf("%w: split %d of %d", ErrInvalidSplitAmount, splitAmount, source.Amount)
	}
	target, ok := l.firstEmpty()
	if !ok {
		return 0, ErrLedgerFull
	}
	l.slots[index].Amount = source.Amount - splitAmount
	l.slots[target] = Position{Product: source.Product, Publisher: source.Publisher, Amount: splitAmount}
	return target, nil
}

// ClosePosition empties the slot at index and returns what it held.
func (l *PositionLedger) ClosePosition(index PositionIndex) (Position, error) {
	closed, err := l.Get(index)
	if err != nil {
		return Position{}, err
	}
	l.slots[index] = Position{}
	return closed, nil
}

// CleanupPredicate selects positions to be removed by CleanupPositions.
type CleanupPredicate func(index PositionIndex, position Position) bool

// CleanupPositions closes every active position matching pred and returns
// the freed indices in ascending order. Running it again with the same
// predicate finds nothing left to close.
func (l *PositionLedger) CleanupPositions(pred CleanupPredicate) []PositionIndex {
	if pred == nil {
		return nil
	}
	var closed []PositionIndex
	for i, p := range l.slots {
		if p.IsEmpty() || !pred(PositionIndex(i), p) {
			continue
		}
		l.slots[i] = Position{}
		closed = append(closed, PositionIndex(i))
	}
	return closed
}

func (l *PositionLedger) firstEmpty() (PositionIndex, bool) {
	for i, p := range l.slots {
		if p.IsEmpty() {
			return PositionIndex(i), true
		}
	}
	return 0, false
}
