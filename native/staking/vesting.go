package staking

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// Timestamp is a unix time in seconds as supplied by the runtime clock.
type Timestamp = int64

// ScheduleKind selects the unlock curve of a VestingSchedule.
type ScheduleKind uint8

const (
	// ScheduleFullyVested unlocks the whole balance immediately.
	ScheduleFullyVested ScheduleKind = iota
	// ScheduleCliff unlocks the whole balance at End.
	ScheduleCliff
	// ScheduleLinear unlocks nothing before Cliff, then linearly from Start
	// to End.
	ScheduleLinear
	// SchedulePeriodic unlocks an equal share at the end of each of
	// NumPeriods periods starting at Start.
	SchedulePeriodic
)

func (k ScheduleKind) String() string {
	switch k {
	case ScheduleFullyVested:
		return "fullyVested"
	case ScheduleCliff:
		return "cliff"
	case ScheduleLinear:
		return "linear"
	case SchedulePeriodic:
		return "periodic"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// VestingSchedule describes how much of a custodied balance is unlocked at a
// given time. A schedule is attached when the stake account is created and is
// never modified afterwards. Fields not used by Kind must be zero.
type VestingSchedule struct {
	Kind           ScheduleKind
	Start          Timestamp
	Cliff          Timestamp
	End            Timestamp
	PeriodDuration int64
	NumPeriods     uint64
}

// FullyVested returns a schedule with no lock.
func FullyVested() VestingSchedule {
	return VestingSchedule{Kind: ScheduleFullyVested}
}

// NewCliffSchedule locks the whole balance until unlockAt.
func NewCliffSchedule(unlockAt Timestamp) (VestingSchedule, error) {
	s := VestingSchedule{Kind: ScheduleCliff, End: unlockAt}
	return s, s.Validate()
}

// NewLinearSchedule unlocks linearly between start and end, with nothing
// unlocked before cliff. Pass cliff == start for a plain linear schedule.
func NewLinearSchedule(start, cliff, end Timestamp) (VestingSchedule, error) {
	s := VestingSchedule{Kind: ScheduleLinear, Start: start, Cliff: cliff, End: end}
	return s, s.Validate()
}

// NewPeriodicSchedule unlocks 1/numPeriods of the balance after each full
// period elapsed since start.
func NewPeriodicSchedule(start Timestamp, period int64, numPeriods uint64) (VestingSchedule, error) {
	s := VestingSchedule{Kind: SchedulePeriodic, Start: start, PeriodDuration: period, NumPeriods: numPeriods}
	return s, s.Validate()
}

// Validate rejects malformed parameters with ErrInvalidSchedule.
func (s VestingSchedule) Validate() error {
	switch s.Kind {
	case ScheduleFullyVested:
		if s.Start != 0 || s.Cliff != 0 || s.End != 0 || s.PeriodDuration != 0 || s.NumPeriods != 0 {
			return fmt.Errorf("%w: fully vested schedule takes no parameters", ErrInvalidSchedule)
		}
	case ScheduleCliff:
		if s.End < 0 {
			return fmt.Errorf("%w: negative unlock time", ErrInvalidSchedule)
		}
		if s.Start != 0 || s.Cliff != 0 || s.PeriodDuration != 0 || s.NumPeriods != 0 {
			return fmt.Errorf("%w: cliff schedule only takes an unlock time", ErrInvalidSchedule)
		}
	case ScheduleLinear:
		if s.Start < 0 {
			return fmt.Errorf("%w: negative start", ErrInvalidSchedule)
		}
		if s.End <= s.Start {
			return fmt.Errorf("%w: end %d not after start %d", ErrInvalidSchedule, s.End, s.Start)
		}
		if s.Cliff < s.Start || s.Cliff > s.End {
			return fmt.Errorf("%w: cliff %d outside [%d, %d]", ErrInvalidSchedule, s.Cliff, s.Start, s.End)
		}
		if s.PeriodDuration != 0 || s.NumPeriods != 0 {
			return fmt.Errorf("%w: linear schedule takes no periods", ErrInvalidSchedule)
		}
	case SchedulePeriodic:
		if s.Start < 0 {
			return fmt.Errorf("%w: negative start", ErrInvalidSchedule)
		}
		if s.PeriodDuration <= 0 {
			return fmt.Errorf("%w: period duration must be positive", ErrInvalidSchedule)
		}
		if s.NumPeriods == 0 {
			return fmt.Errorf("%w: number of periods must be positive", ErrInvalidSchedule)
		}
		if s.NumPeriods > uint64(math.MaxInt64-s.Start)/uint64(s.PeriodDuration) {
			return fmt.Errorf("%w: maturity overflows", ErrInvalidSchedule)
		}
		if s.Cliff != 0 || s.End != 0 {
			return fmt.Errorf("%w: periodic schedule takes no cliff or end", ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidSchedule, s.Kind)
	}
	return nil
}

// Maturity returns the first instant at which the whole balance is unlocked.
func (s VestingSchedule) Maturity() Timestamp {
	switch s.Kind {
	case ScheduleCliff, ScheduleLinear:
		return s.End
	case SchedulePeriodic:
		return s.Start + int64(s.NumPeriods)*s.PeriodDuration
	default:
		return math.MinInt64
	}
}

// Unlocked returns the part of total that is free of the vesting lock at now.
// The result never exceeds total and never decreases as now grows.
func (s VestingSchedule) Unlocked(total uint64, now Timestamp) uint64 {
	switch s.Kind {
	case ScheduleFullyVested:
		return total
	case ScheduleCliff:
		if now >= s.End {
			return total
		}
		return 0
	case ScheduleLinear:
		if now < s.Cliff {
			return 0
		}
		if now >= s.End {
			return total
		}
		return mulDiv(total, uint64(now-s.Start), uint64(s.End-s.Start))
	case SchedulePeriodic:
		if now < s.Start {
			return 0
		}
		elapsed := uint64(now-s.Start) / uint64(s.PeriodDuration)
		if elapsed >= s.NumPeriods {
			return total
		}
		return mulDiv(total, elapsed, s.NumPeriods)
	default:
		return 0
	}
}

// Locked returns the part of total still held back by the schedule at now.
func (s VestingSchedule) Locked(total uint64, now Timestamp) uint64 {
	return total - s.Unlocked(total, now)
}

// mulDiv computes a*b/denom without intermediate overflow. Callers guarantee
// b <= denom so the result fits in 64 bits.
func mulDiv(a, b, denom uint64) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return product.Div(product, uint256.NewInt(denom)).Uint64()
}
