package staking

import (
	"errors"
	"math"
	"testing"
)

func TestFullyVestedUnlocksEverything(t *testing.T) {
	s := FullyVested()
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := s.Unlocked(1000, math.MinInt64); got != 1000 {
		t.Fatalf("expected 1000 unlocked, got %d", got)
	}
	if got := s.Locked(1000, 0); got != 0 {
		t.Fatalf("expected nothing locked, got %d", got)
	}
}

func TestCliffSchedule(t *testing.T) {
	s, err := NewCliffSchedule(100)
	if err != nil {
		t.Fatalf("new cliff: %v", err)
	}
	if got := s.Unlocked(500, 99); got != 0 {
		t.Fatalf("expected 0 before cliff, got %d", got)
	}
	if got := s.Unlocked(500, 100); got != 500 {
		t.Fatalf("expected 500 at cliff, got %d", got)
	}
	if s.Maturity() != 100 {
		t.Fatalf("unexpected maturity %d", s.Maturity())
	}
}

func TestLinearSchedule(t *testing.T) {
	s, err := NewLinearSchedule(0, 0, 100)
	if err != nil {
		t.Fatalf("new linear: %v", err)
	}
	cases := []struct {
		now  Timestamp
		want uint64
	}{
		{-10, 0},
		{0, 0},
		{1, 10},
		{50, 500},
		{99, 990},
		{100, 1000},
		{1_000_000, 1000},
	}
	for _, tc := range cases {
		if got := s.Unlocked(1000, tc.now); got != tc.want {
			t.Fatalf("now=%d: expected %d, got %d", tc.now, tc.want, got)
		}
	}
}

func TestLinearScheduleWithCliff(t *testing.T) {
	s, err := NewLinearSchedule(0, 40, 100)
	if err != nil {
		t.Fatalf("new linear: %v", err)
	}
	if got := s.Unlocked(1000, 39); got != 0 {
		t.Fatalf("expected 0 before cliff, got %d", got)
	}
	if got := s.Unlocked(1000, 40); got != 400 {
		t.Fatalf("expected catch-up to 400 at cliff, got %d", got)
	}
}

func TestLinearScheduleLargeBalanceDoesNotOverflow(t *testing.T) {
	s, err := NewLinearSchedule(0, 0, 4)
	if err != nil {
		t.Fatalf("new linear: %v", err)
	}
	if got := s.Unlocked(math.MaxUint64, 2); got != math.MaxUint64/2 {
		t.Fatalf("expected half of max, got %d", got)
	}
}

func TestPeriodicSchedule(t *testing.T) {
	s, err := NewPeriodicSchedule(1000, 10, 4)
	if err != nil {
		t.Fatalf("new periodic: %v", err)
	}
	cases := []struct {
		now  Timestamp
		want uint64
	}{
		{999, 0},
		{1000, 0},
		{1009, 0},
		{1010, 25},
		{1025, 50},
		{1039, 75},
		{1040, 100},
	}
	for _, tc := range cases {
		if got := s.Unlocked(100, tc.now); got != tc.want {
			t.Fatalf("now=%d: expected %d, got %d", tc.now, tc.want, got)
		}
	}
	if s.Maturity() != 1040 {
		t.Fatalf("unexpected maturity %d", s.Maturity())
	}
}

func TestScheduleValidation(t *testing.T) {
	cases := map[string]VestingSchedule{
		"fully vested with params":  {Kind: ScheduleFullyVested, End: 5},
		"cliff with start":          {Kind: ScheduleCliff, Start: 1, End: 5},
		"negative cliff":            {Kind: ScheduleCliff, End: -1},
		"linear end before start":   {Kind: ScheduleLinear, Start: 10, Cliff: 10, End: 10},
		"linear cliff after end":    {Kind: ScheduleLinear, Start: 0, Cliff: 20, End: 10},
		"linear cliff before start": {Kind: ScheduleLinear, Start: 5, Cliff: 4, End: 10},
		"periodic zero period":      {Kind: SchedulePeriodic, PeriodDuration: 0, NumPeriods: 1},
		"periodic zero count":       {Kind: SchedulePeriodic, PeriodDuration: 1},
		"periodic overflow":         {Kind: SchedulePeriodic, Start: 1, PeriodDuration: math.MaxInt64, NumPeriods: 2},
		"periodic with end":         {Kind: SchedulePeriodic, PeriodDuration: 1, NumPeriods: 1, End: 3},
		"unknown kind":              {Kind: ScheduleKind(9)},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
				t.Fatalf("expected ErrInvalidSchedule, got %v", err)
			}
		})
	}
}

func TestUnlockedIsMonotonicAndBounded(t *testing.T) {
	linear, _ := NewLinearSchedule(100, 150, 1100)
	periodic, _ := NewPeriodicSchedule(100, 7, 13)
	cliff, _ := NewCliffSchedule(600)
	schedules := []VestingSchedule{FullyVested(), linear, periodic, cliff}

	const total = 987_654_321
	for _, s := range schedules {
		prev := uint64(0)
		for now := Timestamp(0); now <= 1200; now += 3 {
			got := s.Unlocked(total, now)
			if got < prev {
				t.Fatalf("%s: unlocked decreased at %d: %d < %d", s.Kind, now, got, prev)
			}
			if got > total {
				t.Fatalf("%s: unlocked %d exceeds total", s.Kind, got)
			}
			prev = got
		}
		if s.Unlocked(total, s.Maturity()) != total {
			t.Fatalf("%s: expected full unlock at maturity", s.Kind)
		}
	}
}
