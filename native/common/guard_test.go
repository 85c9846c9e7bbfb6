package common

import (
	"errors"
	"testing"
)

func TestGuardNilView(t *testing.T) {
	if err := Guard(nil, "staking"); err != nil {
		t.Fatalf("nil view must not pause: %v", err)
	}
}

func TestGuardPausedModule(t *testing.T) {
	pauses := NewPauses("Staking")
	if err := Guard(pauses, "staking"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(pauses, "lending"); err != nil {
		t.Fatalf("unrelated module paused: %v", err)
	}

	pauses.Set("staking", false)
	if err := Guard(pauses, "staking"); err != nil {
		t.Fatalf("expected module resumed, got %v", err)
	}
}
