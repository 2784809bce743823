package netman

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAPTimerFiresOnce(t *testing.T) {
	var fired atomic.Int32

	timer := newAPTimer(20*time.Millisecond, func() {
		fired.Add(1)
	})

	if !timer.start() {
		t.Fatal("expected start to succeed")
	}

	waitFor(t, "timer to fire", func() bool {
		return fired.Load() == 1
	})

	if timer.isArmed() {
		t.Error("expected the timer to be disarmed after firing")
	}

	time.Sleep(50 * time.Millisecond)

	if fired.Load() != 1 {
		t.Errorf("expected a single shot, got %d", fired.Load())
	}
}

func TestAPTimerStartWhileRunningFails(t *testing.T) {
	timer := newAPTimer(time.Hour, func() {})
	defer timer.stop()

	if !timer.start() {
		t.Fatal("expected start to succeed")
	}

	if timer.start() {
		t.Error("expected second start to fail")
	}
}

func TestAPTimerStopDisarms(t *testing.T) {
	var fired atomic.Int32

	timer := newAPTimer(20*time.Millisecond, func() {
		fired.Add(1)
	})

	timer.start()

	if !timer.stop() {
		t.Fatal("expected stop to succeed")
	}

	if timer.stop() {
		t.Error("expected second stop to fail")
	}

	time.Sleep(50 * time.Millisecond)

	if fired.Load() != 0 {
		t.Errorf("expected no shot, got %d", fired.Load())
	}
}

func TestAPTimerRestartsAfterStop(t *testing.T) {
	var fired atomic.Int32

	timer := newAPTimer(20*time.Millisecond, func() {
		fired.Add(1)
	})

	timer.start()
	timer.stop()

	if !timer.start() {
		t.Fatal("expected restart to succeed")
	}

	waitFor(t, "timer to fire", func() bool {
		return fired.Load() == 1
	})
}
