package retry

import (
	"errors"
	"testing"
	"time"
)

func TestDoReturnsFirstSuccess(t *testing.T) {
	p := Policy{
		Attempts: 3,
		Delay:    time.Second,
		sleep:    func(time.Duration) { t.Fatal("unexpected sleep") },
	}

	calls := 0
	got, err := Do(p, func() (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDoRetriesWithDoublingDelay(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		Attempts: 3,
		Delay:    time.Second,
		sleep:    func(d time.Duration) { slept = append(slept, d) },
	}

	calls := 0
	got, err := Do(p, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %d times, want %d", len(slept), len(want))
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestDoExhaustsAttemptsWithoutFinalSleep(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		Attempts: 3,
		Delay:    500 * time.Millisecond,
		sleep:    func(d time.Duration) { slept = append(slept, d) },
	}

	boom := errors.New("boom")
	calls := 0
	_, err := Do(p, func() (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do returned %v, want %v", err, boom)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}

	// Two sleeps for three attempts, none after the last failure.
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %d times, want %d", len(slept), len(want))
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestDoZeroPolicyUsesDefaults(t *testing.T) {
	var slept []time.Duration
	p := Policy{sleep: func(d time.Duration) { slept = append(slept, d) }}

	calls := 0
	_, err := Do(p, func() (int, error) {
		calls++
		return 0, errors.New("always")
	})
	if err == nil {
		t.Fatal("Do returned nil error")
	}
	if calls != DefaultAttempts {
		t.Errorf("op called %d times, want %d", calls, DefaultAttempts)
	}
	if len(slept) != 2 || slept[0] != DefaultDelay || slept[1] != 2*DefaultDelay {
		t.Errorf("sleeps = %v, want [%v %v]", slept, DefaultDelay, 2*DefaultDelay)
	}
}

func TestRun(t *testing.T) {
	p := Policy{
		Attempts: 2,
		Delay:    time.Millisecond,
		sleep:    func(time.Duration) {},
	}

	calls := 0
	err := Run(p, func() error {
		calls++
		if calls == 1 {
			return errors.New("first")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
}
