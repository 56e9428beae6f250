package health_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/countd/pkg/health"
)

type flakyTarget struct {
	failing atomic.Bool
}

func (f *flakyTarget) Probe(context.Context) error {
	if f.failing.Load() {
		return ewrap.New("storage gone")
	}

	return nil
}

func TestProberPublishesInitialVerdict(t *testing.T) {
	t.Parallel()

	target := &flakyTarget{}

	prober, err := health.NewProber(target, time.Hour, "", nil)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}

	if prober.Healthy() {
		t.Fatal("verdict should be unhealthy before the first probe")
	}

	err = prober.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	defer prober.Stop()

	if !prober.Healthy() {
		t.Fatal("Start must probe synchronously before returning")
	}
}

func TestProberTracksTransitions(t *testing.T) {
	t.Parallel()

	target := &flakyTarget{}

	prober, err := health.NewProber(target, 10*time.Millisecond, "", nil)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}

	err = prober.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	defer prober.Stop()

	target.failing.Store(true)

	waitFor(t, func() bool { return !prober.Healthy() }, "prober should notice failing storage")

	target.failing.Store(false)

	waitFor(t, prober.Healthy, "prober should notice recovered storage")
}

func TestProberStartTwice(t *testing.T) {
	t.Parallel()

	prober, err := health.NewProber(&flakyTarget{}, time.Hour, "", nil)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}

	err = prober.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	defer prober.Stop()

	err = prober.Start(context.Background())
	if err == nil {
		t.Fatal("second Start should fail")
	}
}

func TestProberRejectsNilTarget(t *testing.T) {
	t.Parallel()

	_, err := health.NewProber(nil, time.Second, "", nil)
	if err == nil {
		t.Fatal("expected error for nil target")
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal(msg)
}
