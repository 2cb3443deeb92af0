package governor

import (
	"context"
	"testing"
	"time"
)

func TestAdaptiveDelayWaitEnforcesMinimum(t *testing.T) {
	d := NewAdaptiveDelay(20*time.Millisecond, 20*time.Millisecond)

	start := time.Now()
	if err := d.Wait(context.Background(), "example.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := d.Wait(context.Background(), "example.com"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("expected second call to wait at least 20ms, elapsed %v", elapsed)
	}
}

func TestAdaptiveDelayDomainsAreIndependent(t *testing.T) {
	d := NewAdaptiveDelay(50*time.Millisecond, 50*time.Millisecond)
	if err := d.Wait(context.Background(), "a.com"); err != nil {
		t.Fatalf("a.com wait: %v", err)
	}

	start := time.Now()
	if err := d.Wait(context.Background(), "b.com"); err != nil {
		t.Fatalf("b.com wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Fatalf("expected b.com to be unaffected by a.com's delay, elapsed %v", elapsed)
	}
}

func TestAdaptiveDelayWaitRespectsCancellation(t *testing.T) {
	d := NewAdaptiveDelay(time.Second, time.Second)
	_ = d.Wait(context.Background(), "slow.com")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := d.Wait(ctx, "slow.com"); err == nil {
		t.Fatal("expected context deadline to cancel the wait")
	}
}

func TestReportErrorBackoffCeilings(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		ceiling float64
	}{
		{"rate limited", 429, backoffCeilingThrottled},
		{"service unavailable", 503, backoffCeilingThrottled},
		{"other failure", 0, backoffCeilingOther},
		{"server error", 500, backoffCeilingOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewAdaptiveDelay(time.Second, time.Second)
			for i := 0; i < 10; i++ {
				d.ReportError("example.com", tc.status)
			}
			if got := d.Backoff("example.com"); got != tc.ceiling {
				t.Fatalf("backoff = %v, want ceiling %v", got, tc.ceiling)
			}
		})
	}
}

func TestReportSuccessDecaysToFloor(t *testing.T) {
	d := NewAdaptiveDelay(time.Second, time.Second)
	d.ReportError("example.com", 429)
	for i := 0; i < 20; i++ {
		d.ReportSuccess("example.com")
	}
	if got := d.Backoff("example.com"); got != backoffFloor {
		t.Fatalf("backoff = %v, want floor %v", got, backoffFloor)
	}
}
