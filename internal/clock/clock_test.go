package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
)

func TestReal_Now(t *testing.T) {
	clk := clock.Real{}
	before := time.Now()
	got := clk.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Real.Now() = %v, expected between %v and %v", got, before, after)
	}
	if got.Location() != time.UTC {
		t.Errorf("Real.Now() location = %v, want UTC", got.Location())
	}
}

func TestManual_Now(t *testing.T) {
	fixed := time.Date(2025, 3, 22, 18, 30, 0, 0, time.UTC)
	clk := clock.NewManual(fixed)

	if got := clk.Now(); !got.Equal(fixed) {
		t.Errorf("Manual.Now() = %v, want %v", got, fixed)
	}
	if got := clk.Now(); !got.Equal(fixed) {
		t.Errorf("Manual.Now() second call = %v, want %v", got, fixed)
	}
}

func TestManual_Advance(t *testing.T) {
	start := time.Date(2025, 3, 22, 18, 30, 0, 0, time.UTC)
	clk := clock.NewManual(start)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clk.Advance(time.Second)
		}()
	}
	wg.Wait()

	want := start.Add(10 * time.Second)
	if got := clk.Now(); !got.Equal(want) {
		t.Errorf("Manual.Now() after advances = %v, want %v", got, want)
	}
}
