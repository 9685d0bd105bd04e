package lifecycle

import (
	"context"
	"testing"
	"time"
)

func TestShuttingDownFlag(t *testing.T) {
	defer SetShuttingDown(false)

	steps := []struct {
		set  bool
		want bool
	}{
		{false, false},
		{true, true},
		{true, true},
		{false, false},
	}
	for i, s := range steps {
		SetShuttingDown(s.set)
		if got := IsShuttingDown(); got != s.want {
			t.Errorf("step %d: IsShuttingDown() = %v, want %v", i, got, s.want)
		}
	}
}

func TestWithSignals_RaisesFlagWhenParentEnds(t *testing.T) {
	SetShuttingDown(false)
	defer SetShuttingDown(false)

	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := WithSignals(parent)
	defer stop()

	if IsShuttingDown() {
		t.Fatal("flag raised before the context ended")
	}
	cancel()
	<-ctx.Done()

	deadline := time.Now().Add(time.Second)
	for !IsShuttingDown() {
		if time.Now().After(deadline) {
			t.Fatal("IsShuttingDown() still false after context ended")
		}
		time.Sleep(time.Millisecond)
	}
}
