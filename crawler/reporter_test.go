package crawler

import (
	"testing"
	"time"
)

func TestFormatSnapshot(t *testing.T) {
	s := Snapshot{Visited: 1, Failed: 2, Initial: 3, Extra: 4, Queued: 5}
	got := formatSnapshot(s)
	want := "visited=1 failed=2 initial=3 extra=4 queued=5"
	if got != want {
		t.Errorf("formatSnapshot() = %q, want %q", got, want)
	}
}

func TestReporter_RunReturnsWhenDoneClosed(t *testing.T) {
	counters := &Counters{}
	counters.IncVisited()

	r := NewReporter(counters, time.Hour)
	done := make(chan struct{})
	close(done)

	// Run should return promptly once done is already closed.
	finished := make(chan struct{})
	go func() {
		r.Run(done)
		close(finished)
	}()
	<-finished
}
