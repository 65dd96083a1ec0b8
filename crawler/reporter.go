package crawler

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	ongoingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	finalStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

// Reporter periodically prints a Counters snapshot to standard output.
type Reporter struct {
	counters *Counters
	interval time.Duration
}

// NewReporter builds a Reporter over counters, printing once per
// interval.
func NewReporter(counters *Counters, interval time.Duration) *Reporter {
	return &Reporter{counters: counters, interval: interval}
}

// Run prints a styled snapshot every interval until done is closed, then
// prints a final styled summary.
func (r *Reporter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fmt.Println(ongoingStyle.Render(formatSnapshot(r.counters.Snapshot())))
		case <-done:
			fmt.Println(finalStyle.Render(formatSnapshot(r.counters.Snapshot())))
			return
		}
	}
}

func formatSnapshot(s Snapshot) string {
	return fmt.Sprintf(
		"visited=%d failed=%d initial=%d extra=%d queued=%d",
		s.Visited, s.Failed, s.Initial, s.Extra, s.Queued,
	)
}
