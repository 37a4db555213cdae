package reporter

import (
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/open-edge-platform/imagecraft/internal/scheduler"
)

// runText drives a single determinate progress bar: one tick per component
// reaching a terminal state, with the currently building components in the
// description.
func (s *Session) runText() {
	defer close(s.done)

	components := s.tracker.Components()
	bar := progressbar.NewOptions(len(components),
		progressbar.OptionSetWriter(s.out),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(50*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("building components"),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.renderText(bar, components)
		select {
		case <-s.stop:
			s.renderText(bar, components)
			_ = bar.Finish()
			return
		case <-ticker.C:
		}
	}
}

func (s *Session) renderText(bar *progressbar.ProgressBar, components []string) {
	finished := 0
	var inProgress []string
	for _, name := range components {
		switch s.tracker.Status(name) {
		case scheduler.Success, scheduler.Failure:
			finished++
		case scheduler.InProgress:
			inProgress = append(inProgress, name)
		}
	}
	if len(inProgress) > 0 {
		bar.Describe("building " + strings.Join(inProgress, ", "))
	}
	_ = bar.Set(finished)
}
