// Package reporter renders build progress while the scheduler runs. Four
// modes: "text" draws a progress bar on stdout, "tui" draws a live
// per-component status list, "json" emits one JSON line per status
// transition for machine consumers, and "auto" picks tui when stdout is a
// terminal and text otherwise.
package reporter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/open-edge-platform/imagecraft/internal/logger"
	"github.com/open-edge-platform/imagecraft/internal/scheduler"
)

var log = logger.Logger()

// Mode selects how progress is rendered.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeTUI  Mode = "tui"
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// Resolve validates a --report-mode flag value and collapses "auto" to a
// concrete mode based on whether stdout is a terminal.
func Resolve(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTUI, ModeText, ModeJSON:
		return Mode(s), nil
	case ModeAuto:
		if stdoutIsTerminal() {
			return ModeTUI, nil
		}
		return ModeText, nil
	default:
		return "", fmt.Errorf("unsupported --report-mode %q (supported: auto, tui, text, json)", s)
	}
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Tracker is the view of the scheduler a Session polls. *scheduler.Scheduler
// satisfies it; tests substitute a fake.
type Tracker interface {
	Components() []string
	Status(name string) scheduler.Status
	Duration(name string) time.Duration
}

var _ Tracker = (*scheduler.Scheduler)(nil)

// Session is one running progress renderer. Stop must be called once the
// scheduler has settled, so the final states get rendered.
type Session struct {
	mode     Mode
	tracker  Tracker
	out      io.Writer
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

const pollInterval = 100 * time.Millisecond

// Start begins rendering progress for t in the given (already resolved)
// mode. It returns immediately; rendering happens on a background
// goroutine until Stop.
func Start(mode Mode, t Tracker) *Session {
	return start(mode, t, os.Stdout)
}

func start(mode Mode, t Tracker, out io.Writer) *Session {
	s := &Session{
		mode:     mode,
		tracker:  t,
		out:      out,
		interval: pollInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	switch mode {
	case ModeTUI:
		go s.runTUI()
	case ModeJSON:
		go s.runJSON()
	default:
		go s.runText()
	}
	return s
}

// Stop renders the final component states and shuts the renderer down. It
// blocks until the rendering goroutine has exited.
func (s *Session) Stop() {
	close(s.stop)
	<-s.done
}
