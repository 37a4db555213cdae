package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell"
	"github.com/rivo/tview"

	"github.com/open-edge-platform/imagecraft/internal/scheduler"
)

// runTUI draws a full-screen live view of every component's status,
// refreshed on each poll tick. The screen is torn down on Stop, leaving the
// terminal as it was.
func (s *Session) runTUI() {
	defer close(s.done)

	view := tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(tcell.ColorDefault)
	view.SetBorder(true)
	view.SetTitle(" imagecraft build ")

	app := tview.NewApplication().SetRoot(view, true)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			text := s.renderTUI()
			app.QueueUpdateDraw(func() {
				view.SetText(text)
			})
			select {
			case <-s.stop:
				app.Stop()
				return
			case <-ticker.C:
			}
		}
	}()

	if err := app.Run(); err != nil {
		// No TTY, TERM unset, etc. Stay quiet until the build settles;
		// the final states still land in the build report.
		log.Warnf("tui unavailable: %v", err)
		<-s.stop
	}
}

func (s *Session) renderTUI() string {
	var b strings.Builder
	for _, name := range s.tracker.Components() {
		switch s.tracker.Status(name) {
		case scheduler.Success:
			fmt.Fprintf(&b, "[green]✔[-] %s (%s)\n", name, s.tracker.Duration(name).Round(time.Millisecond))
		case scheduler.Failure:
			fmt.Fprintf(&b, "[red]✘[-] %s\n", name)
		case scheduler.InProgress:
			fmt.Fprintf(&b, "[yellow]…[-] %s\n", name)
		default:
			fmt.Fprintf(&b, "[gray]·[-] %s\n", name)
		}
	}
	return b.String()
}
