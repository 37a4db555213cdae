package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/open-edge-platform/imagecraft/internal/scheduler"
)

type fakeTracker struct {
	names    []string
	statuses map[string]scheduler.Status
}

func (f *fakeTracker) Components() []string { return f.names }
func (f *fakeTracker) Status(name string) scheduler.Status {
	return f.statuses[name]
}
func (f *fakeTracker) Duration(string) time.Duration { return 42 * time.Millisecond }

func TestResolveRejectsUnknownMode(t *testing.T) {
	if _, err := Resolve("fancy"); err == nil {
		t.Fatal("Resolve(\"fancy\") should fail")
	}
	for _, mode := range []string{"tui", "text", "json"} {
		got, err := Resolve(mode)
		if err != nil {
			t.Errorf("Resolve(%q): %v", mode, err)
		}
		if string(got) != mode {
			t.Errorf("Resolve(%q) = %q", mode, got)
		}
	}
}

func TestResolveAutoPicksConcreteMode(t *testing.T) {
	got, err := Resolve("auto")
	if err != nil {
		t.Fatalf("Resolve(auto): %v", err)
	}
	if got != ModeTUI && got != ModeText {
		t.Errorf("Resolve(auto) = %q, want tui or text", got)
	}
}

func TestJSONModeEmitsOneEventPerComponent(t *testing.T) {
	ft := &fakeTracker{
		names: []string{"base", "kernel"},
		statuses: map[string]scheduler.Status{
			"base":   scheduler.Success,
			"kernel": scheduler.Failure,
		},
	}

	var buf bytes.Buffer
	s := start(ModeJSON, ft, &buf)
	s.Stop()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %d: %q", len(lines), buf.String())
	}

	var ev event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshaling %q: %v", lines[0], err)
	}
	if ev.Component != "base" || ev.Status != "Success" || ev.DurationMS != 42 {
		t.Errorf("unexpected first event: %+v", ev)
	}
}

func TestTextModeStops(t *testing.T) {
	ft := &fakeTracker{
		names:    []string{"only"},
		statuses: map[string]scheduler.Status{"only": scheduler.Success},
	}
	var buf bytes.Buffer
	s := start(ModeText, ft, &buf)
	s.Stop()
	// Nothing to assert about the bar's escape-sequence output beyond the
	// session winding down cleanly, which reaching this line proves.
}
