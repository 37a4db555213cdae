package reporter

import (
	"encoding/json"
	"time"

	"github.com/open-edge-platform/imagecraft/internal/scheduler"
)

// event is one status transition, emitted as a single JSON line.
type event struct {
	Component  string `json:"component"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// runJSON polls the tracker and writes one NDJSON event each time a
// component's status changes, so a CI wrapper can stream build progress
// without parsing human output.
func (s *Session) runJSON() {
	defer close(s.done)

	last := make(map[string]scheduler.Status)
	enc := json.NewEncoder(s.out)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.emitTransitions(enc, last)
		select {
		case <-s.stop:
			s.emitTransitions(enc, last)
			return
		case <-ticker.C:
		}
	}
}

func (s *Session) emitTransitions(enc *json.Encoder, last map[string]scheduler.Status) {
	for _, name := range s.tracker.Components() {
		st := s.tracker.Status(name)
		if st == last[name] {
			continue
		}
		last[name] = st
		ev := event{Component: name, Status: st.String()}
		if st == scheduler.Success || st == scheduler.Failure {
			ev.DurationMS = s.tracker.Duration(name).Milliseconds()
		}
		_ = enc.Encode(ev)
	}
}
