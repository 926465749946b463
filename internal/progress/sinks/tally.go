package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/linkcheck/internal/progress"
)

// RunSnapshot is a point-in-time view of the latest run.
type RunSnapshot struct {
	RunID       string    `json:"run_id,omitempty"`
	State       string    `json:"state"`
	Total       int       `json:"total"`
	Started     int       `json:"started"`
	Classified  int       `json:"classified"`
	Failed      int       `json:"failed"`
	Successes   int       `json:"successes"`
	HTTPFailure int       `json:"http_failures"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// Run states reported by TallySink.
const (
	RunStateIdle     = "idle"
	RunStateRunning  = "running"
	RunStateFinished = "finished"
)

// TallySink keeps live counters for the most recent run.
type TallySink struct {
	mu   sync.RWMutex
	snap RunSnapshot
}

// NewTallySink returns an idle tally.
func NewTallySink() *TallySink {
	return &TallySink{snap: RunSnapshot{State: RunStateIdle}}
}

// Consume folds the batch into the counters. Events for a run other than the
// current one are ignored unless they start a new run.
func (s *TallySink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		runID := evt.RunUUID().String()
		if evt.Stage == progress.StageRunStart {
			s.snap = RunSnapshot{
				RunID:     runID,
				State:     RunStateRunning,
				Total:     evt.Total,
				StartedAt: evt.TS,
			}
			continue
		}
		if runID != s.snap.RunID {
			continue
		}
		switch evt.Stage {
		case progress.StageFetchStart:
			s.snap.Started++
		case progress.StageFetchDone:
			s.snap.Classified++
			if evt.StatusClass == progress.Status2xx {
				s.snap.Successes++
			} else {
				s.snap.HTTPFailure++
			}
		case progress.StageFetchError:
			s.snap.Failed++
		case progress.StageRunDone:
			s.snap.State = RunStateFinished
			s.snap.FinishedAt = evt.TS
		}
	}
	return nil
}

// Snapshot returns a copy of the current counters.
func (s *TallySink) Snapshot() RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close implements the Sink interface; it performs no action.
func (s *TallySink) Close(context.Context) error {
	return nil
}
