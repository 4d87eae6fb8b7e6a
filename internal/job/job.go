// Package job tracks the single long-running operation of a session.
//
// A Job carries a cancelable context, the current progress, and a set of
// subscribers that receive an Event for every status or progress change.
// Subscribers that join after the job has finished get the final event and
// a closed channel.
package job

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Progress reports "Done of Total" units of a named step.
type Progress struct {
	Step  string `json:"step,omitempty"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

type Event struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Status   Status    `json:"status"`
	Progress Progress  `json:"progress"`
	Error    string    `json:"error,omitempty"`
	Started  time.Time `json:"started"`
}

const subscriberBuffer = 32

type Job struct {
	ID      string
	Kind    string
	Started time.Time

	mu       sync.Mutex
	status   Status
	progress Progress
	err      error
	cancel   context.CancelFunc
	subs     map[chan Event]struct{}
}

// Start creates a running job whose context is derived from parent.
func Start(parent context.Context, id, kind string) (*Job, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	j := &Job{
		ID:      id,
		Kind:    kind,
		Started: time.Now(),
		status:  StatusInProgress,
		cancel:  cancel,
		subs:    make(map[chan Event]struct{}),
	}
	return j, ctx
}

// Running reports whether the job has not finished yet.
func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status == StatusInProgress
}

// Report records progress and notifies subscribers. Reports after Finish
// are dropped.
func (j *Job) Report(step string, done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusInProgress {
		return
	}
	j.progress = Progress{Step: step, Done: done, Total: total}
	j.broadcast(j.snapshot())
}

// Reporter returns a callback bound to a step name, in the shape expected by
// the pdf and render pipelines.
func (j *Job) Reporter(step string) func(done, total int) {
	return func(done, total int) { j.Report(step, done, total) }
}

// Finish marks the job as done, failed or canceled depending on err, closes
// all subscriber channels and releases the context.
func (j *Job) Finish(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusInProgress {
		return
	}
	switch {
	case err == nil:
		j.status = StatusDone
	case errors.Is(err, context.Canceled):
		j.status = StatusCanceled
		j.err = err
	default:
		j.status = StatusFailed
		j.err = err
	}
	ev := j.snapshot()
	for ch := range j.subs {
		select {
		case ch <- ev:
		default:
		}
		close(ch)
	}
	j.subs = map[chan Event]struct{}{}
	j.cancel()
}

// Cancel requests cancellation. It returns false if the job already
// finished.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	running := j.status == StatusInProgress
	j.mu.Unlock()
	if running {
		j.cancel()
	}
	return running
}

// Snapshot returns the current state as an Event.
func (j *Job) Snapshot() Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot()
}

// Subscribe returns a channel primed with the current state. The channel is
// closed when the job finishes or unsubscribe is called. Slow subscribers
// miss intermediate progress events.
func (j *Job) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	j.mu.Lock()
	defer j.mu.Unlock()
	ch <- j.snapshot()
	if j.status != StatusInProgress {
		close(ch)
		return ch, func() {}
	}
	j.subs[ch] = struct{}{}
	return ch, func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if _, ok := j.subs[ch]; ok {
			delete(j.subs, ch)
			close(ch)
		}
	}
}

func (j *Job) snapshot() Event {
	ev := Event{
		ID:       j.ID,
		Kind:     j.Kind,
		Status:   j.status,
		Progress: j.progress,
		Started:  j.Started,
	}
	if j.err != nil {
		ev.Error = j.err.Error()
	}
	return ev
}

func (j *Job) broadcast(ev Event) {
	for ch := range j.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
