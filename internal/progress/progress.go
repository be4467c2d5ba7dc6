// Package progress carries scan progress from long-running walks to a sink
// without letting a slow sink stall the walk.
package progress

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultEvery is how many scanned entries pass between two progress events.
const DefaultEvery = 1000

// Event is a snapshot of a running scan.
type Event struct {
	RunID   string        `json:"runId"`
	Op      string        `json:"op"`
	Scanned int           `json:"scanned"`
	Found   int           `json:"found"`
	Rate    float64       `json:"rate"` // entries per second over the last window
	Elapsed time.Duration `json:"elapsed"`
	Done    bool          `json:"done,omitempty"`
}

// Reporter receives progress events.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Reporter = ReporterFunc(func(Event) {})

// AsyncReporter forwards events to another Reporter from its own goroutine.
// Intermediate events are dropped when the buffer is full; Done events are
// always delivered.
type AsyncReporter struct {
	next    Reporter
	ch      chan Event
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Int64
}

// Async starts forwarding to next. Close must be called to flush.
func Async(next Reporter, buffer int) *AsyncReporter {
	if next == nil {
		next = Discard
	}
	if buffer < 1 {
		buffer = 16
	}
	a := &AsyncReporter{
		next: next,
		ch:   make(chan Event, buffer),
	}
	a.wg.Go(func() {
		for e := range a.ch {
			a.next.Report(e)
		}
	})
	return a
}

// Report queues e. It never blocks for intermediate events.
func (a *AsyncReporter) Report(e Event) {
	if a.closed.Load() {
		return
	}
	if e.Done {
		a.ch <- e
		return
	}
	select {
	case a.ch <- e:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the sink lagged.
func (a *AsyncReporter) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until queued ones are delivered.
func (a *AsyncReporter) Close() {
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.ch)
		a.wg.Wait()
	})
}

// Tracker counts scanned and matched entries and emits periodic events.
type Tracker struct {
	op        string
	runID     string
	every     int
	rep       Reporter
	now       func() time.Time
	start     time.Time
	lastCheck time.Time
	rate      float64
	scanned   int
	found     int
}

// NewTracker creates a Tracker with a fresh run ID.
func NewTracker(op string, rep Reporter, every int) *Tracker {
	if rep == nil {
		rep = Discard
	}
	if every <= 0 {
		every = DefaultEvery
	}
	t := &Tracker{
		op:    op,
		runID: uuid.NewString(),
		every: every,
		rep:   rep,
		now:   time.Now,
	}
	t.start = t.now()
	t.lastCheck = t.start
	return t
}

// RunID identifies this scan in events and logs.
func (t *Tracker) RunID() string { return t.runID }

// Scanned returns the number of entries seen so far.
func (t *Tracker) Scanned() int { return t.scanned }

// Found returns the number of matches so far.
func (t *Tracker) Found() int { return t.found }

// Tick records one scanned entry.
func (t *Tracker) Tick(matched bool) {
	t.scanned++
	if matched {
		t.found++
	}
	if t.scanned%t.every != 0 {
		return
	}
	now := t.now()
	if window := now.Sub(t.lastCheck).Seconds(); window > 0 {
		t.rate = float64(t.every) / window
	}
	t.lastCheck = now
	t.rep.Report(t.event(now, false))
}

// Finish emits and returns the final event.
func (t *Tracker) Finish() Event {
	e := t.event(t.now(), true)
	t.rep.Report(e)
	return e
}

func (t *Tracker) event(now time.Time, done bool) Event {
	return Event{
		RunID:   t.runID,
		Op:      t.op,
		Scanned: t.scanned,
		Found:   t.found,
		Rate:    t.rate,
		Elapsed: now.Sub(t.start),
		Done:    done,
	}
}
