package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestTracker(t *testing.T) {
	t.Run("reports every N entries and on finish", func(t *testing.T) {
		rec := &recorder{}
		tr := NewTracker("build", rec, 10)

		for i := range 25 {
			tr.Tick(i%5 == 0)
		}
		final := tr.Finish()

		events := rec.all()
		require.Len(t, events, 3)
		assert.Equal(t, 10, events[0].Scanned)
		assert.Equal(t, 2, events[0].Found)
		assert.Equal(t, 20, events[1].Scanned)
		assert.False(t, events[1].Done)

		assert.True(t, final.Done)
		assert.Equal(t, 25, final.Scanned)
		assert.Equal(t, 5, final.Found)
		assert.Equal(t, "build", final.Op)
		assert.Equal(t, tr.RunID(), final.RunID)
	})

	t.Run("rate computed over the window", func(t *testing.T) {
		rec := &recorder{}
		tr := NewTracker("search", rec, 4)
		clock := tr.start
		tr.now = func() time.Time { return clock }

		for range 4 {
			clock = clock.Add(500 * time.Millisecond)
			tr.Tick(false)
		}

		events := rec.all()
		require.Len(t, events, 1)
		assert.InDelta(t, 2.0, events[0].Rate, 0.001)
	})

	t.Run("nil reporter and zero interval use defaults", func(t *testing.T) {
		tr := NewTracker("build", nil, 0)
		assert.Equal(t, DefaultEvery, tr.every)
		tr.Tick(true)
		assert.Equal(t, 1, tr.Found())
	})

	t.Run("run IDs are unique", func(t *testing.T) {
		a := NewTracker("x", nil, 1)
		b := NewTracker("x", nil, 1)
		assert.NotEqual(t, a.RunID(), b.RunID())
	})
}

func TestAsyncReporter(t *testing.T) {
	t.Run("delivers events in order", func(t *testing.T) {
		rec := &recorder{}
		a := Async(rec, 100)
		for i := range 5 {
			a.Report(Event{Scanned: i})
		}
		a.Report(Event{Scanned: 5, Done: true})
		a.Close()

		events := rec.all()
		require.Len(t, events, 6)
		for i, e := range events {
			assert.Equal(t, i, e.Scanned)
		}
	})

	t.Run("slow sink does not block and done is kept", func(t *testing.T) {
		release := make(chan struct{})
		rec := &recorder{}
		slow := ReporterFunc(func(e Event) {
			<-release
			rec.Report(e)
		})
		a := Async(slow, 1)

		start := time.Now()
		for i := range 1000 {
			a.Report(Event{Scanned: i})
		}
		assert.Less(t, time.Since(start), time.Second)
		assert.Positive(t, a.Dropped())

		close(release)
		a.Report(Event{Scanned: 1000, Done: true})
		a.Close()

		events := rec.all()
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.True(t, last.Done)
		assert.Equal(t, 1000, last.Scanned)
	})

	t.Run("report after close is ignored", func(t *testing.T) {
		rec := &recorder{}
		a := Async(rec, 1)
		a.Close()
		a.Close()
		a.Report(Event{Done: true})
		assert.Empty(t, rec.all())
	})
}
