package orchestrator

import (
	"sync"

	"github.com/hl2dm-community/mapsync/pkg/model"
)

const progressBufferSize = 256

// progressFanIn funnels progress events from the transfer workers into a
// single consumer goroutine. Workers must never stall on a slow renderer,
// so emit drops events when the buffer is full; the consumer only sees a
// sample of the stream, which is fine for progress display.
type progressFanIn struct {
	events chan model.TransferProgress
	done   chan struct{}
	once   sync.Once
}

// newProgressFanIn starts the consumer goroutine for sink. A nil sink
// returns a nil fan-in, whose methods are no-ops.
func newProgressFanIn(sink model.ProgressFunc) *progressFanIn {
	if sink == nil {
		return nil
	}
	f := &progressFanIn{
		events: make(chan model.TransferProgress, progressBufferSize),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(f.done)
		for ev := range f.events {
			sink(ev)
		}
	}()
	return f
}

// emit queues a progress event, dropping it when the buffer is full.
func (f *progressFanIn) emit(ev model.TransferProgress) {
	if f == nil {
		return
	}
	select {
	case f.events <- ev:
	default:
	}
}

// close drains the buffer and waits for the consumer to finish. Safe to
// call more than once; emit must not be called after close.
func (f *progressFanIn) close() {
	if f == nil {
		return
	}
	f.once.Do(func() { close(f.events) })
	<-f.done
}
