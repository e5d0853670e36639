package session

import (
	"time"

	"github.com/rcliao/somi-flow/internal/model"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Sink receives session events in emission order.
type Sink interface {
	Handle(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Handle(ev Event) { f(ev) }

// Driver runs a session against a clock. The host calls Tick from its
// timer loop and forwards user and media actions.
//
// A Driver is not safe for concurrent use; all calls belong on the host's
// single foreground loop.
type Driver struct {
	state State
	clock Clock
	sink  Sink
	// last is the time baseline for the next Tick.
	last time.Time
}

// NewDriver starts a session over tl and delivers the start events to sink.
func NewDriver(tl model.Timeline, opts Options, clock Clock, sink Sink) *Driver {
	if clock == nil {
		clock = SystemClock
	}
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	st, events := Start(tl, opts)
	d := &Driver{state: st, clock: clock, sink: sink, last: clock.Now()}
	d.emit(events)
	return d
}

// State returns a snapshot of the current state.
func (d *Driver) State() State {
	return d.state
}

// Tick advances the session by the wall time since the last baseline.
func (d *Driver) Tick() {
	now := d.clock.Now()
	elapsed := now.Sub(d.last)
	d.last = now
	if d.state.Paused {
		return
	}
	d.apply(d.state.Tick(elapsed))
}

// Pause accounts for time up to now, then freezes the session.
func (d *Driver) Pause() {
	d.Tick()
	d.apply(d.state.Pause())
}

// Resume re-anchors the baseline at now so paused time is never counted.
func (d *Driver) Resume() {
	d.last = d.clock.Now()
	d.apply(d.state.Resume())
}

// Skip ends the current segment.
func (d *Driver) Skip() {
	d.Tick()
	d.apply(d.state.Skip())
}

// MediaEnded reports that the current video finished.
func (d *Driver) MediaEnded() {
	d.Tick()
	d.apply(d.state.MediaEnded())
}

// Abandon ends the session early.
func (d *Driver) Abandon() {
	d.Tick()
	d.apply(d.state.Abandon())
}

// CheckIn records the exit self-report after completion.
func (d *Driver) CheckIn(exit model.Embodiment) {
	d.apply(d.state.CheckIn(exit))
}

func (d *Driver) apply(s State, events []Event) {
	d.state = s
	d.emit(events)
}

func (d *Driver) emit(events []Event) {
	for _, ev := range events {
		d.sink.Handle(ev)
	}
}
