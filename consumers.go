package elmgauge

import (
	"context"
	"sync"
)

// GaugeMaxRPM is the highest value the needle can show. Larger readings
// are clamped for scaling; the plausibility check bounds them separately.
const GaugeMaxRPM = 9000.0

// Display is the contract for the status screen. Rendering itself
// (pixels, icons, layout) lives behind this boundary.
type Display interface {
	ShowData(d DataPoint) error
	// ShowError replaces the error area; nil clears it.
	ShowError(f *TaggedFault) error
	SetBacklight(on bool) error
}

// Actuator is the contract for the needle driver and LED ring. Position
// is a fraction of full deflection.
type Actuator interface {
	Seek(position float64) error
	SetBacklight(on bool) error
	// Recalibrate re-homes the needle after an interrupted movement.
	Recalibrate() error
}

// CommandGuard scopes one actuator movement. An in-flight movement that is
// abandoned leaves the physical needle position unknown, so unless the
// guard is marked complete, closing it re-homes the actuator.
type CommandGuard struct {
	act  Actuator
	once sync.Once
	done bool
}

func BeginCommand(a Actuator) *CommandGuard {
	return &CommandGuard{act: a}
}

// Complete marks the movement as finished; Close becomes a no-op.
func (g *CommandGuard) Complete() {
	g.done = true
}

// Close recalibrates if the movement never completed. Safe to call on
// every exit path.
func (g *CommandGuard) Close() error {
	var err error
	g.once.Do(func() {
		if !g.done {
			err = g.act.Recalibrate()
		}
	})
	return err
}

// RunDisplay consumes display events and drives a Display implementation.
// I/O failures are reported to the router and the loop keeps going.
func RunDisplay(ctx context.Context, events <-chan DisplayEvent, d Display, out chan<- MainEvent) error {
	send := func(e MainEvent) {
		select {
		case out <- e:
		case <-ctx.Done():
		}
	}
	send(InitComplete{Task: TaskDisplay})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			var err error
			switch ev := ev.(type) {
			case NewData:
				err = d.ShowData(ev.Point)
			case NewError:
				err = d.ShowError(ev.Fault)
			case Backlight:
				err = d.SetBacklight(ev.On)
			}
			if err != nil {
				send(FaultEvent{
					Task:  TaskDisplay,
					Fault: NewFault(KindDisplayIO, err).WithSeverity(LossOfSomeFunctionality),
				})
			}
		}
	}
}

// RunGauge consumes gauge events and drives the needle. Every movement is
// wrapped in a CommandGuard so an error or cancellation mid-move re-homes
// the needle instead of leaving it stuck on a stale value.
func RunGauge(ctx context.Context, events <-chan GaugeEvent, a Actuator, out chan<- MainEvent) error {
	send := func(e MainEvent) {
		select {
		case out <- e:
		case <-ctx.Done():
		}
	}
	report := func(err error) {
		send(FaultEvent{
			Task:  TaskGauge,
			Fault: NewFault(KindActuatorIO, err).WithSeverity(LossOfSomeFunctionality),
		})
	}

	send(InitComplete{Task: TaskGauge})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case NewData:
				if ev.Point.Kind != DatumRPM {
					continue
				}
				position := ev.Point.Value / GaugeMaxRPM
				if position > 1 {
					position = 1
				}
				guard := BeginCommand(a)
				err := a.Seek(position)
				if err == nil {
					guard.Complete()
				}
				if cerr := guard.Close(); cerr != nil && err == nil {
					err = cerr
				}
				if err != nil {
					report(err)
				}
			case Backlight:
				if err := a.SetBacklight(ev.On); err != nil {
					report(err)
				}
			}
		}
	}
}
