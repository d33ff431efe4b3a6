package elmgauge

import (
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"runtime"
	"time"
)

// Router is the single loop that decides what is safe to display. It owns
// the error fifo and the backlight state, applies plausibility checks to
// inbound telemetry and forwards validated samples to the consumer queues.
// It owns no hardware.
type Router struct {
	cfg    *Config
	events <-chan MainEvent

	display chan<- DisplayEvent
	gauge   chan<- GaugeEvent

	fifo *ErrorFifo

	backlight    bool
	displayReady bool
	gaugeReady   bool

	measuredRPM    float64
	hasMeasuredRPM bool

	evtChan chan Event
}

func NewRouter(cfg *Config, events <-chan MainEvent, display chan<- DisplayEvent, gauge chan<- GaugeEvent) *Router {
	cfg.normalize()
	return &Router{
		cfg:     cfg,
		events:  events,
		display: display,
		gauge:   gauge,
		fifo:    NewErrorFifo(),
		evtChan: make(chan Event, 100),
	}
}

// Events exposes the router's diagnostic stream for the operator console.
func (r *Router) Events() <-chan Event {
	return r.evtChan
}

// Run processes inbound events and refreshes the consumers on the status
// interval until the context is cancelled.
func (r *Router) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.StatusInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-r.events:
			r.handle(ctx, e)
		case <-ticker.C:
			r.pushStatus(ctx)
		}
	}
}

func (r *Router) handle(ctx context.Context, e MainEvent) {
	switch e := e.(type) {
	case InitComplete:
		r.handleInit(ctx, e.Task)
	case FaultEvent:
		r.fifo.Add(e.Fault)
		if e.Fault.Severity == CompleteFailure {
			log.Printf("%s reported complete failure: %v", e.Task, e.Fault)
		}
	case TelemetryEvent:
		r.handleTelemetry(ctx, e.Point)
	case MeasuredRPM:
		r.measuredRPM = e.Value
		r.hasMeasuredRPM = true
	case BacklightChanged:
		r.backlight = e.On
		if r.displayReady {
			r.sendDisplay(ctx, Backlight{On: e.On})
		}
		if r.gaugeReady {
			r.sendGauge(ctx, Backlight{On: e.On})
		}
	}
}

func (r *Router) handleInit(ctx context.Context, task TaskID) {
	r.info(fmt.Sprintf("%s initialized", task))
	switch task {
	case TaskDisplay:
		r.displayReady = true
		r.sendDisplay(ctx, Backlight{On: r.backlight})
	case TaskGauge:
		r.gaugeReady = true
		r.sendGauge(ctx, Backlight{On: r.backlight})
	}
}

// handleTelemetry runs the plausibility checks and forwards what passes.
// A valid sample also contradicts any sticky communication failure, so
// those are cleared here.
func (r *Router) handleTelemetry(ctx context.Context, d DataPoint) {
	switch d.Kind {
	case DatumRPM:
		if d.Value < 0 || d.Value > r.cfg.Limits.RPMMax {
			r.fifo.Add(NewFault(KindUnreliableRPM, nil).WithSeverity(LossOfSomeFunctionality))
			return
		}
		if r.hasMeasuredRPM && math.Abs(d.Value-r.measuredRPM) > r.cfg.Limits.RPMDiscrepancy {
			r.fifo.Add(NewFault(KindRPMDiscrepancy,
				fmt.Errorf("ecu %.0f, measured %.0f", d.Value, r.measuredRPM)).WithSeverity(BadIfReoccurring))
		}
		r.fifo.ClearSticky(ClassComm)
		if r.gaugeReady {
			r.sendGauge(ctx, NewData{Point: d})
		}

	case DatumBatteryVoltage:
		lim := r.cfg.Limits
		if d.Value < lim.VoltageSaneMin || d.Value > lim.VoltageSaneMax {
			r.fifo.Add(NewFault(KindUnreliableVoltage,
				fmt.Errorf("%.2fV", d.Value)).WithSeverity(LossOfSomeFunctionality))
			return
		}
		if d.Value < lim.VoltageNormalMin || d.Value > lim.VoltageNormalMax {
			r.fifo.Add(NewFault(KindStrangeVoltage,
				fmt.Errorf("%.2fV", d.Value)).WithSeverity(MaybeRecoverable))
		}
		r.fifo.ClearSticky(ClassComm)
		if r.displayReady {
			r.sendDisplay(ctx, NewData{Point: d})
		}

	case DatumCoolantTemp:
		lim := r.cfg.Limits
		if d.Value < lim.CoolantSaneMin || d.Value > lim.CoolantSaneMax {
			r.fifo.Add(NewFault(KindUnreliableCoolant,
				fmt.Errorf("%.1f°C", d.Value)).WithSeverity(LossOfSomeFunctionality))
			return
		}
		if d.Value < lim.CoolantNormalMin || d.Value > lim.CoolantNormalMax {
			r.fifo.Add(NewFault(KindStrangeCoolant,
				fmt.Errorf("%.1f°C", d.Value)).WithSeverity(MaybeRecoverable))
		}
		r.fifo.ClearSticky(ClassComm)
		if r.displayReady {
			r.sendDisplay(ctx, NewData{Point: d})
		}
	}
}

// pushStatus refreshes the consumers: expired errors are dropped, the most
// relevant survivor (or nothing) goes to the display along with the
// backlight state, and the gauge gets the backlight state.
func (r *Router) pushStatus(ctx context.Context) {
	r.fifo.ClearInactive()
	if r.displayReady {
		if f, ok := r.fifo.MostRelevant(); ok {
			r.sendDisplay(ctx, NewError{Fault: &f})
		} else {
			r.sendDisplay(ctx, NewError{Fault: nil})
		}
		r.sendDisplay(ctx, Backlight{On: r.backlight})
	}
	if r.gaugeReady {
		r.sendGauge(ctx, Backlight{On: r.backlight})
	}
}

// sendDisplay pushes to the display queue with bounded blocking. Depth
// past the warn threshold is a tuning signal, not an error; an outright
// send timeout is treated as the display having stalled.
func (r *Router) sendDisplay(ctx context.Context, ev DisplayEvent) {
	if len(r.display) >= r.cfg.WarnDepth {
		r.warn(fmt.Sprintf("display queue depth %d/%d, consumer falling behind", len(r.display), cap(r.display)))
	}
	select {
	case r.display <- ev:
	case <-time.After(r.cfg.SendTimeout()):
		r.fifo.Add(NewFault(KindDisplayIO,
			fmt.Errorf("display queue blocked for %s", r.cfg.SendTimeout())).WithSeverity(LossOfSomeFunctionality))
	case <-ctx.Done():
	}
}

func (r *Router) sendGauge(ctx context.Context, ev GaugeEvent) {
	if len(r.gauge) >= r.cfg.WarnDepth {
		r.warn(fmt.Sprintf("gauge queue depth %d/%d, consumer falling behind", len(r.gauge), cap(r.gauge)))
	}
	select {
	case r.gauge <- ev:
	case <-time.After(r.cfg.SendTimeout()):
		r.fifo.Add(NewFault(KindActuatorIO,
			fmt.Errorf("gauge queue blocked for %s", r.cfg.SendTimeout())).WithSeverity(LossOfSomeFunctionality))
	case <-ctx.Done():
	}
}

func (r *Router) sendEvent(eventType EventType, details string) {
	select {
	case r.evtChan <- Event{Type: eventType, Details: details}:
	default:
		_, file, no, ok := runtime.Caller(2)
		if ok {
			log.Printf("%s#%d event channel full: %s\n", filepath.Base(file), no, details)
		} else {
			log.Printf("event channel full: %s", details)
		}
	}
}

func (r *Router) warn(details string) {
	r.sendEvent(EventTypeWarning, details)
}

func (r *Router) info(details string) {
	r.sendEvent(EventTypeInfo, details)
}
