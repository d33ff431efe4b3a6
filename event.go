package elmgauge

import "fmt"

// EventType classifies a diagnostic event emitted by the router.
type EventType int

const (
	EventTypeError EventType = iota
	EventTypeWarning
	EventTypeInfo
	EventTypeDebug
)

func (et EventType) String() string {
	switch et {
	case EventTypeError:
		return "ERROR"
	case EventTypeWarning:
		return "WARN"
	case EventTypeInfo:
		return "INFO"
	case EventTypeDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Event is a diagnostic message for the operator console. It is separate
// from the fault path: faults drive what the display shows, events are
// for tuning and debugging.
type Event struct {
	Type    EventType
	Details string
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Details)
}

// TaskID names a producer or consumer task for init bookkeeping.
type TaskID int

const (
	TaskSession TaskID = iota
	TaskDisplay
	TaskGauge
)

func (t TaskID) String() string {
	switch t {
	case TaskSession:
		return "session"
	case TaskDisplay:
		return "display"
	case TaskGauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// MainEvent is anything a producer task can hand to the router. The
// concrete types below are the full set.
type MainEvent interface {
	mainEvent()
}

// InitComplete signals that a task finished its startup phase.
type InitComplete struct {
	Task TaskID
}

// FaultEvent carries a severity-tagged fault from any task.
type FaultEvent struct {
	Task  TaskID
	Fault TaggedFault
}

// TelemetryEvent carries one validated reading from the adapter session.
type TelemetryEvent struct {
	Point DataPoint
}

// MeasuredRPM is the independently counted engine speed, used to
// cross-check the ECU-reported value.
type MeasuredRPM struct {
	Value float64
}

// BacklightChanged reports the ambient-light input flipping state.
type BacklightChanged struct {
	On bool
}

func (InitComplete) mainEvent()     {}
func (FaultEvent) mainEvent()       {}
func (TelemetryEvent) mainEvent()   {}
func (MeasuredRPM) mainEvent()      {}
func (BacklightChanged) mainEvent() {}

// DisplayEvent is what the router pushes to the display consumer.
type DisplayEvent interface {
	displayEvent()
}

// GaugeEvent is what the router pushes to the needle/LED consumer.
type GaugeEvent interface {
	gaugeEvent()
}

// NewData forwards a validated reading to a consumer.
type NewData struct {
	Point DataPoint
}

// NewError replaces the error currently shown on the display. A nil
// Fault clears the error area.
type NewError struct {
	Fault *TaggedFault
}

// Backlight tells a consumer the current backlight state.
type Backlight struct {
	On bool
}

func (NewData) displayEvent()   {}
func (NewData) gaugeEvent()     {}
func (NewError) displayEvent()  {}
func (Backlight) displayEvent() {}
func (Backlight) gaugeEvent()   {}
