package elmgauge

import (
	"fmt"
	"time"
)

// ErrorKind is the closed set of failure causes the engine can report.
type ErrorKind uint8

const (
	KindUnclassified ErrorKind = iota
	KindTransport
	KindTimeout
	KindBufferOverflow
	KindByteParse
	KindChecksum
	KindLength
	KindPIDMismatch
	KindVoltageParse
	KindNoData
	KindDisplayIO
	KindActuatorIO
	KindUnreliableRPM
	KindUnreliableVoltage
	KindUnreliableCoolant
	KindStrangeVoltage
	KindStrangeCoolant
	KindRPMDiscrepancy
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "serial transport error"
	case KindTimeout:
		return "timed out waiting for adapter"
	case KindBufferOverflow:
		return "receive buffer overflowed before the prompt byte"
	case KindByteParse:
		return "failed to assemble bytes from adapter response"
	case KindChecksum:
		return "adapter response failed checksum test"
	case KindLength:
		return "adapter response was not the expected length"
	case KindPIDMismatch:
		return "adapter response did not match the requested PID"
	case KindVoltageParse:
		return "failed to parse voltage from adapter"
	case KindNoData:
		return "no data from ECU"
	case KindDisplayIO:
		return "display communication failure"
	case KindActuatorIO:
		return "gauge actuator failure"
	case KindUnreliableRPM:
		return "unreliable RPM data"
	case KindUnreliableVoltage:
		return "unreliable battery voltage data"
	case KindUnreliableCoolant:
		return "unreliable coolant temperature data"
	case KindStrangeVoltage:
		return "battery voltage outside normal range"
	case KindStrangeCoolant:
		return "coolant temperature outside normal range"
	case KindRPMDiscrepancy:
		return "ECU and measured RPM disagree"
	default:
		return "nondescript error"
	}
}

// ConditionClass groups kinds so a contradicting success can clear sticky
// failures of the whole class at once.
type ConditionClass uint8

const (
	ClassOther ConditionClass = iota
	ClassComm
	ClassTelemetry
	ClassDisplay
	ClassActuator
)

func (k ErrorKind) Class() ConditionClass {
	switch k {
	case KindTransport, KindTimeout, KindBufferOverflow, KindByteParse,
		KindChecksum, KindLength, KindPIDMismatch, KindVoltageParse, KindNoData:
		return ClassComm
	case KindUnreliableRPM, KindUnreliableVoltage, KindUnreliableCoolant,
		KindStrangeVoltage, KindStrangeCoolant, KindRPMDiscrepancy:
		return ClassTelemetry
	case KindDisplayIO:
		return ClassDisplay
	case KindActuatorIO:
		return ClassActuator
	default:
		return ClassOther
	}
}

// Severity orders failures by urgency. The numeric value doubles as the
// on-screen retention time in seconds, except CompleteFailure which is
// retained until a contradicting success clears it.
type Severity uint8

const (
	EntirelyRecoverable     Severity = 8
	BadIfReoccurring        Severity = 10
	MaybeRecoverable        Severity = 12
	LossOfSomeFunctionality Severity = 18
	CompleteFailure         Severity = 255
)

// Lifetime returns how long an error of this severity stays on screen.
// The second return is false for CompleteFailure, which never expires.
func (s Severity) Lifetime() (time.Duration, bool) {
	if s == CompleteFailure {
		return 0, false
	}
	return time.Duration(s) * time.Second, true
}

func (s Severity) String() string {
	switch s {
	case EntirelyRecoverable:
		return "entirely recoverable"
	case BadIfReoccurring:
		return "bad if reoccurring"
	case MaybeRecoverable:
		return "maybe recoverable"
	case LossOfSomeFunctionality:
		return "loss of some functionality"
	case CompleteFailure:
		return "complete failure"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// Fault is a classified failure with an optional underlying cause.
type Fault struct {
	Kind  ErrorKind
	Cause error
}

func NewFault(kind ErrorKind, cause error) *Fault {
	return &Fault{Kind: kind, Cause: cause}
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return f.Kind.String() + ": " + f.Cause.Error()
	}
	return f.Kind.String()
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// WithSeverity tags the fault with the urgency its call site assigns. The
// same kind can carry different severities depending on where it occurred.
func (f *Fault) WithSeverity(s Severity) TaggedFault {
	return TaggedFault{Fault: *f, Severity: s}
}

// TaggedFault is a fault plus the severity assigned by its call site.
type TaggedFault struct {
	Fault    Fault
	Severity Severity
}

func (t TaggedFault) Error() string {
	return fmt.Sprintf("%s (%s)", t.Fault.Error(), t.Severity)
}

// SameCondition reports whether two tagged faults describe the same
// condition, compared over kind and severity only.
func (t TaggedFault) SameCondition(o TaggedFault) bool {
	return t.Fault.Kind == o.Fault.Kind && t.Severity == o.Severity
}
