package elmgauge

// Adapter configuration commands, CR-terminated ASCII. The battery voltage
// request is answered in plain ASCII rather than PID framing.
const (
	cmdReset          = "ATZ"
	cmdDisableEcho    = "ATE0"
	cmdEnableHeaders  = "ATH1"
	cmdSetProtocol5   = "ATSP5"
	cmdSetTimeout64   = "ATST64"
	cmdDisableSpaces  = "ATS0"
	cmdDisableMemory  = "ATM0"
	cmdAutoTimings    = "ATAT1"
	cmdCustomHeaders  = "ATSH8210F0"
	cmdRequestVoltage = "ATRV"
)

// initStep is one command of the fixed initialization sequence, with the
// severity a failure at that step is reported at. Steps the protocol
// depends on downstream (echo, headers, protocol, custom header) are
// complete failures; cosmetic ones are recoverable. Failures never stop
// the sequence.
type initStep struct {
	cmd    string
	onFail Severity
}

var initSequence = []initStep{
	{cmdReset, MaybeRecoverable},
	{cmdDisableEcho, CompleteFailure},
	{cmdEnableHeaders, CompleteFailure},
	{cmdSetProtocol5, CompleteFailure},
	{cmdSetTimeout64, EntirelyRecoverable},
	{cmdDisableSpaces, MaybeRecoverable},
	{cmdDisableMemory, MaybeRecoverable},
	{cmdAutoTimings, EntirelyRecoverable},
	{cmdCustomHeaders, CompleteFailure},
}

// InitSteps is the number of initialization steps the session runs,
// including the trailing heartbeat probe. Exposed for progress reporting.
func InitSteps() int {
	return len(initSequence) + 1
}
