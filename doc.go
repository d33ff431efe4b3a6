// Package elmgauge drives a physical gauge cluster from live OBD-II
// telemetry read through an ELM327-class serial adapter.
//
// The adapter Session owns the serial link: it runs a fixed AT
// initialization sequence, then polls the ECU on a steady tick and turns
// raw ASCII responses into validated readings via pkg/bytecodec and
// pkg/pid. The Router is the single decision point between producers and
// the display/gauge consumers: it applies plausibility checks, aggregates
// severity-tagged faults in an ErrorFifo and decides which single error is
// worth showing. All inter-task communication rides bounded channels; a
// full queue suspends the sender, which is the only backpressure
// mechanism.
package elmgauge
