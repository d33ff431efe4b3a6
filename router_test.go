package elmgauge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (*Router, chan DisplayEvent, chan GaugeEvent) {
	cfg := DefaultConfig()
	cfg.SendTimeoutMs = 100
	events := make(chan MainEvent, 10)
	display := make(chan DisplayEvent, 10)
	gauge := make(chan GaugeEvent, 10)
	r := NewRouter(cfg, events, display, gauge)
	r.displayReady = true
	r.gaugeReady = true
	return r, display, gauge
}

func point(kind DatumKind, value float64) DataPoint {
	return DataPoint{Kind: kind, Value: value, Time: time.Now()}
}

func TestRouterForwardsNormalVoltage(t *testing.T) {
	r, display, _ := newTestRouter()
	r.handleTelemetry(context.Background(), point(DatumBatteryVoltage, 12.6))

	require.Len(t, display, 1)
	ev := (<-display).(NewData)
	assert.Equal(t, 12.6, ev.Point.Value)
	assert.Zero(t, r.fifo.Len())
}

func TestRouterDropsInsaneVoltage(t *testing.T) {
	r, display, _ := newTestRouter()
	r.handleTelemetry(context.Background(), point(DatumBatteryVoltage, 88.0))

	assert.Empty(t, display, "insane sample must not reach the display")
	f, ok := r.fifo.MostRelevant()
	require.True(t, ok)
	assert.Equal(t, KindUnreliableVoltage, f.Fault.Kind)
	assert.Equal(t, LossOfSomeFunctionality, f.Severity)
}

func TestRouterForwardsAbnormalVoltageWithWarning(t *testing.T) {
	r, display, _ := newTestRouter()
	r.handleTelemetry(context.Background(), point(DatumBatteryVoltage, 9.2))

	require.Len(t, display, 1, "sane-but-abnormal samples are still forwarded")
	f, ok := r.fifo.MostRelevant()
	require.True(t, ok)
	assert.Equal(t, KindStrangeVoltage, f.Fault.Kind)
	assert.Equal(t, MaybeRecoverable, f.Severity)
}

func TestRouterCoolantPlausibility(t *testing.T) {
	r, display, _ := newTestRouter()

	r.handleTelemetry(context.Background(), point(DatumCoolantTemp, 90))
	require.Len(t, display, 1)
	assert.Zero(t, r.fifo.Len())

	r.handleTelemetry(context.Background(), point(DatumCoolantTemp, 300))
	assert.Len(t, display, 1, "insane coolant reading dropped")
	f, ok := r.fifo.MostRelevant()
	require.True(t, ok)
	assert.Equal(t, KindUnreliableCoolant, f.Fault.Kind)
}

func TestRouterRPMGoesToGauge(t *testing.T) {
	r, display, gauge := newTestRouter()
	r.handleTelemetry(context.Background(), point(DatumRPM, 1664))

	require.Len(t, gauge, 1)
	ev := (<-gauge).(NewData)
	assert.Equal(t, 1664.0, ev.Point.Value)
	assert.Empty(t, display, "RPM is a gauge channel, not a display channel")
}

func TestRouterRPMDiscrepancy(t *testing.T) {
	r, _, gauge := newTestRouter()

	r.handle(context.Background(), MeasuredRPM{Value: 3000})
	r.handleTelemetry(context.Background(), point(DatumRPM, 3100))
	assert.Zero(t, r.fifo.Len(), "within threshold")

	r.handleTelemetry(context.Background(), point(DatumRPM, 4000))
	f, ok := r.fifo.MostRelevant()
	require.True(t, ok)
	assert.Equal(t, KindRPMDiscrepancy, f.Fault.Kind)

	// the sample is still forwarded; the discrepancy is advisory
	assert.Len(t, gauge, 2)
}

func TestRouterDropsInsaneRPM(t *testing.T) {
	r, _, gauge := newTestRouter()
	r.handleTelemetry(context.Background(), point(DatumRPM, 50000))

	assert.Empty(t, gauge)
	f, ok := r.fifo.MostRelevant()
	require.True(t, ok)
	assert.Equal(t, KindUnreliableRPM, f.Fault.Kind)
}

func TestValidTelemetryClearsStickyCommFailure(t *testing.T) {
	r, _, _ := newTestRouter()

	r.handle(context.Background(), FaultEvent{
		Task:  TaskSession,
		Fault: NewFault(KindTransport, nil).WithSeverity(CompleteFailure),
	})
	require.Equal(t, 1, r.fifo.Len())

	r.handleTelemetry(context.Background(), point(DatumRPM, 800))
	assert.Zero(t, r.fifo.Len(), "a valid reading contradicts a sticky comm failure")
}

func TestPushStatusRefreshesConsumers(t *testing.T) {
	r, display, gauge := newTestRouter()
	r.backlight = true
	r.handle(context.Background(), FaultEvent{
		Task:  TaskSession,
		Fault: NewFault(KindNoData, nil).WithSeverity(BadIfReoccurring),
	})

	r.pushStatus(context.Background())

	require.Len(t, display, 2)
	errEv := (<-display).(NewError)
	require.NotNil(t, errEv.Fault)
	assert.Equal(t, KindNoData, errEv.Fault.Fault.Kind)
	blEv := (<-display).(Backlight)
	assert.True(t, blEv.On)

	require.Len(t, gauge, 1)
	assert.True(t, (<-gauge).(Backlight).On)
}

func TestPushStatusClearsErrorArea(t *testing.T) {
	r, display, _ := newTestRouter()
	r.pushStatus(context.Background())

	require.Len(t, display, 2)
	errEv := (<-display).(NewError)
	assert.Nil(t, errEv.Fault, "no live errors clears the error area")
}

func TestRouterWarnsOnQueueDepth(t *testing.T) {
	r, display, _ := newTestRouter()
	r.cfg.WarnDepth = 2
	display <- NewError{}
	display <- NewError{}

	r.sendDisplay(context.Background(), NewData{Point: point(DatumBatteryVoltage, 12.6)})

	select {
	case ev := <-r.Events():
		assert.Equal(t, EventTypeWarning, ev.Type)
	default:
		t.Fatal("expected a backpressure warning event")
	}
	assert.Len(t, display, 3, "the send itself still goes through")
}

func TestRouterSendTimeoutRaisesDisplayFault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendTimeoutMs = 20
	events := make(chan MainEvent, 1)
	display := make(chan DisplayEvent) // unbuffered and never drained
	gauge := make(chan GaugeEvent, 1)
	r := NewRouter(cfg, events, display, gauge)
	r.displayReady = true

	r.sendDisplay(context.Background(), NewError{})

	f, ok := r.fifo.MostRelevant()
	require.True(t, ok)
	assert.Equal(t, KindDisplayIO, f.Fault.Kind)
}

func TestRouterIgnoresConsumersBeforeInit(t *testing.T) {
	cfg := DefaultConfig()
	events := make(chan MainEvent, 1)
	display := make(chan DisplayEvent, 10)
	gauge := make(chan GaugeEvent, 10)
	r := NewRouter(cfg, events, display, gauge)

	r.handleTelemetry(context.Background(), point(DatumRPM, 900))
	r.pushStatus(context.Background())
	assert.Empty(t, display)
	assert.Empty(t, gauge)
}
