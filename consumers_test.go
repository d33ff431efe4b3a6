package elmgauge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordActuator struct {
	seeks        []float64
	recalibrated int
	seekErr      error
}

func (a *recordActuator) Seek(position float64) error {
	if a.seekErr != nil {
		return a.seekErr
	}
	a.seeks = append(a.seeks, position)
	return nil
}

func (a *recordActuator) SetBacklight(bool) error { return nil }
func (a *recordActuator) Recalibrate() error {
	a.recalibrated++
	return nil
}

func TestCommandGuardRecalibratesWhenIncomplete(t *testing.T) {
	act := &recordActuator{}

	guard := BeginCommand(act)
	require.NoError(t, guard.Close())
	assert.Equal(t, 1, act.recalibrated, "an abandoned movement re-homes the needle")

	// closing twice is safe
	require.NoError(t, guard.Close())
	assert.Equal(t, 1, act.recalibrated)
}

func TestCommandGuardNoopWhenComplete(t *testing.T) {
	act := &recordActuator{}

	guard := BeginCommand(act)
	guard.Complete()
	require.NoError(t, guard.Close())
	assert.Zero(t, act.recalibrated)
}

func TestRunGaugeSeeksAndClamps(t *testing.T) {
	act := &recordActuator{}
	events := make(chan GaugeEvent, 4)
	out := make(chan MainEvent, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		RunGauge(ctx, events, act, out)
		close(done)
	}()

	events <- NewData{Point: DataPoint{Kind: DatumRPM, Value: 4500, Time: time.Now()}}
	events <- NewData{Point: DataPoint{Kind: DatumRPM, Value: 18000, Time: time.Now()}}

	require.Eventually(t, func() bool {
		return len(act.seeks) == 2
	}, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 0.5, act.seeks[0], 1e-9)
	assert.Equal(t, 1.0, act.seeks[1], "readings past full scale clamp to full deflection")

	cancel()
	<-done

	// init handshake arrived before any movement
	ev := <-out
	_, ok := ev.(InitComplete)
	assert.True(t, ok)
}

func TestRunGaugeReportsSeekFailureAndRecalibrates(t *testing.T) {
	act := &recordActuator{seekErr: errors.New("stepper stalled")}
	events := make(chan GaugeEvent, 1)
	out := make(chan MainEvent, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go RunGauge(ctx, events, act, out)
	events <- NewData{Point: DataPoint{Kind: DatumRPM, Value: 2000, Time: time.Now()}}

	require.Eventually(t, func() bool { return act.recalibrated == 1 }, time.Second, 5*time.Millisecond)

	<-out // InitComplete
	ev := (<-out).(FaultEvent)
	assert.Equal(t, KindActuatorIO, ev.Fault.Fault.Kind)
	assert.Equal(t, TaskGauge, ev.Task)
}
