package elmgauge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"go.bug.st/serial"

	"github.com/gaugeworks/elmgauge/pkg/bytecodec"
	"github.com/gaugeworks/elmgauge/pkg/pid"
)

// promptByte terminates every adapter response, success or error.
const promptByte = '>'

var ErrPortNotOpen = errors.New("serial port not open")

// SerialPort is the subset of go.bug.st/serial.Port the session needs.
// Narrowed so tests can drive the session over an in-memory port.
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Session owns the serial link to the ELM327 adapter. It runs the fixed
// initialization sequence once, then polls the ECU forever: RPM every
// tick, coolant temperature every 16th tick and battery voltage on the
// 16th-tick cycle offset by 8. Validated readings and severity-tagged
// faults go to the router channel; nothing that happens on the wire is
// fatal to the task.
//
// The session owns its staged buffers exclusively. They are allocated once
// and reused every cycle.
type Session struct {
	cfg    *Config
	port   SerialPort
	events chan<- MainEvent

	raw       bytecodec.RawBuffer
	nibbles   bytecodec.NibbleBuffer
	assembled bytecodec.ByteBuffer
	scratch   [64]byte

	tick uint64

	closeOnce sync.Once
	closeChan chan struct{}
}

func NewSession(cfg *Config, events chan<- MainEvent) *Session {
	cfg.normalize()
	return &Session{
		cfg:       cfg,
		events:    events,
		closeChan: make(chan struct{}),
	}
}

// Open claims the serial port. Opening is retried a couple of times since
// USB adapters routinely need a moment after enumeration.
func (s *Session) Open(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: s.cfg.Baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	return retry.Do(func() error {
		p, err := serial.Open(s.cfg.Port, mode)
		if err != nil {
			return fmt.Errorf("failed to open com port %q : %w", s.cfg.Port, err)
		}
		if err := p.SetReadTimeout(5 * time.Millisecond); err != nil {
			p.Close()
			return err
		}
		p.ResetOutputBuffer()
		p.ResetInputBuffer()
		s.port = p
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("open retry #%d: %v", n, err)
		}),
		retry.LastErrorOnly(true),
	)
}

// Run drives initialization and then the polling loop until the context
// is cancelled or Close is called.
func (s *Session) Run(ctx context.Context) error {
	if s.port == nil {
		return ErrPortNotOpen
	}
	s.initialize(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closeChan:
			return nil
		case <-ticker.C:
			s.pollCycle(ctx)
		}
	}
}

// Close resets the adapter and releases the port.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeChan)
	})
	if s.port == nil {
		return nil
	}
	s.port.ResetOutputBuffer()
	s.port.Write([]byte(cmdReset + "\r"))
	time.Sleep(50 * time.Millisecond)
	s.port.ResetInputBuffer()
	return s.port.Close()
}

// initialize walks the fixed AT sequence. Each step's failure is reported
// at the severity the table assigns and the sequence carries on
// regardless; a flaky step must not keep the engine from polling.
func (s *Session) initialize(ctx context.Context) {
	total := InitSteps()
	for i, step := range initSequence {
		s.cfg.OnProgress(i+1, total, step.cmd)
		if f := s.command(ctx, step.cmd); f != nil {
			s.emitFault(ctx, f.WithSeverity(step.onFail))
		}
	}

	// heartbeat: one supported-PIDs request to confirm the ECU answers
	s.cfg.OnProgress(total, total, "2100")
	if _, f := s.requestPID(ctx, pid.SupportedPIDs); f != nil {
		s.emitFault(ctx, f.WithSeverity(MaybeRecoverable))
	}

	s.emit(ctx, InitComplete{Task: TaskSession})
}

// pollCycle runs one tick of the steady-state loop. RPM goes first so the
// needle gets the freshest value; the slower channels ride sub-multiples
// of the tick counter.
func (s *Session) pollCycle(ctx context.Context) {
	s.tick++
	s.poll(ctx, DatumRPM)
	if s.tick&0x0F == 0 {
		s.poll(ctx, DatumCoolantTemp)
	}
	if s.tick&0x0F == 8 {
		s.poll(ctx, DatumBatteryVoltage)
	}
}

// poll requests one channel and emits either a DataPoint or a fault. No
// retry within the tick: a failed request waits for the next cycle.
func (s *Session) poll(ctx context.Context, kind DatumKind) {
	var value float64
	var fault *Fault
	switch kind {
	case DatumRPM:
		value, fault = s.requestPID(ctx, pid.RPM)
	case DatumCoolantTemp:
		value, fault = s.requestPID(ctx, pid.CoolantTemp)
	case DatumBatteryVoltage:
		value, fault = s.requestVoltage(ctx)
	}
	if fault != nil {
		s.emitFault(ctx, fault.WithSeverity(BadIfReoccurring))
		return
	}
	s.emit(ctx, TelemetryEvent{Point: DataPoint{Kind: kind, Value: value, Time: time.Now()}})
}

// requestPID runs one framed request through the full decode pipeline.
func (s *Session) requestPID(ctx context.Context, cmd pid.Command) (float64, *Fault) {
	if f := s.exchange(ctx, cmd.Request[:]); f != nil {
		return 0, f
	}
	if s.raw.IsNoData() {
		return 0, NewFault(KindNoData, nil)
	}
	s.raw.Nibbles(&s.nibbles)
	if err := s.assembled.FromNibbles(&s.nibbles); err != nil {
		return 0, NewFault(KindByteParse, err)
	}
	value, err := cmd.Validate(s.assembled.Bytes())
	if err != nil {
		return 0, pidFault(err)
	}
	return value, nil
}

// requestVoltage asks the adapter itself for battery voltage. The answer
// is plain ASCII, not PID-framed.
func (s *Session) requestVoltage(ctx context.Context) (float64, *Fault) {
	if f := s.exchange(ctx, []byte(cmdRequestVoltage+"\r")); f != nil {
		return 0, f
	}
	if s.raw.IsNoData() {
		return 0, NewFault(KindNoData, nil)
	}
	value, err := bytecodec.ParseVoltage(&s.raw)
	if err != nil {
		return 0, NewFault(KindVoltageParse, err)
	}
	return value, nil
}

// command sends one AT command and swallows the reply body. The adapter
// acknowledges with text nobody needs; reaching the prompt is the check.
func (s *Session) command(ctx context.Context, cmd string) *Fault {
	return s.exchange(ctx, []byte(cmd+"\r"))
}

// exchange writes a request and reads the response into the raw buffer,
// up to but not including the prompt byte.
func (s *Session) exchange(ctx context.Context, msg []byte) *Fault {
	if s.cfg.Debug {
		s.cfg.OnMessage("<o> " + strconv.Quote(string(msg)))
	}
	if _, err := s.port.Write(msg); err != nil {
		return NewFault(KindTransport, err)
	}
	if f := s.readUntilPrompt(ctx); f != nil {
		return f
	}
	if s.cfg.Debug {
		s.cfg.OnMessage("<i> " + strconv.Quote(string(s.raw.Bytes())))
	}
	return nil
}

// readUntilPrompt accumulates bytes until the prompt shows up. The port's
// own read timeout is short, so the loop spins against the wall-clock
// deadline; running out of buffer before the prompt means the framing
// assumption broke.
func (s *Session) readUntilPrompt(ctx context.Context) *Fault {
	s.raw.Reset()
	deadline := time.Now().Add(s.cfg.ReadTimeout())
	for {
		select {
		case <-ctx.Done():
			return NewFault(KindTimeout, ctx.Err())
		default:
		}
		if !time.Now().Before(deadline) {
			return NewFault(KindTimeout, fmt.Errorf("no prompt within %s", s.cfg.ReadTimeout()))
		}
		n, err := s.port.Read(s.scratch[:])
		if err != nil {
			return NewFault(KindTransport, err)
		}
		if n == 0 {
			continue
		}
		for _, b := range s.scratch[:n] {
			if b == promptByte {
				return nil
			}
			if !s.raw.Append(b) {
				return NewFault(KindBufferOverflow, nil)
			}
		}
	}
}

func (s *Session) emit(ctx context.Context, e MainEvent) {
	select {
	case s.events <- e:
	case <-ctx.Done():
	}
}

func (s *Session) emitFault(ctx context.Context, t TaggedFault) {
	if s.cfg.Debug {
		s.cfg.OnMessage("fault: " + t.Error())
	}
	s.emit(ctx, FaultEvent{Task: TaskSession, Fault: t})
}

func pidFault(err error) *Fault {
	switch {
	case errors.Is(err, pid.ErrLengthMismatch):
		return NewFault(KindLength, err)
	case errors.Is(err, pid.ErrPIDMismatch):
		return NewFault(KindPIDMismatch, err)
	case errors.Is(err, pid.ErrChecksumMismatch):
		return NewFault(KindChecksum, err)
	}
	return NewFault(KindUnclassified, err)
}
