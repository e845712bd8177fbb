package processing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
	"sleepywoodpecker/myo-goes-live/internal/device"
	"sleepywoodpecker/myo-goes-live/internal/metrics"
)

const DefaultCadence = 50 * time.Millisecond

var ErrNotConnected = errors.New("armband is not connected")

// Source produces an armband feed. Run blocks until ctx is done.
type Source interface {
	Run(ctx context.Context, cadence time.Duration, sink device.EventSink) error
	Vibrate(device.Vibration)
}

// Session owns the signal buffers of one armband connection. The source
// goroutine is the only writer; readers get immutable snapshots.
type Session struct {
	id        string
	capacity  int
	source    Source
	observers device.Sinks
	logger    *zap.Logger
	metrics   *metrics.Metrics

	signals atomic.Pointer[buffer.Signals]
	writeMu sync.Mutex
	state   *DeviceStateStore

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession creates a stopped session whose buffers hold capacity samples
// per channel. Observers receive every event after it has been sanitized and
// applied.
func NewSession(capacity int, source Source, logger *zap.Logger, m *metrics.Metrics, observers ...device.EventSink) *Session {
	s := &Session{
		id:        uuid.NewString(),
		capacity:  capacity,
		source:    source,
		observers: observers,
		logger:    logger,
		metrics:   m,
		state:     NewDeviceStateStore(GestureHistoryLength),
	}
	s.signals.Store(buffer.NewSignals(capacity))
	return s
}

func (s *Session) ID() string { return s.id }

// Start launches the source at the given cadence. Starting a running session
// is a no-op.
func (s *Session) Start(cadence time.Duration) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.runningLocked() {
		return
	}
	if cadence <= 0 {
		cadence = DefaultCadence
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Info("[session] starting feed", zap.String("session", s.id), zap.Duration("cadence", cadence))
	go func() {
		defer close(done)
		if err := s.source.Run(ctx, cadence, s); err != nil {
			s.logger.Warn("[session] feed stopped with error", zap.String("session", s.id), zap.Error(err))
		}
	}()
}

// Stop cancels the source and waits for it to return. Buffers keep their
// contents.
func (s *Session) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	status := s.state.MarkDisconnected()
	s.metrics.DeviceStatus(status)
	s.logger.Info("[session] feed stopped", zap.String("session", s.id))
}

func (s *Session) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runningLocked()
}

func (s *Session) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Vibrate forwards a haptic command to the source.
func (s *Session) Vibrate(v device.Vibration) error {
	if !s.Running() {
		return ErrNotConnected
	}
	s.source.Vibrate(v)
	return nil
}

// Reset replaces every channel with a zero-filled window.
func (s *Session) Reset() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.signals.Store(buffer.NewSignals(s.capacity))
}

func (s *Session) Signals() *buffer.Signals {
	return s.signals.Load()
}

func (s *Session) Stats(window int) buffer.Snapshot {
	return s.signals.Load().Stats(window)
}

func (s *Session) Status() device.Status {
	return s.state.GetStatus()
}

func (s *Session) CurrentGesture() *device.Gesture {
	return s.state.GetCurrentGesture()
}

func (s *Session) GestureHistory() []device.Gesture {
	return s.state.GetGestureHistory()
}

func (s *Session) OnEMG(sample device.EMGSample) {
	channels, err := device.SanitizeEMG(sample)
	s.reportCorrection(err)

	s.writeMu.Lock()
	s.signals.Store(s.signals.Load().WithEMG(channels))
	s.writeMu.Unlock()

	s.metrics.SampleApplied("emg")
	s.observers.OnEMG(device.EMGSample{Channels: channels[:], Timestamp: sample.Timestamp})
}

func (s *Session) OnIMU(sample device.IMUSample) {
	sample, err := device.SanitizeIMU(sample)
	s.reportCorrection(err)

	s.writeMu.Lock()
	s.signals.Store(s.signals.Load().WithIMU(
		sample.Acceleration.Array(),
		sample.Gyroscope.Array(),
		sample.Orientation.Array(),
	))
	s.writeMu.Unlock()

	s.metrics.SampleApplied("imu")
	s.observers.OnIMU(sample)
}

func (s *Session) OnGesture(g device.Gesture) {
	g, err := device.SanitizeGesture(g)
	s.reportCorrection(err)

	s.state.AddGesture(g)
	s.metrics.GestureReceived(g.Name)
	s.logger.Debug("[session] gesture", zap.String("gesture", g.Name), zap.Float64("confidence", g.Confidence))
	s.observers.OnGesture(g)
}

func (s *Session) OnDeviceStatus(status device.Status) {
	status, err := device.SanitizeStatus(status)
	s.reportCorrection(err)

	s.state.UpdateStatus(status)
	s.metrics.DeviceStatus(status)
	s.observers.OnDeviceStatus(status)
}

func (s *Session) reportCorrection(err error) {
	if err == nil {
		return
	}
	var bad *device.MalformedSampleError
	if errors.As(err, &bad) {
		s.logger.Warn("[session] corrected malformed sample",
			zap.String("session", s.id),
			zap.String("stream", bad.Stream),
			zap.Strings("reasons", bad.Reasons),
		)
		s.metrics.SampleCorrected(bad.Stream)
		return
	}
	s.logger.Warn("[session] unexpected sample error", zap.Error(err))
}
