package processing

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
	"sleepywoodpecker/myo-goes-live/internal/device"
	"sleepywoodpecker/myo-goes-live/internal/metrics"
)

type fakeSource struct {
	mu         sync.Mutex
	runs       int
	cadence    time.Duration
	vibrations []device.Vibration
}

func (f *fakeSource) Run(ctx context.Context, cadence time.Duration, sink device.EventSink) error {
	f.mu.Lock()
	f.runs++
	f.cadence = cadence
	f.mu.Unlock()

	sink.OnDeviceStatus(device.Status{Connected: true, BatteryLevel: 90, RSSI: -40})
	<-ctx.Done()
	return nil
}

func (f *fakeSource) Vibrate(v device.Vibration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vibrations = append(f.vibrations, v)
}

func newTestSession(t *testing.T, capacity int, observers ...device.EventSink) (*Session, *fakeSource) {
	src := &fakeSource{}
	return NewSession(capacity, src, zaptest.NewLogger(t), metrics.New(), observers...), src
}

func TestSessionEMGUpdateLeavesIMUGroupsIdentical(t *testing.T) {
	s, _ := newTestSession(t, 10)
	s.OnIMU(device.IMUSample{
		Acceleration: device.Vec3{X: 0.1, Y: 0.2, Z: 0.98},
		Gyroscope:    device.Vec3{X: 5, Y: 6, Z: 7},
		Orientation:  device.Quaternion{W: 1},
	})
	before := s.Signals()

	s.OnEMG(device.EMGSample{Channels: []float64{1, 2, 3, 4, 5, 6, 7, 8}})
	after := s.Signals()

	assert.Equal(t, before.Acceleration, after.Acceleration)
	assert.Equal(t, before.Gyroscope, after.Gyroscope)
	assert.Equal(t, before.Orientation, after.Orientation)
	assert.Equal(t, float64(8), after.EMG[7].Last())
	// a snapshot taken earlier does not change
	assert.Zero(t, before.EMG[7].Last())
}

func TestSessionSanitizesMalformedSamples(t *testing.T) {
	s, _ := newTestSession(t, 10)

	s.OnEMG(device.EMGSample{Channels: []float64{math.NaN(), 300, 3}})
	s.OnIMU(device.IMUSample{Acceleration: device.Vec3{X: math.Inf(1)}})

	sig := s.Signals()
	assert.Zero(t, sig.EMG[0].Last())
	assert.Equal(t, float64(device.EMGMax), sig.EMG[1].Last())
	assert.Equal(t, float64(3), sig.EMG[2].Last())
	assert.Zero(t, sig.EMG[7].Last())
	assert.Zero(t, sig.Acceleration[0].Last())
	for _, c := range sig.EMG {
		assert.Len(t, c, 10)
	}
}

func TestSessionKeepsLastTenGestures(t *testing.T) {
	s, _ := newTestSession(t, 10)
	assert.Nil(t, s.CurrentGesture())

	base := time.Unix(1700000000, 0)
	for i := 0; i < 15; i++ {
		s.OnGesture(device.Gesture{Name: device.GestureFist, Confidence: 0.8, Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	history := s.GestureHistory()
	require.Len(t, history, GestureHistoryLength)
	for i, g := range history {
		assert.Equal(t, base.Add(time.Duration(i+5)*time.Second), g.Timestamp)
	}
	require.NotNil(t, s.CurrentGesture())
	assert.Equal(t, base.Add(14*time.Second), s.CurrentGesture().Timestamp)
}

func TestSessionStartStop(t *testing.T) {
	s, src := newTestSession(t, 10)
	assert.False(t, s.Running())
	assert.ErrorIs(t, s.Vibrate(device.VibrationShort), ErrNotConnected)

	s.Start(0)
	s.Start(time.Second)
	require.Eventually(t, func() bool { return s.Status().Connected }, time.Second, time.Millisecond)
	assert.True(t, s.Running())

	require.NoError(t, s.Vibrate(device.VibrationLong))

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
	assert.False(t, s.Status().Connected)
	assert.Equal(t, 90, s.Status().BatteryLevel)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.runs)
	assert.Equal(t, DefaultCadence, src.cadence)
	assert.Equal(t, []device.Vibration{device.VibrationLong}, src.vibrations)
}

func TestSessionForwardsSanitizedEventsToObservers(t *testing.T) {
	obs := &captureSink{}
	s, _ := newTestSession(t, 10, obs)

	s.OnEMG(device.EMGSample{Channels: []float64{1, 2}})
	s.OnDeviceStatus(device.Status{BatteryLevel: -5})

	require.Len(t, obs.emg, 1)
	assert.Len(t, obs.emg[0].Channels, buffer.EMGChannels)
	require.Len(t, obs.statuses, 1)
	assert.Zero(t, obs.statuses[0].BatteryLevel)
	assert.Equal(t, device.DefaultDeviceName, obs.statuses[0].DeviceName)
}

func TestSessionStatsAndReset(t *testing.T) {
	s, _ := newTestSession(t, 10)
	for _, v := range []float64{0, 0, 0, 5, 0, 3} {
		s.OnEMG(device.EMGSample{Channels: []float64{v, v, v, v, v, v, v, v}})
	}

	snap := s.Stats(6)
	assert.Equal(t, float64(4), snap.EMG[0].Avg)
	assert.Equal(t, float64(5), snap.EMG[0].Max)
	assert.Equal(t, float64(3), snap.EMG[0].Min)

	s.Reset()
	assert.Equal(t, buffer.Stats{}, s.Stats(6).EMG[0])
	assert.Len(t, s.Signals().EMG[0], 10)
}

func TestSessionConcurrentReadersSeeWholeUpdates(t *testing.T) {
	s, _ := newTestSession(t, 50)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			sig := s.Signals()
			last := sig.EMG[0].Last()
			for _, c := range sig.EMG {
				if c.Last() != last {
					t.Errorf("mixed EMG update observed: %v vs %v", c.Last(), last)
					return
				}
			}
		}
	}()

	for i := 1; i <= 500; i++ {
		v := float64(i % 100)
		s.OnEMG(device.EMGSample{Channels: []float64{v, v, v, v, v, v, v, v}})
	}
	close(stop)
	wg.Wait()
}

type captureSink struct {
	emg      []device.EMGSample
	statuses []device.Status
}

func (c *captureSink) OnEMG(s device.EMGSample) { c.emg = append(c.emg, s) }
func (c *captureSink) OnIMU(device.IMUSample) {}
func (c *captureSink) OnGesture(device.Gesture) {}
func (c *captureSink) OnDeviceStatus(s device.Status) { c.statuses = append(c.statuses, s) }
