// Package simulator fabricates a plausible armband feed: EMG levels shaped by
// gesture templates, slowly drifting IMU readings, occasional gesture changes
// and battery/RSSI updates.
package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
	"sleepywoodpecker/myo-goes-live/internal/device"
)

const (
	DefaultCadence  = 50 * time.Millisecond
	FirmwareVersion = "1.5.1970.2"

	restProbability   = 0.85
	spikeProbability  = 0.05
	statusProbability = 0.01
	minGestureHold    = 2 * time.Second
	gestureHoldJitter = 6 * time.Second
)

type template struct {
	name    string
	pattern [buffer.EMGChannels]float64
}

var templates = []template{
	{device.GestureFist, [buffer.EMGChannels]float64{80, 85, 90, 75, 70, 60, 55, 65}},
	{device.GestureWaveIn, [buffer.EMGChannels]float64{20, 25, 80, 85, 30, 25, 20, 15}},
	{device.GestureWaveOut, [buffer.EMGChannels]float64{15, 20, 25, 30, 85, 80, 25, 20}},
	{device.GestureFingersSpread, [buffer.EMGChannels]float64{45, 50, 55, 60, 55, 50, 45, 40}},
	{device.GestureDoubleTap, [buffer.EMGChannels]float64{90, 95, 90, 85, 90, 95, 90, 85}},
	{device.GestureRest, [buffer.EMGChannels]float64{5, 8, 6, 4, 7, 5, 6, 4}},
}

// ActiveGestures lists every gesture except Rest, in template order.
func ActiveGestures() []string {
	out := make([]string, 0, len(templates)-1)
	for _, t := range templates {
		if t.name != device.GestureRest {
			out = append(out, t.name)
		}
	}
	return out
}

func patternFor(name string) [buffer.EMGChannels]float64 {
	for _, t := range templates {
		if t.name == name {
			return t.pattern
		}
	}
	return [buffer.EMGChannels]float64{5, 5, 5, 5, 5, 5, 5, 5}
}

type Simulator struct {
	logger *zap.Logger
	rng    *rand.Rand

	mu           sync.Mutex
	gesture      string
	gestureStart time.Time
	battery      float64
	rssi         float64
	running      bool
}

// NewSimulator creates a simulator that starts resting at 85% battery. A nil
// rng is replaced by a time-seeded one.
func NewSimulator(logger *zap.Logger, rng *rand.Rand) *Simulator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	s := &Simulator{
		logger:  logger,
		rng:     rng,
		battery: 85,
		rssi:    -45,
	}
	s.pickGesture(time.Now())
	return s
}

// Run emits a status event, then generates one batch of events per cadence
// tick until ctx is done.
func (s *Simulator) Run(ctx context.Context, cadence time.Duration, sink device.EventSink) error {
	if cadence <= 0 {
		cadence = DefaultCadence
	}

	s.mu.Lock()
	s.running = true
	status := s.statusLocked()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("[simulator] started", zap.Duration("cadence", cadence))
	sink.OnDeviceStatus(status)

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("[simulator] received shutdown signal")
			return nil
		case now := <-ticker.C:
			s.Tick(now, sink)
		}
	}
}

// Tick generates the events for a single step at time now.
func (s *Simulator) Tick(now time.Time, sink device.EventSink) {
	s.mu.Lock()
	emg := s.emgLocked(now)
	imu := s.imuLocked(now)
	gesture, changed := s.checkGestureLocked(now)

	var (
		status       device.Status
		statusUpdate bool
	)
	if s.rng.Float64() < statusProbability {
		s.battery = math.Max(0, s.battery-s.rng.Float64()*2)
		s.rssi = -30 - s.rng.Float64()*40
		status = s.statusLocked()
		status.Connected = true
		statusUpdate = true
	}
	s.mu.Unlock()

	sink.OnEMG(emg)
	sink.OnIMU(imu)
	if changed {
		sink.OnGesture(gesture)
	}
	if statusUpdate {
		sink.OnDeviceStatus(status)
	}
}

// Vibrate has no device to drive, so it only logs the request.
func (s *Simulator) Vibrate(v device.Vibration) {
	s.logger.Info("[simulator] vibration triggered", zap.String("type", string(v)))
}

func (s *Simulator) CurrentGesture() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gesture
}

func (s *Simulator) Status() device.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Simulator) statusLocked() device.Status {
	return device.Status{
		Connected:       s.running,
		BatteryLevel:    int(math.Round(s.battery)),
		RSSI:            int(math.Round(s.rssi)),
		DeviceName:      device.DefaultDeviceName,
		FirmwareVersion: FirmwareVersion,
	}
}

func (s *Simulator) emgLocked(now time.Time) device.EMGSample {
	base := patternFor(s.gesture)
	ms := float64(now.UnixMilli())
	oscillation := math.Sin(ms*0.01) * 5

	channels := make([]float64, buffer.EMGChannels)
	for i, b := range base {
		noise := (s.rng.Float64() - 0.5) * 10
		spike := 0.0
		if s.rng.Float64() < spikeProbability {
			spike = (s.rng.Float64() - 0.5) * 30
		}
		v := math.Round(b + noise + oscillation + spike)
		channels[i] = math.Max(device.EMGMin, math.Min(device.EMGMax, v))
	}
	return device.EMGSample{Channels: channels, Timestamp: now}
}

func (s *Simulator) imuLocked(now time.Time) device.IMUSample {
	t := float64(now.UnixMilli()) * 0.001
	noise := func(scale float64) float64 { return (s.rng.Float64() - 0.5) * scale }

	acc := device.Vec3{
		X: math.Sin(t*0.5)*0.2 + noise(0.1),
		Y: math.Cos(t*0.3)*0.15 + noise(0.1),
		Z: 0.98 + math.Sin(t*0.7)*0.1 + noise(0.05),
	}
	gyro := device.Vec3{
		X: math.Sin(t*0.4)*15 + noise(5),
		Y: math.Cos(t*0.6)*10 + noise(5),
		Z: math.Sin(t*0.2)*8 + noise(3),
	}
	roll := math.Sin(t*0.1) * 0.2
	pitch := math.Cos(t*0.15) * 0.15
	yaw := t * 0.05

	return device.IMUSample{
		Acceleration: acc,
		Gyroscope:    gyro,
		Orientation:  EulerToQuaternion(roll, pitch, yaw),
		Timestamp:    now,
	}
}

// EulerToQuaternion converts roll, pitch and yaw in radians to a unit
// quaternion.
func EulerToQuaternion(roll, pitch, yaw float64) device.Quaternion {
	cy, sy := math.Cos(yaw*0.5), math.Sin(yaw*0.5)
	cp, sp := math.Cos(pitch*0.5), math.Sin(pitch*0.5)
	cr, sr := math.Cos(roll*0.5), math.Sin(roll*0.5)

	return device.Quaternion{
		W: cy*cp*cr + sy*sp*sr,
		X: cy*cp*sr - sy*sp*cr,
		Y: sy*cp*sr + cy*sp*cr,
		Z: sy*cp*cr - cy*sp*sr,
	}
}

func (s *Simulator) pickGesture(now time.Time) {
	if s.rng.Float64() < restProbability {
		s.gesture = device.GestureRest
	} else {
		active := ActiveGestures()
		s.gesture = active[s.rng.IntN(len(active))]
	}
	s.gestureStart = now
}

// checkGestureLocked re-rolls the gesture once it has been held for 2-8s and
// reports a gesture event when an active gesture replaced a different one.
func (s *Simulator) checkGestureLocked(now time.Time) (device.Gesture, bool) {
	age := now.Sub(s.gestureStart)
	hold := minGestureHold + time.Duration(s.rng.Float64()*float64(gestureHoldJitter))
	if age <= hold {
		return device.Gesture{}, false
	}

	previous := s.gesture
	s.pickGesture(now)
	if s.gesture == previous || s.gesture == device.GestureRest {
		return device.Gesture{}, false
	}
	return device.Gesture{
		Name:       s.gesture,
		Confidence: 0.75 + s.rng.Float64()*0.2,
		Timestamp:  now,
		Duration:   age,
	}, true
}
