package device

import (
	"fmt"
	"math"
	"strings"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
)

// EMG readings are signed 8-bit on the armband.
const (
	EMGMin = -128
	EMGMax = 127
)

// MalformedSampleError lists the corrections applied to an incoming event.
// The corrected event is still usable; the error only reports what was wrong.
type MalformedSampleError struct {
	Stream  string
	Reasons []string
}

func (e *MalformedSampleError) Error() string {
	return fmt.Sprintf("[device] malformed %s sample: %s", e.Stream, strings.Join(e.Reasons, "; "))
}

func (e *MalformedSampleError) add(format string, args ...any) {
	e.Reasons = append(e.Reasons, fmt.Sprintf(format, args...))
}

func (e *MalformedSampleError) orNil() error {
	if len(e.Reasons) == 0 {
		return nil
	}
	return e
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SanitizeEMG coerces an EMG sample into exactly buffer.EMGChannels readings.
// Missing channels read as 0, extra channels are dropped, non-finite values
// become 0 and everything is clamped to the 8-bit range.
func SanitizeEMG(s EMGSample) ([buffer.EMGChannels]float64, error) {
	var out [buffer.EMGChannels]float64
	bad := &MalformedSampleError{Stream: "emg"}

	if n := len(s.Channels); n != buffer.EMGChannels {
		bad.add("expected %d channels, got %d", buffer.EMGChannels, n)
	}
	for i := 0; i < buffer.EMGChannels && i < len(s.Channels); i++ {
		v := s.Channels[i]
		switch {
		case !finite(v):
			bad.add("channel %d is not finite", i)
			v = 0
		case v < EMGMin:
			bad.add("channel %d below range", i)
			v = EMGMin
		case v > EMGMax:
			bad.add("channel %d above range", i)
			v = EMGMax
		}
		out[i] = v
	}
	return out, bad.orNil()
}

// SanitizeIMU replaces non-finite components with 0.
func SanitizeIMU(s IMUSample) (IMUSample, error) {
	bad := &MalformedSampleError{Stream: "imu"}
	fix := func(name string, v *float64) {
		if !finite(*v) {
			bad.add("%s is not finite", name)
			*v = 0
		}
	}
	fix("acceleration.x", &s.Acceleration.X)
	fix("acceleration.y", &s.Acceleration.Y)
	fix("acceleration.z", &s.Acceleration.Z)
	fix("gyroscope.x", &s.Gyroscope.X)
	fix("gyroscope.y", &s.Gyroscope.Y)
	fix("gyroscope.z", &s.Gyroscope.Z)
	fix("orientation.w", &s.Orientation.W)
	fix("orientation.x", &s.Orientation.X)
	fix("orientation.y", &s.Orientation.Y)
	fix("orientation.z", &s.Orientation.Z)
	return s, bad.orNil()
}

// SanitizeStatus clamps the battery level to 0-100 and fills in a missing
// device name.
func SanitizeStatus(s Status) (Status, error) {
	bad := &MalformedSampleError{Stream: "status"}
	if s.BatteryLevel < 0 || s.BatteryLevel > 100 {
		bad.add("battery level %d out of range", s.BatteryLevel)
		s.BatteryLevel = min(max(s.BatteryLevel, 0), 100)
	}
	if s.DeviceName == "" {
		s.DeviceName = DefaultDeviceName
	}
	return s, bad.orNil()
}

// SanitizeGesture clamps confidence to 0-1.
func SanitizeGesture(g Gesture) (Gesture, error) {
	bad := &MalformedSampleError{Stream: "gesture"}
	switch {
	case !finite(g.Confidence):
		bad.add("confidence is not finite")
		g.Confidence = 0
	case g.Confidence < 0 || g.Confidence > 1:
		bad.add("confidence %.3f out of range", g.Confidence)
		g.Confidence = math.Min(math.Max(g.Confidence, 0), 1)
	}
	if g.Duration < 0 {
		bad.add("negative duration")
		g.Duration = 0
	}
	return g, bad.orNil()
}
