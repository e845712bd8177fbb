// Package device describes the events an armband feed produces and the sink
// interface that consumes them.
package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
)

const DefaultDeviceName = "Myo Armband"

// Gesture vocabulary.
const (
	GestureFist          = "Fist"
	GestureWaveIn        = "Wave In"
	GestureWaveOut       = "Wave Out"
	GestureFingersSpread = "Fingers Spread"
	GestureDoubleTap     = "Double Tap"
	GestureRest          = "Rest"
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Array() [buffer.AxisChannels]float64 {
	return [buffer.AxisChannels]float64{v.X, v.Y, v.Z}
}

type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (q Quaternion) Array() [buffer.QuaternionChannels]float64 {
	return [buffer.QuaternionChannels]float64{q.W, q.X, q.Y, q.Z}
}

// EMGSample is one reading of every EMG channel.
type EMGSample struct {
	Channels  []float64 `json:"channels"`
	Timestamp time.Time `json:"timestamp"`
}

// IMUSample is one inertial reading: acceleration in g, angular velocity in
// deg/s and orientation as a unit quaternion.
type IMUSample struct {
	Acceleration Vec3       `json:"acceleration"`
	Gyroscope    Vec3       `json:"gyroscope"`
	Orientation  Quaternion `json:"orientation"`
	Timestamp    time.Time  `json:"timestamp"`
}

type Status struct {
	Connected       bool   `json:"connected"`
	BatteryLevel    int    `json:"batteryLevel"`
	RSSI            int    `json:"rssi"`
	DeviceName      string `json:"deviceName"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
}

// Gesture is a recognized pose. On the wire Timestamp and Duration are
// epoch milliseconds, the shape dashboard clients read.
type Gesture struct {
	Name       string
	Confidence float64
	Timestamp  time.Time
	Duration   time.Duration
}

type gestureJSON struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
	Duration   int64   `json:"duration"`
}

func (g Gesture) MarshalJSON() ([]byte, error) {
	return json.Marshal(gestureJSON{
		Name:       g.Name,
		Confidence: g.Confidence,
		Timestamp:  g.Timestamp.UnixMilli(),
		Duration:   g.Duration.Milliseconds(),
	})
}

func (g *Gesture) UnmarshalJSON(b []byte) error {
	var raw gestureJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*g = Gesture{
		Name:       raw.Name,
		Confidence: raw.Confidence,
		Timestamp:  time.UnixMilli(raw.Timestamp),
		Duration:   time.Duration(raw.Duration) * time.Millisecond,
	}
	return nil
}

// Vibration is a haptic pulse length understood by the armband.
type Vibration string

const (
	VibrationShort  Vibration = "short"
	VibrationMedium Vibration = "medium"
	VibrationLong   Vibration = "long"
)

var ErrUnknownVibration = errors.New("unknown vibration type")

// ParseVibration accepts short, medium or long, ignoring case and
// surrounding whitespace.
func ParseVibration(s string) (Vibration, error) {
	switch v := Vibration(strings.ToLower(strings.TrimSpace(s))); v {
	case VibrationShort, VibrationMedium, VibrationLong:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVibration, s)
	}
}
