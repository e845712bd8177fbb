package buffer

import "math"

const (
	DefaultWindow = 20
	ChartWindow   = 10
)

// Stats summarizes the non-zero samples of a window. Zero samples are the
// placeholders a channel is initialized with, so they are skipped.
type Stats struct {
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// Compute returns the Stats of the non-zero values in samples. An empty or
// all-zero input yields the zero Stats.
func Compute(samples []float64) Stats {
	var (
		s   Stats
		sum float64
	)
	for _, v := range samples {
		if v == 0 {
			continue
		}
		if s.Count == 0 || v > s.Max {
			s.Max = v
		}
		if s.Count == 0 || v < s.Min {
			s.Min = v
		}
		sum += v
		s.Count++
	}
	if s.Count == 0 {
		return Stats{}
	}

	s.Avg = sum / float64(s.Count)
	var sq float64
	for _, v := range samples {
		if v == 0 {
			continue
		}
		d := v - s.Avg
		sq += d * d
	}
	s.Std = math.Sqrt(sq / float64(s.Count))
	return s
}

// Window computes Stats over the last w samples of c.
func Window(c Channel, w int) Stats {
	return Compute(c.Tail(w))
}

// Snapshot carries Stats for every channel of a Signals value.
type Snapshot struct {
	Window       int                       `json:"window"`
	EMG          [EMGChannels]Stats        `json:"emg"`
	Acceleration [AxisChannels]Stats       `json:"acceleration"`
	Gyroscope    [AxisChannels]Stats       `json:"gyroscope"`
	Orientation  [QuaternionChannels]Stats `json:"orientation"`
}

// Stats computes a Snapshot over the trailing w samples of every channel.
func (s *Signals) Stats(w int) Snapshot {
	snap := Snapshot{Window: w}
	for i := range s.EMG {
		snap.EMG[i] = Window(s.EMG[i], w)
	}
	for i := range s.Acceleration {
		snap.Acceleration[i] = Window(s.Acceleration[i], w)
	}
	for i := range s.Gyroscope {
		snap.Gyroscope[i] = Window(s.Gyroscope[i], w)
	}
	for i := range s.Orientation {
		snap.Orientation[i] = Window(s.Orientation[i], w)
	}
	return snap
}
