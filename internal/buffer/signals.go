package buffer

const (
	EMGChannels        = 8
	AxisChannels       = 3
	QuaternionChannels = 4
)

// Signals groups the sliding windows of every armband channel. All channels
// share MaxLength. Updates return a new Signals; groups that were not part of
// the update keep pointing at the same windows as before.
type Signals struct {
	EMG          [EMGChannels]Channel        `json:"emg"`
	Acceleration [AxisChannels]Channel       `json:"acceleration"`
	Gyroscope    [AxisChannels]Channel       `json:"gyroscope"`
	Orientation  [QuaternionChannels]Channel `json:"orientation"`
	MaxLength    int                         `json:"maxLength"`
}

// NewSignals creates zero-filled windows of length n for every channel.
// A non-positive n falls back to DefaultCapacity.
func NewSignals(n int) *Signals {
	if n <= 0 {
		n = DefaultCapacity
	}
	s := &Signals{MaxLength: n}
	for i := range s.EMG {
		s.EMG[i] = NewChannel(n)
	}
	for i := range s.Acceleration {
		s.Acceleration[i] = NewChannel(n)
		s.Gyroscope[i] = NewChannel(n)
	}
	for i := range s.Orientation {
		s.Orientation[i] = NewChannel(n)
	}
	return s
}

// WithEMG pushes one reading into each of the EMG channels.
func (s *Signals) WithEMG(channels [EMGChannels]float64) *Signals {
	next := *s
	for i := range next.EMG {
		next.EMG[i] = s.EMG[i].Push(channels[i])
	}
	return &next
}

// WithIMU pushes one acceleration, gyroscope and orientation reading as a
// single unit. Orientation is ordered w, x, y, z.
func (s *Signals) WithIMU(acc, gyro [AxisChannels]float64, orientation [QuaternionChannels]float64) *Signals {
	next := *s
	for i := range next.Acceleration {
		next.Acceleration[i] = s.Acceleration[i].Push(acc[i])
		next.Gyroscope[i] = s.Gyroscope[i].Push(gyro[i])
	}
	for i := range next.Orientation {
		next.Orientation[i] = s.Orientation[i].Push(orientation[i])
	}
	return &next
}
