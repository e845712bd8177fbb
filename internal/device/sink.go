package device

// EventSink receives the events of an armband feed. Implementations must not
// assume a fixed interval between calls.
type EventSink interface {
	OnEMG(EMGSample)
	OnIMU(IMUSample)
	OnGesture(Gesture)
	OnDeviceStatus(Status)
}

// Sinks forwards every event to each of its members in order.
type Sinks []EventSink

func (s Sinks) OnEMG(sample EMGSample) {
	for _, sink := range s {
		sink.OnEMG(sample)
	}
}

func (s Sinks) OnIMU(sample IMUSample) {
	for _, sink := range s {
		sink.OnIMU(sample)
	}
}

func (s Sinks) OnGesture(g Gesture) {
	for _, sink := range s {
		sink.OnGesture(g)
	}
}

func (s Sinks) OnDeviceStatus(status Status) {
	for _, sink := range s {
		sink.OnDeviceStatus(status)
	}
}
