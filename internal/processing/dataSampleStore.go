package processing

import (
	"slices"
	"sync"

	"sleepywoodpecker/myo-goes-live/internal/device"
)

const GestureHistoryLength = 10

// DeviceStateStore keeps the latest device status, the current gesture and
// the most recent gestures in arrival order.
type DeviceStateStore struct {
	status        device.Status
	current       *device.Gesture
	history       []device.Gesture
	historyLength int
	stateMutex    sync.Mutex
}

func NewDeviceStateStore(historyLength int) *DeviceStateStore {
	if historyLength <= 0 {
		historyLength = GestureHistoryLength
	}
	return &DeviceStateStore{
		status:        device.Status{DeviceName: device.DefaultDeviceName},
		historyLength: historyLength,
	}
}

func (d *DeviceStateStore) UpdateStatus(status device.Status) {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()

	d.status = status
}

// MarkDisconnected keeps the last battery and RSSI readings but clears the
// connected flag.
func (d *DeviceStateStore) MarkDisconnected() device.Status {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()

	d.status.Connected = false
	return d.status
}

func (d *DeviceStateStore) GetStatus() device.Status {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()

	return d.status
}

func (d *DeviceStateStore) AddGesture(g device.Gesture) {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()

	d.current = &g
	d.history = append(d.history, g)
	if over := len(d.history) - d.historyLength; over > 0 {
		d.history = slices.Clone(d.history[over:])
	}
}

// GetCurrentGesture returns nil until the first gesture arrives.
func (d *DeviceStateStore) GetCurrentGesture() *device.Gesture {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()

	if d.current == nil {
		return nil
	}
	g := *d.current
	return &g
}

func (d *DeviceStateStore) GetGestureHistory() []device.Gesture {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()

	return slices.Clone(d.history)
}
