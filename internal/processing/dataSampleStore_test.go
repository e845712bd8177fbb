package processing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepywoodpecker/myo-goes-live/internal/device"
)

func TestGestureHistoryIsBounded(t *testing.T) {
	store := NewDeviceStateStore(0)
	base := time.Unix(0, 0)

	for i := 0; i < 15; i++ {
		store.AddGesture(device.Gesture{Name: device.GestureWaveIn, Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	history := store.GetGestureHistory()
	require.Len(t, history, 10)
	for i, g := range history {
		assert.Equal(t, base.Add(time.Duration(i+5)*time.Second), g.Timestamp)
	}
}

func TestGestureHistoryIsACopy(t *testing.T) {
	store := NewDeviceStateStore(3)
	store.AddGesture(device.Gesture{Name: device.GestureFist})

	history := store.GetGestureHistory()
	history[0].Name = "changed"

	assert.Equal(t, device.GestureFist, store.GetGestureHistory()[0].Name)
	assert.Equal(t, device.GestureFist, store.GetCurrentGesture().Name)
}

func TestMarkDisconnectedKeepsReadings(t *testing.T) {
	store := NewDeviceStateStore(3)
	assert.Equal(t, device.DefaultDeviceName, store.GetStatus().DeviceName)

	store.UpdateStatus(device.Status{Connected: true, BatteryLevel: 64, RSSI: -51, DeviceName: "armband"})
	status := store.MarkDisconnected()

	assert.False(t, status.Connected)
	assert.Equal(t, 64, status.BatteryLevel)
	assert.Equal(t, -51, store.GetStatus().RSSI)
}
