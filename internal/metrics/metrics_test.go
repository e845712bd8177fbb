package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"sleepywoodpecker/myo-goes-live/internal/device"
)

func TestCounters(t *testing.T) {
	m := New()

	m.SampleApplied("emg")
	m.SampleApplied("emg")
	m.SampleCorrected("imu")
	m.GestureReceived(device.GestureFist)
	m.RecorderDropped()
	m.ExportDone("udp", nil)
	m.ExportDone("udp", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.samplesTotal.WithLabelValues("emg")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.correctionsTotal.WithLabelValues("imu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gesturesTotal.WithLabelValues(device.GestureFist)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recorderDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("udp", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("udp", "error")))
}

func TestDeviceStatusGauges(t *testing.T) {
	m := New()
	m.DeviceStatus(device.Status{Connected: true, BatteryLevel: 77, RSSI: -52})

	assert.Equal(t, 77.0, testutil.ToFloat64(m.battery))
	assert.Equal(t, -52.0, testutil.ToFloat64(m.rssi))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))

	m.DeviceStatus(device.Status{})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))
}

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/signals", 200, 3*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/signals", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}
