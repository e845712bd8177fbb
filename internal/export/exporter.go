// Package export ships periodic statistics reports to external collectors.
package export

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
	"sleepywoodpecker/myo-goes-live/internal/device"
)

const Measurement = "myostats"

// Report is one statistics snapshot of a session.
type Report struct {
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Status    device.Status   `json:"status"`
	Stats     buffer.Snapshot `json:"stats"`
}

type Exporter interface {
	Name() string
	Export(ctx context.Context, r Report) error
	Close() error
}

var (
	axisNames       = [buffer.AxisChannels]string{"x", "y", "z"}
	quaternionNames = [buffer.QuaternionChannels]string{"w", "x", "y", "z"}
)

func writeStats(b *strings.Builder, prefix string, s buffer.Stats) {
	fmt.Fprintf(b, ",%s_avg=%.3f,%s_std=%.3f,%s_max=%.3f,%s_min=%.3f",
		prefix, s.Avg, prefix, s.Std, prefix, s.Max, prefix, s.Min)
}

// InfluxLine renders r in InfluxDB line protocol.
func InfluxLine(r Report) string {
	var b strings.Builder
	b.WriteString(Measurement)
	b.WriteString(",session=")
	b.WriteString(r.SessionID)
	b.WriteString(" connected=")
	b.WriteString(strconv.FormatBool(r.Status.Connected))
	fmt.Fprintf(&b, ",battery=%di,rssi=%di", r.Status.BatteryLevel, r.Status.RSSI)

	for i, s := range r.Stats.EMG {
		writeStats(&b, "emg"+strconv.Itoa(i), s)
	}
	for i, s := range r.Stats.Acceleration {
		writeStats(&b, "acc_"+axisNames[i], s)
	}
	for i, s := range r.Stats.Gyroscope {
		writeStats(&b, "gyro_"+axisNames[i], s)
	}
	for i, s := range r.Stats.Orientation {
		writeStats(&b, "quat_"+quaternionNames[i], s)
	}

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(r.Timestamp.UnixNano(), 10))
	b.WriteByte('\n')
	return b.String()
}
