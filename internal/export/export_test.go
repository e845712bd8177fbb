package export

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
	"sleepywoodpecker/myo-goes-live/internal/device"
)

func sampleReport() Report {
	s := buffer.NewSignals(20).WithEMG([buffer.EMGChannels]float64{1, 2, 3, 4, 5, 6, 7, 8})
	return Report{
		SessionID: "abc",
		Timestamp: time.Unix(1700000000, 0),
		Status:    device.Status{Connected: true, BatteryLevel: 85, RSSI: -45, DeviceName: device.DefaultDeviceName},
		Stats:     s.Stats(buffer.DefaultWindow),
	}
}

func TestInfluxLine(t *testing.T) {
	line := InfluxLine(sampleReport())

	assert.True(t, strings.HasPrefix(line, "myostats,session=abc connected=true,battery=85i,rssi=-45i,"))
	assert.True(t, strings.HasSuffix(line, " 1700000000000000000\n"))
	assert.Contains(t, line, ",emg0_avg=1.000,")
	assert.Contains(t, line, ",emg7_max=8.000,")
	assert.Contains(t, line, ",acc_z_avg=0.000,")
	assert.Contains(t, line, ",quat_w_min=0.000")
	// measurement+tags, fields, timestamp
	assert.Len(t, strings.Fields(line), 3)
}

func TestUDPExporter(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer listener.Close()

	exp, err := NewUDPExporter(listener.LocalAddr().String())
	require.NoError(t, err)
	defer exp.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, exp.Export(ctx, sampleReport()))

	buf := make([]byte, 8192)
	require.NoError(t, listener.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, InfluxLine(sampleReport()), string(buf[:n]))
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (f *fakeToken) Wait() bool {
	<-f.done
	return true
}

func (f *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (f *fakeToken) Done() <-chan struct{} { return f.done }
func (f *fakeToken) Error() error { return f.err }

type fakePublisher struct {
	topic        string
	payload      []byte
	err          error
	hang         bool
	disconnected bool
}

func (f *fakePublisher) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	f.topic = topic
	f.payload = payload.([]byte)
	tok := &fakeToken{done: make(chan struct{}), err: f.err}
	if !f.hang {
		close(tok.done)
	}
	return tok
}

func (f *fakePublisher) Disconnect(uint) { f.disconnected = true }

func TestMQTTExporterPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	exp := newMQTTExporter(pub, "myo")

	require.NoError(t, exp.Export(context.Background(), sampleReport()))
	assert.Equal(t, "myo/stats", pub.topic)

	var got Report
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, 85, got.Status.BatteryLevel)

	require.NoError(t, exp.Close())
	assert.True(t, pub.disconnected)
}

func TestMQTTExporterErrors(t *testing.T) {
	exp := newMQTTExporter(&fakePublisher{err: errors.New("not connected")}, "myo")
	assert.EqualError(t, exp.Export(context.Background(), sampleReport()), "not connected")

	exp = newMQTTExporter(&fakePublisher{hang: true}, "myo")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, exp.Export(ctx, sampleReport()), context.DeadlineExceeded)
}

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaExporterKeysBySession(t *testing.T) {
	w := &fakeKafkaWriter{}
	exp := &KafkaExporter{writer: w}

	require.NoError(t, exp.Export(context.Background(), sampleReport()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("abc"), w.msgs[0].Key)
	assert.Equal(t, time.Unix(1700000000, 0), w.msgs[0].Time)

	var got Report
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, float64(8), got.Stats.EMG[7].Max)

	require.NoError(t, exp.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaExporterConfiguresWriter(t *testing.T) {
	exp := NewKafkaExporter([]string{"localhost:9092"}, "myo.stats")
	w, ok := exp.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "myo.stats", w.Topic)
	assert.Equal(t, "kafka", exp.Name())
}
