package processing

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sleepywoodpecker/myo-goes-live/internal/device"
	"sleepywoodpecker/myo-goes-live/internal/metrics"
)

const DEFAULT_QUEUE_SIZE = 256

// IMU rows fill all ten value columns; EMG rows leave the last two empty.
const (
	csvHeader       = "stream,seq,timestamp_ms,v0,v1,v2,v3,v4,v5,v6,v7,v8,v9\n"
	csvValueColumns = 10
)

type rawRecord struct {
	stream      string
	timestampMs int64
	values      []float64
}

// Recorder appends every EMG and IMU sample it observes to a CSV file. It is
// an EventSink; samples are queued and written by Run so the feed never
// waits on disk. When the queue is full the sample is dropped.
type Recorder struct {
	Filename string
	queue    chan rawRecord
	logger   *zap.Logger
	metrics  *metrics.Metrics
	seq      uint64
}

func NewRecorder(filename string, queueSize int, logger *zap.Logger, m *metrics.Metrics) *Recorder {
	if queueSize <= 0 {
		queueSize = DEFAULT_QUEUE_SIZE
	}
	return &Recorder{
		Filename: filename,
		queue:    make(chan rawRecord, queueSize),
		logger:   logger,
		metrics:  m,
	}
}

func (r *Recorder) enqueue(rec rawRecord) {
	select {
	case r.queue <- rec:
	default:
		r.metrics.RecorderDropped()
	}
}

func (r *Recorder) OnEMG(s device.EMGSample) {
	r.enqueue(rawRecord{stream: "emg", timestampMs: s.Timestamp.UnixMilli(), values: s.Channels})
}

func (r *Recorder) OnIMU(s device.IMUSample) {
	values := make([]float64, 0, 10)
	values = append(values, s.Acceleration.X, s.Acceleration.Y, s.Acceleration.Z)
	values = append(values, s.Gyroscope.X, s.Gyroscope.Y, s.Gyroscope.Z)
	values = append(values, s.Orientation.W, s.Orientation.X, s.Orientation.Y, s.Orientation.Z)
	r.enqueue(rawRecord{stream: "imu", timestampMs: s.Timestamp.UnixMilli(), values: values})
}

func (r *Recorder) OnGesture(device.Gesture) {}

func (r *Recorder) OnDeviceStatus(device.Status) {}

// Run writes queued samples until ctx is done, then drains what is left.
func (r *Recorder) Run(ctx context.Context) error {
	file, err := os.OpenFile(r.Filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		r.logger.Error("[recorder] error opening a file", zap.Error(err), zap.String("outputFile", r.Filename))
		return fmt.Errorf("opening recorder file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	if _, err := io.WriteString(writer, csvHeader); err != nil {
		return fmt.Errorf("writing recorder header: %w", err)
	}

	for {
		select {
		case rec := <-r.queue:
			r.write(rec, writer)
		case <-ctx.Done():
			r.logger.Info("[recorder] received shutdown signal", zap.String("outputFile", r.Filename))
			for {
				select {
				case rec := <-r.queue:
					r.write(rec, writer)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Recorder) write(rec rawRecord, writer io.Writer) {
	if err := r.ProcessRecord(rec, writer); err != nil {
		r.logger.Warn(
			"[recorder] error writing sample",
			zap.Error(err),
			zap.String("stream", rec.stream),
			zap.String("outputFile", r.Filename),
		)
	}
}

// ProcessRecord formats one sample as a CSV row of fixed width.
func (r *Recorder) ProcessRecord(rec rawRecord, outStream io.Writer) error {
	r.seq++

	var b strings.Builder
	b.WriteString(rec.stream)
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(r.seq, 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(rec.timestampMs, 10))
	for i := 0; i < csvValueColumns; i++ {
		b.WriteByte(',')
		if i < len(rec.values) {
			b.WriteString(strconv.FormatFloat(rec.values[i], 'f', 4, 64))
		}
	}
	b.WriteByte('\n')

	_, err := io.WriteString(outStream, b.String())
	return err
}
