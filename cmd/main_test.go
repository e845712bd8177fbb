package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sleepywoodpecker/myo-goes-live/internal/device"
	"sleepywoodpecker/myo-goes-live/internal/metrics"
	"sleepywoodpecker/myo-goes-live/internal/processing"
)

// busySource emits EMG samples until its context is cancelled.
type busySource struct {
	emitted atomic.Int64
}

func (b *busySource) Run(ctx context.Context, cadence time.Duration, sink device.EventSink) error {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			sink.OnEMG(device.EMGSample{Channels: []float64{1, 2, 3, 4, 5, 6, 7, 8}, Timestamp: now})
			b.emitted.Add(1)
		}
	}
}

func (b *busySource) Vibrate(device.Vibration) {}

func TestStopFeedWritesEverySample(t *testing.T) {
	logger := zaptest.NewLogger(t)
	m := metrics.New()
	path := filepath.Join(t.TempDir(), "raw.csv")

	recorder := processing.NewRecorder(path, 100000, logger, m)
	src := &busySource{}
	session := processing.NewSession(20, src, logger, m, recorder)

	recordCtx, stopRecording := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, recorder.Run(recordCtx))
	}()

	session.Start(time.Millisecond)
	require.Eventually(t, func() bool { return src.emitted.Load() >= 20 }, time.Second, time.Millisecond)

	stopFeed(session, stopRecording, &wg)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Equal(t, int(src.emitted.Load()), len(lines)-1)
}
