package processing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
	"sleepywoodpecker/myo-goes-live/internal/device"
	"sleepywoodpecker/myo-goes-live/internal/export"
	"sleepywoodpecker/myo-goes-live/internal/metrics"
)

// StatsSource is the read side of a Session the sampler needs.
type StatsSource interface {
	ID() string
	Status() device.Status
	Stats(window int) buffer.Snapshot
}

// Sampler periodically snapshots the session statistics and hands them to
// every exporter. A failing exporter is logged and skipped; it never stops
// the others.
type Sampler struct {
	samplingInterval time.Duration
	window           int
	source           StatsSource
	exporters        []export.Exporter
	logger           *zap.Logger
	metrics          *metrics.Metrics
}

func NewSampler(samplingInterval time.Duration, window int, source StatsSource, exporters []export.Exporter, logger *zap.Logger, m *metrics.Metrics) *Sampler {
	return &Sampler{
		samplingInterval: samplingInterval,
		window:           window,
		source:           source,
		exporters:        exporters,
		logger:           logger,
		metrics:          m,
	}
}

func (s *Sampler) SampleAndExport(ctx context.Context, now time.Time) export.Report {
	report := export.Report{
		SessionID: s.source.ID(),
		Timestamp: now,
		Status:    s.source.Status(),
		Stats:     s.source.Stats(s.window),
	}

	for _, exp := range s.exporters {
		exportCtx, cancel := context.WithTimeout(ctx, s.samplingInterval)
		err := exp.Export(exportCtx, report)
		cancel()

		s.metrics.ExportDone(exp.Name(), err)
		if err != nil {
			s.logger.Warn("[sampler] error exporting statistics", zap.Error(err), zap.String("exporter", exp.Name()))
		} else {
			s.logger.Debug("[sampler] exported statistics", zap.String("exporter", exp.Name()))
		}
	}
	return report
}

// Run samples every interval until ctx is done, then closes the exporters.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.samplingInterval)
	defer ticker.Stop()
	defer s.close()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("[sampler] received shutdown signal")
			return
		case now := <-ticker.C:
			s.SampleAndExport(ctx, now)
		}
	}
}

func (s *Sampler) close() {
	for _, exp := range s.exporters {
		if err := exp.Close(); err != nil {
			s.logger.Warn("[sampler] error closing exporter", zap.Error(err), zap.String("exporter", exp.Name()))
		}
	}
}
