package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sleepywoodpecker/myo-goes-live/internal/api"
	"sleepywoodpecker/myo-goes-live/internal/config"
	"sleepywoodpecker/myo-goes-live/internal/device"
	"sleepywoodpecker/myo-goes-live/internal/export"
	"sleepywoodpecker/myo-goes-live/internal/logger"
	"sleepywoodpecker/myo-goes-live/internal/metrics"
	"sleepywoodpecker/myo-goes-live/internal/processing"
	"sleepywoodpecker/myo-goes-live/internal/simulator"
)

const SHUTDOWN_TIMEOUT = 5 * time.Second

var version = "dev"

func main() {
	// environment first, so flags given on the command line win
	cfg := config.Default()
	envErr := cfg.ApplyEnv(os.LookupEnv)

	cmd := &cobra.Command{
		Use:   "myo-goes-live",
		Short: "Live EMG and IMU dashboard backend for a Myo armband",
		Long: `myo-goes-live keeps sliding windows of the eight EMG channels and the
IMU channels of an armband feed, serves them over HTTP and a websocket
stream, and periodically exports window statistics to telegraf, MQTT or
Kafka.

Settings can also be given as MYO_* environment variables; flags win.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return fmt.Errorf("reading environment: %w", envErr)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}
	cfg.BindFlags(cmd)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// first initialize the main logger
	log, err := logger.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	m := metrics.New()
	exporters, err := buildExporters(cfg, log)
	if err != nil {
		return err
	}
	sim := simulator.NewSimulator(log.Named("simulator"), rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))

	var wg sync.WaitGroup
	var observers []device.EventSink

	// the recorder outlives the feed so rows emitted during shutdown are written
	recordCtx, stopRecording := context.WithCancel(context.Background())
	defer stopRecording()
	if cfg.RecordFile != "" {
		recorder := processing.NewRecorder(cfg.RecordFile, cfg.RecorderQueue, log, m)
		observers = append(observers, recorder)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := recorder.Run(recordCtx); err != nil {
				log.Error("[main] recorder stopped", zap.Error(err))
			}
		}()
	}

	session := processing.NewSession(cfg.Capacity, sim, log, m, observers...)
	trainer := simulator.NewTrainer(log, session)

	sampler := processing.NewSampler(cfg.SampleInterval, cfg.StatsWindow, session, exporters, log, m)

	wg.Add(2)
	go func() {
		defer wg.Done()
		trainer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sampler.Run(ctx)
	}()

	if cfg.AutoStart {
		session.Start(cfg.Cadence)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(api.NewServer(session, trainer, m, log, cfg.StatsWindow, cfg.StreamInterval)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("[main] dashboard API listening", zap.String("addr", cfg.ListenAddr), zap.String("session", session.ID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("[main] received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			log.Error("[main] http server failed", zap.Error(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("[main] http shutdown", zap.Error(err))
	}

	stopFeed(session, stopRecording, &wg)
	return nil
}

// stopFeed stops the armband feed before the recorder so that every sample
// the feed emitted is written, then waits for the workers.
func stopFeed(session *processing.Session, stopRecording context.CancelFunc, wg *sync.WaitGroup) {
	session.Stop()
	stopRecording()
	wg.Wait()
}

func buildExporters(cfg config.Config, log *zap.Logger) ([]export.Exporter, error) {
	var exporters []export.Exporter

	if cfg.TelegrafAddr != "" {
		udp, err := export.NewUDPExporter(cfg.TelegrafAddr)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, udp)
	}

	if cfg.MQTTBroker != "" {
		mq, err := export.NewMQTTExporter(export.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, log)
		if err != nil {
			for _, e := range exporters {
				_ = e.Close()
			}
			return nil, err
		}
		exporters = append(exporters, mq)
	}

	if len(cfg.KafkaBrokers) > 0 {
		exporters = append(exporters, export.NewKafkaExporter(cfg.KafkaBrokers, cfg.KafkaTopic))
	}

	for _, e := range exporters {
		log.Info("[main] statistics exporter enabled", zap.String("exporter", e.Name()))
	}
	return exporters, nil
}
