// Package config holds the runtime settings of the dashboard backend. Values
// start from defaults, can be overridden by MYO_* environment variables and
// finally by command line flags.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	DEFAULT_LISTEN_ADDR     = ":8080"
	DEFAULT_CAPACITY        = 200
	DEFAULT_CADENCE         = 50 * time.Millisecond
	DEFAULT_STREAM_INTERVAL = 100 * time.Millisecond
	DEFAULT_STATS_WINDOW    = 20
	DEFAULT_LOG_FILE        = "myo.logs"
	DEFAULT_LOG_LEVEL       = "info"
	DEFAULT_RECORDER_QUEUE  = 256
	DEFAULT_SAMPLE_INTERVAL = time.Second
	DEFAULT_MQTT_TOPIC      = "myo"
	DEFAULT_KAFKA_TOPIC     = "myo.stats"
)

const envPrefix = "MYO_"

type Config struct {
	ListenAddr     string
	Capacity       int
	Cadence        time.Duration
	AutoStart      bool
	StreamInterval time.Duration
	StatsWindow    int

	LogFile  string
	LogLevel string

	// RecordFile enables the raw CSV recorder when set.
	RecordFile    string
	RecorderQueue int

	SampleInterval time.Duration
	TelegrafAddr   string
	MQTTBroker     string
	MQTTTopic      string
	MQTTUsername   string
	MQTTPassword   string
	KafkaBrokers   []string
	KafkaTopic     string
}

func Default() Config {
	return Config{
		ListenAddr:     DEFAULT_LISTEN_ADDR,
		Capacity:       DEFAULT_CAPACITY,
		Cadence:        DEFAULT_CADENCE,
		AutoStart:      true,
		StreamInterval: DEFAULT_STREAM_INTERVAL,
		StatsWindow:    DEFAULT_STATS_WINDOW,
		LogFile:        DEFAULT_LOG_FILE,
		LogLevel:       DEFAULT_LOG_LEVEL,
		RecorderQueue:  DEFAULT_RECORDER_QUEUE,
		SampleInterval: DEFAULT_SAMPLE_INTERVAL,
		MQTTTopic:      DEFAULT_MQTT_TOPIC,
		KafkaTopic:     DEFAULT_KAFKA_TOPIC,
	}
}

// ApplyEnv overrides fields from MYO_* variables found through lookup,
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("LISTEN_ADDR", &c.ListenAddr)
	num("CAPACITY", &c.Capacity)
	dur("CADENCE", &c.Cadence)
	if v, ok := lookup(envPrefix + "AUTO_START"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sAUTO_START: %w", envPrefix, err))
		} else {
			c.AutoStart = b
		}
	}
	dur("STREAM_INTERVAL", &c.StreamInterval)
	num("STATS_WINDOW", &c.StatsWindow)
	str("LOG_FILE", &c.LogFile)
	str("LOG_LEVEL", &c.LogLevel)
	str("RECORD_FILE", &c.RecordFile)
	num("RECORDER_QUEUE", &c.RecorderQueue)
	dur("SAMPLE_INTERVAL", &c.SampleInterval)
	str("TELEGRAF_ADDR", &c.TelegrafAddr)
	str("MQTT_BROKER", &c.MQTTBroker)
	str("MQTT_TOPIC", &c.MQTTTopic)
	str("MQTT_USERNAME", &c.MQTTUsername)
	str("MQTT_PASSWORD", &c.MQTTPassword)
	if v, ok := lookup(envPrefix + "KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	str("KAFKA_TOPIC", &c.KafkaTopic)

	return errors.Join(errs...)
}

// BindFlags registers one persistent flag per field, defaulting to the
// current value of c.
func (c *Config) BindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "HTTP listen address")
	f.IntVar(&c.Capacity, "capacity", c.Capacity, "samples kept per channel")
	f.DurationVar(&c.Cadence, "cadence", c.Cadence, "simulated sample interval")
	f.BoolVar(&c.AutoStart, "auto-start", c.AutoStart, "start the feed on launch")
	f.DurationVar(&c.StreamInterval, "stream-interval", c.StreamInterval, "websocket frame interval")
	f.IntVar(&c.StatsWindow, "stats-window", c.StatsWindow, "samples per statistics window")
	f.StringVar(&c.LogFile, "log-file", c.LogFile, "path of the JSON log file")
	f.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	f.StringVar(&c.RecordFile, "record", c.RecordFile, "write raw samples to this CSV file")
	f.IntVar(&c.RecorderQueue, "recorder-queue", c.RecorderQueue, "recorder queue length")
	f.DurationVar(&c.SampleInterval, "sample-interval", c.SampleInterval, "statistics export interval")
	f.StringVar(&c.TelegrafAddr, "telegraf", c.TelegrafAddr, "telegraf UDP address for influx lines")
	f.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker URL")
	f.StringVar(&c.MQTTTopic, "mqtt-topic", c.MQTTTopic, "MQTT topic prefix")
	f.StringVar(&c.MQTTUsername, "mqtt-username", c.MQTTUsername, "MQTT username")
	f.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	f.StringSliceVar(&c.KafkaBrokers, "kafka-brokers", c.KafkaBrokers, "Kafka bootstrap brokers")
	f.StringVar(&c.KafkaTopic, "kafka-topic", c.KafkaTopic, "Kafka topic for statistics")
}

func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("capacity must be positive, got %d", c.Capacity))
	}
	if c.Cadence <= 0 {
		errs = append(errs, fmt.Errorf("cadence must be positive, got %s", c.Cadence))
	}
	if c.StreamInterval <= 0 {
		errs = append(errs, fmt.Errorf("stream interval must be positive, got %s", c.StreamInterval))
	}
	if c.StatsWindow <= 0 || c.StatsWindow > c.Capacity {
		errs = append(errs, fmt.Errorf("stats window must be in 1..%d, got %d", c.Capacity, c.StatsWindow))
	}
	if c.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("sample interval must be positive, got %s", c.SampleInterval))
	}
	if c.RecorderQueue <= 0 {
		errs = append(errs, fmt.Errorf("recorder queue must be positive, got %d", c.RecorderQueue))
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		errs = append(errs, errors.New("mqtt topic is empty"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("kafka topic is empty"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
