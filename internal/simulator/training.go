package simulator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"sleepywoodpecker/myo-goes-live/internal/device"
)

type Phase string

const (
	PhaseReady     Phase = "ready"
	PhaseCountdown Phase = "countdown"
	PhaseRecording Phase = "recording"
	PhaseComplete  Phase = "complete"
)

const (
	TrainingStep      = 100 * time.Millisecond
	SamplesToComplete = 3

	countdownFrom   = 3
	stepsPerSecond  = int(time.Second / TrainingStep)
	progressPerStep = 2
	completeHold    = 2 * stepsPerSecond
)

var (
	ErrTrainingBusy   = errors.New("training already in progress")
	ErrUnknownGesture = errors.New("unknown gesture")
	ErrDisconnected   = errors.New("armband is not connected")
)

// Armband is the device a Trainer records from and cues the wearer with.
type Armband interface {
	Running() bool
	Vibrate(device.Vibration) error
}

type TrainingRecord struct {
	Gesture   string `json:"gesture"`
	Samples   int    `json:"samples"`
	Completed bool   `json:"completed"`
}

type TrainingState struct {
	Phase     Phase            `json:"phase"`
	Gesture   string           `json:"gesture,omitempty"`
	Countdown int              `json:"countdown"`
	Progress  int              `json:"progress"`
	Overall   float64          `json:"overall"`
	Records   []TrainingRecord `json:"records"`
}

// Trainer walks the wearer through recording a gesture:
// ready -> countdown(3,2,1) -> recording(0-100%) -> complete -> ready.
// It advances one Step every TrainingStep.
type Trainer struct {
	logger  *zap.Logger
	armband Armband

	mu        sync.Mutex
	phase     Phase
	gesture   string
	countdown int
	progress  int
	ticks     int
	records   []TrainingRecord
}

func NewTrainer(logger *zap.Logger, armband Armband) *Trainer {
	t := &Trainer{
		logger:  logger,
		armband: armband,
		phase:   PhaseReady,
	}
	t.resetRecords()
	return t
}

func (t *Trainer) resetRecords() {
	active := ActiveGestures()
	t.records = make([]TrainingRecord, len(active))
	for i, name := range active {
		t.records[i] = TrainingRecord{Gesture: name}
	}
}

// Begin starts the countdown for gesture. The armband must be connected.
func (t *Trainer) Begin(gesture string) error {
	connected := t.armband.Running()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseReady {
		return ErrTrainingBusy
	}
	if !connected {
		return ErrDisconnected
	}
	if t.recordLocked(gesture) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownGesture, gesture)
	}

	t.phase = PhaseCountdown
	t.gesture = gesture
	t.countdown = countdownFrom
	t.progress = 0
	t.ticks = 0
	t.logger.Info("[trainer] countdown started", zap.String("gesture", gesture))
	return nil
}

// Step advances the state machine by one TrainingStep. A countdown or
// recording in progress is abandoned when the armband disconnects, and no
// sample is counted for it.
func (t *Trainer) Step() {
	connected := t.armband.Running()

	t.mu.Lock()
	var cues []device.Vibration

	if !connected && (t.phase == PhaseCountdown || t.phase == PhaseRecording) {
		t.logger.Warn("[trainer] armband disconnected, abandoning run", zap.String("gesture", t.gesture))
		t.phase = PhaseReady
		t.gesture = ""
		t.countdown = 0
		t.progress = 0
		t.ticks = 0
	}

	switch t.phase {
	case PhaseCountdown:
		t.ticks++
		if t.ticks < stepsPerSecond {
			break
		}
		t.ticks = 0
		if t.countdown <= 1 {
			t.countdown = 0
			t.phase = PhaseRecording
			t.progress = 0
			cues = append(cues, device.VibrationMedium)
			t.logger.Info("[trainer] recording", zap.String("gesture", t.gesture))
			break
		}
		t.countdown--
		cues = append(cues, device.VibrationShort)

	case PhaseRecording:
		t.progress += progressPerStep
		if t.progress < 100 {
			break
		}
		t.progress = 100
		cues = append(cues, device.VibrationLong)
		rec := t.recordLocked(t.gesture)
		rec.Samples++
		rec.Completed = rec.Samples >= SamplesToComplete
		t.phase = PhaseComplete
		t.ticks = 0
		t.logger.Info("[trainer] sample recorded",
			zap.String("gesture", rec.Gesture),
			zap.Int("samples", rec.Samples),
			zap.Bool("completed", rec.Completed),
		)

	case PhaseComplete:
		t.ticks++
		if t.ticks >= completeHold {
			t.phase = PhaseReady
			t.gesture = ""
			t.progress = 0
			t.ticks = 0
		}
	}
	t.mu.Unlock()

	for _, v := range cues {
		if err := t.armband.Vibrate(v); err != nil {
			t.logger.Debug("[trainer] vibration cue skipped", zap.String("type", string(v)), zap.Error(err))
		}
	}
}

// Run steps the trainer until ctx is done.
func (t *Trainer) Run(ctx context.Context) {
	ticker := time.NewTicker(TrainingStep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Step()
		}
	}
}

// Reset clears the recorded samples. An in-flight session keeps running.
func (t *Trainer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetRecords()
}

func (t *Trainer) State() TrainingState {
	t.mu.Lock()
	defer t.mu.Unlock()

	completed := 0
	for _, r := range t.records {
		if r.Completed {
			completed++
		}
	}
	overall := 0.0
	if len(t.records) > 0 {
		overall = float64(completed) / float64(len(t.records)) * 100
	}
	return TrainingState{
		Phase:     t.phase,
		Gesture:   t.gesture,
		Countdown: t.countdown,
		Progress:  t.progress,
		Overall:   overall,
		Records:   slices.Clone(t.records),
	}
}

func (t *Trainer) recordLocked(gesture string) *TrainingRecord {
	for i := range t.records {
		if t.records[i].Gesture == gesture {
			return &t.records[i]
		}
	}
	return nil
}
