// Package api serves the dashboard over HTTP: JSON reads of the live session,
// control endpoints, gesture training and a websocket frame stream.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sleepywoodpecker/myo-goes-live/internal/device"
	"sleepywoodpecker/myo-goes-live/internal/metrics"
	"sleepywoodpecker/myo-goes-live/internal/processing"
	"sleepywoodpecker/myo-goes-live/internal/simulator"
)

type Server struct {
	session        *processing.Session
	trainer        *simulator.Trainer
	metrics        *metrics.Metrics
	logger         *zap.Logger
	statsWindow    int
	streamInterval time.Duration
}

func NewServer(session *processing.Session, trainer *simulator.Trainer, m *metrics.Metrics, logger *zap.Logger, statsWindow int, streamInterval time.Duration) *Server {
	return &Server{
		session:        session,
		trainer:        trainer,
		metrics:        m,
		logger:         logger,
		statsWindow:    statsWindow,
		streamInterval: streamInterval,
	}
}

type statusResponse struct {
	SessionID string        `json:"sessionId"`
	Running   bool          `json:"running"`
	Status    device.Status `json:"status"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		SessionID: s.session.ID(),
		Running:   s.session.Running(),
		Status:    s.session.Status(),
	})
}

func (s *Server) signals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Signals())
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	window := s.statsWindow
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive integer")
			return
		}
		window = n
	}
	writeJSON(w, http.StatusOK, s.session.Stats(window))
}

func (s *Server) gesture(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.CurrentGesture())
}

func (s *Server) gestures(w http.ResponseWriter, r *http.Request) {
	history := s.session.GestureHistory()
	if history == nil {
		history = []device.Gesture{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Interval string `json:"interval"`
	}
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var cadence time.Duration
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "interval must be a positive duration such as 50ms")
			return
		}
		cadence = d
	}

	s.session.Start(cadence)
	s.logger.Info("[api] connect requested", zap.Duration("cadence", cadence))
	s.status(w, r)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	s.session.Stop()
	s.logger.Info("[api] disconnect requested")
	s.status(w, r)
}

func (s *Server) vibrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	v, err := device.ParseVibration(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.session.Vibrate(v); err != nil {
		if errors.Is(err, processing.ErrNotConnected) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) training(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.trainer.State())
}

func (s *Server) trainingStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Gesture string `json:"gesture"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	switch err := s.trainer.Begin(strings.TrimSpace(req.Gesture)); {
	case errors.Is(err, simulator.ErrUnknownGesture):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, simulator.ErrTrainingBusy), errors.Is(err, simulator.ErrDisconnected):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, s.trainer.State())
	}
}

func (s *Server) trainingReset(w http.ResponseWriter, r *http.Request) {
	s.trainer.Reset()
	writeJSON(w, http.StatusOK, s.trainer.State())
}

// decodeOptional decodes a JSON body, treating an empty body as no fields.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
