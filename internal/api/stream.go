package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sleepywoodpecker/myo-goes-live/internal/buffer"
	"sleepywoodpecker/myo-goes-live/internal/device"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Latest holds the newest value of every channel.
type Latest struct {
	EMG          [buffer.EMGChannels]float64        `json:"emg"`
	Acceleration [buffer.AxisChannels]float64       `json:"acceleration"`
	Gyroscope    [buffer.AxisChannels]float64       `json:"gyroscope"`
	Orientation  [buffer.QuaternionChannels]float64 `json:"orientation"`
}

type Frame struct {
	Type    string          `json:"type"`
	Status  device.Status   `json:"status"`
	Gesture *device.Gesture `json:"gesture"`
	Stats   buffer.Snapshot `json:"stats"`
	Latest  Latest          `json:"latest"`
}

func latestOf(sig *buffer.Signals) Latest {
	var l Latest
	for i, c := range sig.EMG {
		l.EMG[i] = c.Last()
	}
	for i := range sig.Acceleration {
		l.Acceleration[i] = sig.Acceleration[i].Last()
		l.Gyroscope[i] = sig.Gyroscope[i].Last()
	}
	for i, c := range sig.Orientation {
		l.Orientation[i] = c.Last()
	}
	return l
}

func (s *Server) frame() Frame {
	sig := s.session.Signals()
	return Frame{
		Type:    "frame",
		Status:  s.session.Status(),
		Gesture: s.session.CurrentGesture(),
		Stats:   sig.Stats(buffer.ChartWindow),
		Latest:  latestOf(sig),
	}
}

// stream pushes a Frame every stream interval until the client goes away.
// Frames are built from the newest snapshot, so a slow client simply sees
// fewer of them.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("[stream] upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Info("[stream] client connected", zap.String("remote", r.RemoteAddr))

	// the read loop only notices the close frame
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			s.logger.Info("[stream] client disconnected", zap.String("remote", r.RemoteAddr))
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(s.frame()); err != nil {
				s.logger.Debug("[stream] write failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
				return
			}
		}
	}
}
