package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter registers every route on a mux router and wraps it with access
// logging, CORS and panic recovery.
func NewRouter(s *Server) http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/status", s.status).Methods(http.MethodGet)
	a.HandleFunc("/signals", s.signals).Methods(http.MethodGet)
	a.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	a.HandleFunc("/gesture", s.gesture).Methods(http.MethodGet)
	a.HandleFunc("/gestures", s.gestures).Methods(http.MethodGet)
	a.HandleFunc("/connect", s.connect).Methods(http.MethodPost)
	a.HandleFunc("/disconnect", s.disconnect).Methods(http.MethodPost)
	a.HandleFunc("/vibrate", s.vibrate).Methods(http.MethodPost)
	a.HandleFunc("/reset", s.reset).Methods(http.MethodPost)
	a.HandleFunc("/training", s.training).Methods(http.MethodGet)
	a.HandleFunc("/training/start", s.trainingStart).Methods(http.MethodPost)
	a.HandleFunc("/training/reset", s.trainingReset).Methods(http.MethodPost)
	a.HandleFunc("/stream", s.stream).Methods(http.MethodGet)

	accessLog := zap.NewStdLog(s.logger.Named("http")).Writer()
	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}))(h)
	return handlers.LoggingHandler(accessLog, h)
}

// observe records request count and latency per route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.metrics.ObserveHTTP(route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

type recoveryLogger struct {
	logger *zap.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("[api] recovered from panic", zap.Any("panic", v))
}
