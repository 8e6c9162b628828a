package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/http/request"
	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/metrics"
)

type Middleware struct {
	frontendURL string
}

// NewMiddleware returns middlewares allowing cross-origin calls from
// frontendURL only.
func NewMiddleware(frontendURL string) *Middleware {
	return &Middleware{frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (m *Middleware) HandleCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.frontendURL != "" {
			w.Header().Set("Access-Control-Allow-Origin", m.frontendURL)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "7200")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoggingRequest resolves the client address, logs every request and records
// its metrics under the matched route template.
func (m *Middleware) LoggingRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := request.FindClientIP(r)
		r = request.WithClientIP(r, clientIP)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		t1 := time.Now()
		defer func() {
			duration := time.Since(t1)
			route := request.RouteTemplate(r)
			metrics.RecordAPIRequest(r.Method, route, recorder.status, duration)
			log.Debug("Incoming request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.String("proto", r.Proto),
				zap.Int("status", recorder.status),
				zap.String("client_ip", clientIP),
				zap.Duration("duration", duration))
		}()

		next.ServeHTTP(recorder, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if !s.wroteHeader {
		s.status = status
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Flush lets streamed proxy responses through.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
