package server

import (
	"log"
	"net/http"
	"time"
)

// metaTimeout caps the stats and version routes. They read local
// state only, so they never need the full write timeout the
// dashboard loads get.
const metaTimeout = 5 * time.Second

const timeoutMessage = "request timed out"

// routeTimeouts returns the timeout for routes that load from the
// session source and the one for metadata routes.
func (s *Server) routeTimeouts() (load, meta time.Duration) {
	load = s.cfg.WriteTimeout
	return load, min(load, metaTimeout)
}

// withTimeout bounds h by d. An overrun answers 503 with the same
// JSON error body writeError produces, and is logged with the
// route it hit. A non-positive d leaves h unbounded.
func (s *Server) withTimeout(
	d time.Duration, h http.HandlerFunc,
) http.Handler {
	inner := h
	if s.handlerDelay > 0 {
		delay := s.handlerDelay
		inner = func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			h(w, r)
		}
	}
	if d <= 0 {
		return inner
	}

	th := http.TimeoutHandler(inner, d, errorBody(timeoutMessage))
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			th.ServeHTTP(sw, r)
			if sw.status == http.StatusServiceUnavailable {
				log.Printf(
					"timeout: %s %s after %s", r.Method, r.URL.Path, d,
				)
			}
		},
	)
}

// statusWriter records the first status written through it and
// marks a 503 without a Content-Type as JSON. TimeoutHandler
// writes its body without setting one.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	h := w.ResponseWriter.Header()
	if code == http.StatusServiceUnavailable && h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
