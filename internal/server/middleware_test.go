package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		handler         http.HandlerFunc
		wantStatus      int
		wantContentType string
		wantBody        string
	}{
		{
			name: "TimeoutGetsJSONType",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(errorBody(timeoutMessage)))
			},
			wantStatus:      http.StatusServiceUnavailable,
			wantContentType: "application/json",
			wantBody:        errorBody(timeoutMessage),
		},
		{
			name: "KeepsExistingType",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("busy"))
			},
			wantStatus:      http.StatusServiceUnavailable,
			wantContentType: "text/plain",
			wantBody:        "busy",
		},
		{
			name: "ImplicitOK",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("ok"))
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "FirstStatusWins",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			sw := &statusWriter{ResponseWriter: w}
			tt.handler(sw, httptest.NewRequest("GET", "/", nil))

			assertRecorderStatus(t, w, tt.wantStatus)
			assert.Equal(t, tt.wantStatus, sw.status)
			if tt.wantContentType != "" {
				assert.Equal(t,
					tt.wantContentType, w.Header().Get("Content-Type"))
			} else {
				assert.NotEqual(t,
					"application/json", w.Header().Get("Content-Type"))
			}
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestRouteTimeouts(t *testing.T) {
	t.Parallel()

	load, meta := testServer(t, 30*time.Second).routeTimeouts()
	assert.Equal(t, 30*time.Second, load)
	assert.Equal(t, metaTimeout, meta)

	load, meta = testServer(t, 10*time.Millisecond).routeTimeouts()
	assert.Equal(t, 10*time.Millisecond, load)
	assert.Equal(t, 10*time.Millisecond, meta)
}

func TestWithTimeoutTriggersOnSlowHandler(t *testing.T) {
	t.Parallel()

	srv := testServer(t, time.Second)
	slow := func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}

	ts := httptest.NewServer(srv.withTimeout(10*time.Millisecond, slow))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/v1/summary")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	assertTimeoutResponse(t, resp)
}

func TestWithTimeoutNonPositiveIsUnbounded(t *testing.T) {
	t.Parallel()

	srv := testServer(t, time.Second)
	h := srv.withTimeout(0, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		writeJSON(w, http.StatusCreated, map[string]string{"ok": "yes"})
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assertRecorderStatus(t, w, http.StatusCreated)
}

// TestRoutesTimeoutWiring checks that every API route except
// import is bounded by the timeout middleware.
func TestRoutesTimeoutWiring(t *testing.T) {
	t.Parallel()

	// A 100ms handler delay against a 10ms timeout always
	// overruns regardless of timer resolution.
	srv := testServerOpts(
		t, 10*time.Millisecond,
		withHandlerDelay(100*time.Millisecond),
	)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	t.Run("WrappedRoutesTimeout", func(t *testing.T) {
		wrapped := []struct {
			name   string
			method string
			path   string
		}{
			{"ListSessions", "GET", "/api/v1/sessions?userId=u1"},
			{"GetSession", "GET", "/api/v1/sessions/s1"},
			{"Summary", "GET", "/api/v1/summary?userId=u1"},
			{"Dashboard", "GET", "/api/v1/dashboard?userId=u1"},
			{"Select", "POST", "/api/v1/dashboard/select"},
			{"Refresh", "POST", "/api/v1/dashboard/refresh?userId=u1"},
			{"GetStats", "GET", "/api/v1/stats"},
			{"Version", "GET", "/api/v1/version"},
		}

		for _, tt := range wrapped {
			t.Run(tt.name, func(t *testing.T) {
				req, err := http.NewRequest(
					tt.method, ts.URL+tt.path,
					strings.NewReader(`{"userId":"u1"}`),
				)
				if err != nil {
					t.Fatalf("building request: %v", err)
				}
				resp, err := ts.Client().Do(req)
				if err != nil {
					t.Fatalf("request failed: %v", err)
				}
				defer resp.Body.Close()

				if !isTimeoutResponse(t, resp) {
					body, _ := io.ReadAll(resp.Body)
					t.Errorf(
						"%s %s: expected timeout 503, got %d: %s",
						tt.method, tt.path, resp.StatusCode, body,
					)
				}
			})
		}
	})

	t.Run("ImportNotWrapped", func(t *testing.T) {
		resp, err := ts.Client().Post(
			ts.URL+"/api/v1/import", "application/json", nil,
		)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if isTimeoutResponse(t, resp) {
			t.Error("unexpected timeout for unwrapped route")
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf(
				"status = %d, want %d",
				resp.StatusCode, http.StatusNotFound,
			)
		}
	})
}
