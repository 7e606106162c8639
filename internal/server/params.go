package server

import (
	"net/http"
	"time"

	"github.com/wesm/interviewlens/internal/record"
	"github.com/wesm/interviewlens/internal/view"
)

// identityParam reads the user identity from the userId and
// email query parameters.
func identityParam(r *http.Request) record.Identity {
	q := r.URL.Query()
	return record.Identity{
		UserID: q.Get("userId"),
		Email:  q.Get("email"),
	}.Normalize()
}

// viewOptions reads the display timezone from the query,
// defaulting to the configured one. It writes a 400 and returns
// false when the zone is unknown.
func (s *Server) viewOptions(
	w http.ResponseWriter, r *http.Request,
) (view.Options, bool) {
	tz := r.URL.Query().Get("timezone")
	if tz == "" {
		tz = s.cfg.Timezone
	}
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		writeError(w, http.StatusBadRequest, "invalid timezone: "+tz)
		return view.Options{}, false
	}
	return view.Options{Timezone: tz}, true
}
