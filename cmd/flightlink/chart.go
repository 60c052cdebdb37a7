package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/banshee-data/flightlink/internal/flightdb"
	"github.com/banshee-data/flightlink/internal/report"
)

// chartHandler renders a session as an echarts page. The session query
// parameter selects one; it defaults to the live session.
func chartHandler(db *flightdb.DB, liveSession string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		if id == "" {
			id = liveSession
		}
		sess, err := db.GetSession(id)
		if errors.Is(err, flightdb.ErrNotFound) {
			http.Error(w, "Unknown session", http.StatusNotFound)
			return
		} else if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		samples, err := db.TelemetrySamples(sess.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		err = report.RenderHTML(&buf, samples, report.ChartOptions{Title: "Session " + sess.ID})
		if errors.Is(err, report.ErrNoSamples) {
			http.Error(w, "No telemetry recorded for this session yet", http.StatusNotFound)
			return
		} else if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.Copy(w, &buf)
	})
}
