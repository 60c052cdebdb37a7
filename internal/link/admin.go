package link

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"tailscale.com/tsweb"

	"github.com/banshee-data/flightlink/internal/records"
)

//go:embed templates/*
var adminTemplateFS embed.FS

var sendControlsTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-controls.html.tmpl"))

// AttachAdminRoutes registers the link's debug pages under /debug/ on mux.
// These routes are meant for localhost or tailnet access only.
func AttachAdminRoutes(mux *http.ServeMux, l LinkInterface) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Telemetry frames", func() any {
		st := l.Stats()
		return fmt.Sprintf("%d (%s), %d malformed, %d dropped",
			st.FramesRead, humanize.Bytes(st.BytesRead), st.Malformed, st.Dropped)
	})
	debug.KVFunc("Last frame", func() any {
		st := l.Stats()
		if st.LastFrameTime.IsZero() {
			return "never"
		}
		return humanize.RelTime(st.LastFrameTime, time.Now(), "ago", "from now")
	})

	debug.HandleFunc("flightlink-latest", "most recent telemetry frame as JSON", func(w http.ResponseWriter, r *http.Request) {
		t, ok := l.Latest()
		if !ok {
			http.Error(w, "No telemetry received yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(t)
	})

	// Controls form plus live tail, backed by the two routes below.
	debug.HandleFunc("flightlink-send-controls", "send a controls frame to the vehicle", func(w http.ResponseWriter, r *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := sendControlsTemplate.Execute(buf, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		io.Copy(w, buf)
	})

	debug.HandleSilentFunc("flightlink-send-controls-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		c, err := parseControlsForm(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := l.SendControls(c); err != nil {
			http.Error(w, "Failed to write controls", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote controls %+v", c))
	})

	// Server-Sent Events stream of decoded frames.
	debug.HandleSilentFunc("flightlink-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := l.Subscribe()
		defer l.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case t, ok := <-c:
				if !ok {
					return
				}
				payload, err := json.Marshal(t)
				if err != nil {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	debug.HandleSilentFunc("flightlink-tail.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")

		f, err := adminTemplateFS.Open("templates/tail.js")
		if err != nil {
			http.Error(w, "Failed to open tail.js", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
}

// parseControlsForm reads a Controls frame from form values. Missing numeric
// fields are zero.
func parseControlsForm(r *http.Request) (records.Controls, error) {
	var c records.Controls
	if err := r.ParseForm(); err != nil {
		return c, err
	}

	float := func(name string, dst *float32) error {
		v := r.FormValue(name)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid %s %q", name, v)
		}
		*dst = float32(f)
		return nil
	}
	flag := func(name string) bool {
		v, _ := strconv.ParseBool(r.FormValue(name))
		return v
	}

	c.PowerOn = flag("power_on")
	c.Servo.FlagStart = flag("servo_start")
	for name, dst := range map[string]*float32{
		"throttle":    &c.Throttle,
		"tangaj":      &c.Pitch,
		"bank":        &c.Roll,
		"yaw":         &c.Yaw,
		"servo_freq":  &c.Servo.FreqMeander,
		"servo_angle": &c.Servo.Angle,
		"servo_speed": &c.Servo.SpeedOfChange,
	} {
		if err := float(name, dst); err != nil {
			return c, err
		}
	}
	if v := r.FormValue("servo_time_ms"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return c, fmt.Errorf("invalid servo_time_ms %q", v)
		}
		c.Servo.TimeworkMs = int32(ms)
	}
	if v := r.FormValue("servo_pin"); v != "" {
		pin, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return c, fmt.Errorf("invalid servo_pin %q", v)
		}
		c.Servo.Pin = uint8(pin)
	}
	return c, nil
}
