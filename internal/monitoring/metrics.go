package monitoring

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Frame sources used as the "source" label.
const (
	SourceSerial = "serial"
	SourceReplay = "replay"
)

var (
	FramesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlink_frames_decoded_total",
			Help: "Telemetry frames decoded.",
		},
		[]string{"source"},
	)

	FramesMalformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlink_frames_malformed_total",
			Help: "Telemetry payloads that were short or not a whole number of frames.",
		},
		[]string{"source"},
	)

	ControlsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flightlink_controls_sent_total",
		Help: "Controls frames written to the link.",
	})

	SubscriberDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flightlink_subscriber_drops_total",
		Help: "Frames dropped because a subscriber channel was full.",
	})

	RowsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlink_rows_recorded_total",
			Help: "Rows written to the flight database.",
		},
		[]string{"table"},
	)

	LastCourse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightlink_last_course_degrees",
		Help: "Course reported by the most recent telemetry frame.",
	})

	TelemetryStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightlink_grpc_telemetry_streams",
		Help: "Open gRPC telemetry streams.",
	})
)

// Collectors returns every flightlink collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		FramesDecoded, FramesMalformed, ControlsSent, SubscriberDrops, RowsRecorded, LastCourse,
		TelemetryStreams,
	}
}

// Register adds every flightlink collector to r. Collectors that are already
// registered with r are skipped.
func Register(r prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
