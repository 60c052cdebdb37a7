// Command flight-replay decodes telemetry from a pcap capture and, unless
// -dry-run is set, records it as a new session in the flight DB.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/flightlink/internal/attitude"
	"github.com/banshee-data/flightlink/internal/config"
	"github.com/banshee-data/flightlink/internal/flightdb"
	"github.com/banshee-data/flightlink/internal/monitoring"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/replay"
	"github.com/banshee-data/flightlink/internal/vecmath"
	"github.com/banshee-data/flightlink/internal/version"
)

var (
	pcapFile    = flag.String("pcap", "", "Capture file to replay (.pcap or .pcapng)")
	udpPort     = flag.Int("udp-port", 0, "UDP port carrying telemetry (default from config)")
	configPath  = flag.String("config", "", "Path to a .json or .yaml link config")
	dbFlag      = flag.String("db", "", "SQLite flight log path, overrides the config")
	calibrate   = flag.Int("calibrate", 0, "Estimate the gyro offset from the first N frames instead of the config")
	dryRun      = flag.Bool("dry-run", false, "Decode and report stats without writing to the DB")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

var errEnoughSamples = errors.New("enough calibration samples")

// calibrationOffset averages the raw gyro reading of the first n frames.
func calibrationOffset(ctx context.Context, path string, port, n int) (vecmath.Vector3d, error) {
	samples := make([]records.Gyroscope, 0, n)
	_, err := replay.ReadFile(ctx, path, port, func(f replay.Frame) error {
		samples = append(samples, f.Telemetry.Gyroscope)
		if len(samples) >= n {
			return errEnoughSamples
		}
		return nil
	})
	if err != nil && !errors.Is(err, errEnoughSamples) {
		return vecmath.Vector3d{}, err
	}
	if len(samples) < n {
		monitoring.Logf("calibration: only %d of %d frames available", len(samples), n)
	}
	return attitude.EstimateGyroOffset(samples), nil
}

type replayOptions struct {
	path      string
	udpPort   int
	offset    vecmath.Vector3d
	calibrate int
	recordRaw bool
}

// replayInto records the capture as a new session when db is non-nil and
// returns the session ID, if any, with the replay stats.
func replayInto(ctx context.Context, db *flightdb.DB, o replayOptions) (string, replay.Stats, error) {
	offset := o.offset
	if o.calibrate > 0 {
		var err error
		offset, err = calibrationOffset(ctx, o.path, o.udpPort, o.calibrate)
		if err != nil {
			return "", replay.Stats{}, fmt.Errorf("calibrate: %w", err)
		}
		monitoring.Logf("calibration: gyro offset %v", offset)
	}

	if db == nil {
		st, err := replay.ReadFile(ctx, o.path, o.udpPort, func(replay.Frame) error { return nil })
		return "", st, err
	}

	var (
		sess *flightdb.Session
		rec  *flightdb.Recorder
	)
	st, err := replay.ReadFile(ctx, o.path, o.udpPort, func(f replay.Frame) error {
		if sess == nil {
			var err error
			sess, err = db.StartSession(monitoring.SourceReplay, f.CaptureTime)
			if err != nil {
				return err
			}
			rec = db.NewRecorder(sess.ID, offset, o.recordRaw)
		}
		return rec.Record(f.Telemetry, f.CaptureTime)
	})
	if sess == nil {
		return "", st, err
	}
	if endErr := db.EndSession(sess.ID, time.Now()); endErr != nil && err == nil {
		err = endErr
	}
	return sess.ID, st, err
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("flight-replay"))
		return
	}
	if *pcapFile == "" {
		log.Fatal("-pcap is required")
	}

	cfg := config.DefaultLinkConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadLinkConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	o := replayOptions{
		path:      *pcapFile,
		udpPort:   cfg.GetReplayUDPPort(),
		offset:    cfg.GetGyroOffset(),
		calibrate: *calibrate,
		recordRaw: cfg.GetRecordRaw(),
	}
	if *udpPort > 0 {
		o.udpPort = *udpPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *flightdb.DB
	if !*dryRun {
		dbPath := cfg.GetDBPath()
		if *dbFlag != "" {
			dbPath = *dbFlag
		}
		var err error
		db, err = flightdb.Open(dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
	}

	sessionID, st, err := replayInto(ctx, db, o)
	if err != nil {
		log.Printf("replay failed: %v", err)
		if db != nil {
			db.Close()
		}
		os.Exit(1)
	}
	fmt.Println(st)
	if sessionID != "" {
		fmt.Printf("recorded session %s\n", sessionID)
	}
}
