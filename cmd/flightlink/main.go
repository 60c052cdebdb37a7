package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/flightlink/internal/config"
	"github.com/banshee-data/flightlink/internal/flightdb"
	"github.com/banshee-data/flightlink/internal/link"
	"github.com/banshee-data/flightlink/internal/monitoring"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Run against a simulated vehicle instead of a serial port")
	listen      = flag.String("listen", ":8080", "Listen address")
	grpcListen  = flag.String("grpc-listen", "localhost:50051", "gRPC telemetry stream listen address (empty to disable)")
	configPath  = flag.String("config", "", "Path to a .json or .yaml link config (default "+config.DefaultConfigPath+" if present)")
	portFlag    = flag.String("port", "", "Serial port to use, overrides the config; \"none\" serves the DB without a vehicle (ignored in dev mode)")
	dbFlag      = flag.String("db", "", "SQLite flight log path, overrides the config")
	capturePath = flag.String("capture", "", "Also write received frames to this pcap file")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func loadConfig() (*config.LinkConfig, error) {
	path := *configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.DefaultLinkConfig(), nil
		}
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadLinkConfig(path)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded link config from %s", path)
	return cfg, nil
}

func openLink(cfg *config.LinkConfig) (link.LinkInterface, string, error) {
	if *devMode {
		return link.New(link.NewSimulatedPort(20*time.Millisecond), cfg.GetSubscriberBuffer()), "simulated", nil
	}

	path := cfg.GetSerialPort()
	if *portFlag != "" {
		path = *portFlag
	}
	if path == "none" {
		return link.NewDisabledLink(), "disabled", nil
	}
	opts := link.OptionsFromConfig(cfg)
	l, err := link.Open(path, opts, cfg.GetReadTimeout(), cfg.GetSubscriberBuffer())
	if err != nil {
		return nil, "", err
	}
	return l, fmt.Sprintf("%s %s", path, opts), nil
}

// subscribe runs fn over a fresh subscription until ctx is done.
func subscribe(ctx context.Context, wg *sync.WaitGroup, l link.LinkInterface, name string, fn func(context.Context, <-chan records.Telemetry) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := l.Subscribe()
		defer l.Unsubscribe(id)
		if err := fn(ctx, c); err != nil && err != context.Canceled {
			log.Printf("%s routine failed: %v", name, err)
		}
		log.Printf("%s routine terminated", name)
	}()
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("flightlink"))
		return
	}
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	dbPath := cfg.GetDBPath()
	if *dbFlag != "" {
		dbPath = *dbFlag
	}

	// subcommands
	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "migrate":
			if err := flightdb.RunMigrateCommand(os.Stdout, "flightlink", flag.Args()[1:], dbPath); err != nil {
				log.Fatalf("migrate: %v", err)
			}
			return
		default:
			log.Fatalf("unknown command %q", flag.Arg(0))
		}
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Print(version.String("flightlink"))

	l, desc, err := openLink(cfg)
	if err != nil {
		log.Fatalf("failed to open link: %v", err)
	}
	defer l.Close()
	log.Printf("opened link %s", desc)

	db, err := flightdb.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	source := monitoring.SourceSerial
	if *devMode {
		source = "simulated"
	}
	session, err := db.StartSession(source, time.Now())
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	log.Printf("recording session %s to %s", session.ID, dbPath)
	defer func() {
		if err := db.EndSession(session.ID, time.Now()); err != nil {
			log.Printf("failed to end session: %v", err)
		}
	}()

	if err := monitoring.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()
		if err := l.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor link: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	recorder := db.NewRecorder(session.ID, cfg.GetGyroOffset(), cfg.GetRecordRaw())
	subscribe(ctx, &wg, l, "recorder", recorder.Run)

	trk := newTracker(cfg.GetGyroOffset(), cfg.GetTickPeriod(), cfg.GetTolerance())
	subscribe(ctx, &wg, l, "attitude", trk.run)

	if *capturePath != "" {
		cw, err := newCaptureWriter(*capturePath, cfg.GetReplayUDPPort())
		if err != nil {
			log.Fatalf("failed to open capture: %v", err)
		}
		defer cw.Close()
		subscribe(ctx, &wg, l, "capture", cw.run)
	}

	if *grpcListen != "" {
		lis, err := net.Listen("tcp", *grpcListen)
		if err != nil {
			log.Fatalf("failed to listen for gRPC: %v", err)
		}
		grpcServer := link.NewTelemetryServer(l)

		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				if err := grpcServer.Serve(lis); err != nil {
					log.Printf("gRPC server error: %v", err)
				}
			}()
			log.Printf("gRPC telemetry stream listening on %s", lis.Addr())

			<-ctx.Done()
			// open streams only end when their client leaves, so don't wait on them
			grpcServer.Stop()
			log.Printf("gRPC server routine stopped")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/attitude", trk)
		mux.Handle("/chart", chartHandler(db, session.ID))
		link.AttachAdminRoutes(mux, &recordingLink{LinkInterface: l, db: db, sessionID: session.ID})
		if err := db.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach db admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
