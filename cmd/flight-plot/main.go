// Command flight-plot renders a recorded session as PNG plots or an
// interactive HTML page.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/flightlink/internal/flightdb"
	"github.com/banshee-data/flightlink/internal/report"
	"github.com/banshee-data/flightlink/internal/version"
)

var (
	dbPath      = flag.String("db", "flightlink.db", "SQLite flight log path")
	sessionID   = flag.String("session", "", "Session to plot (default latest)")
	outDir      = flag.String("out", ".", "Directory for PNG plots")
	htmlPath    = flag.String("html", "", "Write an HTML chart page here instead of PNG plots")
	list        = flag.Bool("list", false, "List recorded sessions and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func listSessions(w io.Writer, db *flightdb.DB, now time.Time) error {
	sessions, err := db.Sessions()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSOURCE\tSTARTED\tDURATION\tSAMPLES")
	for _, s := range sessions {
		n, err := db.TelemetryCount(s.ID)
		if err != nil {
			return err
		}
		duration := "running"
		if s.EndedAt != nil {
			duration = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Source,
			humanize.RelTime(s.StartedAt, now, "ago", "from now"), duration, humanize.Comma(int64(n)))
	}
	return tw.Flush()
}

func resolveSession(db *flightdb.DB, id string) (*flightdb.Session, error) {
	if id == "" {
		return db.LatestSession()
	}
	return db.GetSession(id)
}

// plotSession writes either the HTML page or the PNG set for one session
// and returns the paths written.
func plotSession(db *flightdb.DB, sess *flightdb.Session, dir, html string) ([]string, error) {
	samples, err := db.TelemetrySamples(sess.ID)
	if err != nil {
		return nil, err
	}

	if html == "" {
		return report.WritePlots(dir, sess.ID, samples)
	}

	f, err := os.Create(html)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", html, err)
	}
	title := fmt.Sprintf("Session %s (%s)", sess.ID, sess.StartedAt.Format(time.RFC3339))
	if err := report.RenderHTML(f, samples, report.ChartOptions{Title: title}); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return []string{html}, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("flight-plot"))
		return
	}

	db, err := flightdb.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if *list {
		if err := listSessions(os.Stdout, db, time.Now()); err != nil {
			log.Fatalf("failed to list sessions: %v", err)
		}
		return
	}

	sess, err := resolveSession(db, *sessionID)
	if err != nil {
		log.Fatalf("failed to find session: %v", err)
	}
	paths, err := plotSession(db, sess, *outDir, *htmlPath)
	if err != nil {
		log.Fatalf("failed to plot session %s: %v", sess.ID, err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}
