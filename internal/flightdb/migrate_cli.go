package flightdb

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrUsage is returned by RunMigrateCommand for a missing or unknown action.
var ErrUsage = errors.New("invalid migrate usage")

// PrintMigrateHelp writes the migrate subcommand usage to w.
func PrintMigrateHelp(w io.Writer, program string) {
	fmt.Fprintf(w, `Usage: %s migrate <action> [version]

Actions:
  up              apply all pending migrations
  down            roll back the most recent migration
  status          show the current version and dirty state
  goto <version>  migrate up or down to version
  force <version> set the version without running migrations (recovery only)
  help            show this help
`, program)
}

// RunMigrateCommand runs one migrate action against the database at dbPath
// and reports progress to w.
func RunMigrateCommand(w io.Writer, program string, args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp(w, program)
		return ErrUsage
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(w, program)
		return nil
	}

	needsVersion := action == "goto" || action == "force"
	var version int
	if needsVersion {
		if len(args) < 2 {
			return fmt.Errorf("%w: %s migrate %s <version>", ErrUsage, program, action)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			return fmt.Errorf("%w: invalid version number %q", ErrUsage, args[1])
		}
		version = v
	}

	db, err := OpenUnmigrated(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action {
	case "up":
		err = db.MigrateUp()
	case "down":
		err = db.MigrateDown()
	case "goto":
		err = db.MigrateTo(uint(version))
	case "force":
		err = db.MigrateForce(version)
	case "status":
	default:
		PrintMigrateHelp(w, program)
		return fmt.Errorf("%w: unknown action %q", ErrUsage, action)
	}
	if err != nil {
		return err
	}

	current, dirty, err := db.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(w, "version %d of %d (dirty: %v)\n", current, SchemaVersion, dirty)
	if dirty {
		fmt.Fprintf(w, "a migration failed mid-way; inspect the database, then run: %s migrate force <version>\n", program)
	}
	return nil
}
