// Command migrate applies or reverts classroll schema migrations against the
// configured store.
//
// Usage:
//
//	migrate [-steps n] up|down|status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/classroll/classroll/config"
	"github.com/classroll/classroll/internal/infrastructure/persistence"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to revert with down")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-steps n] up|down|status\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, flag.Arg(0), *steps); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, steps int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, m, err := persistence.Open(ctx, cfg.Database, func(attempt int, err error, delay time.Duration) {
		fmt.Fprintf(os.Stderr, "database not reachable (attempt %d): %v; retrying in %s\n", attempt, err, delay)
	})
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd {
	case "up":
		if err := m.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("migrations applied")
	case "down":
		if steps < 1 {
			return fmt.Errorf("-steps must be at least 1")
		}
		for i := 0; i < steps; i++ {
			if err := m.Rollback(ctx); err != nil {
				return err
			}
		}
		fmt.Printf("rolled back %d migration(s)\n", steps)
	case "status":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	return printStatus(ctx, m)
}

func printStatus(ctx context.Context, m persistence.Migrator) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
	for _, s := range status {
		applied := "pending"
		if s.Applied {
			applied = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%03d\t%s\t%s\n", s.Version, s.Name, applied)
	}
	return w.Flush()
}
