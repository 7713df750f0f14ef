package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epubshelf/epubshelf/internal/blob"
	"github.com/epubshelf/epubshelf/internal/config"
	"github.com/epubshelf/epubshelf/internal/database"
	"github.com/epubshelf/epubshelf/internal/database/library"
	"github.com/epubshelf/epubshelf/internal/identity"
	"github.com/epubshelf/epubshelf/internal/scan"
	"github.com/epubshelf/epubshelf/internal/scheduler"
)

// WatchCommand runs an initial scan and then keeps rescanning on a cron
// schedule until interrupted.
type WatchCommand struct {
	LibraryPath  string
	DatabasePath string
	Schedule     string

	cfg *config.Config
}

func NewWatchCommand() *WatchCommand {
	return &WatchCommand{}
}

func (cmd *WatchCommand) ParseFlags(args []string) error {
	cmd.cfg = config.NewConfig()

	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.StringVar(&cmd.LibraryPath, "library", cmd.cfg.Library.Path, "Directory to scan for EPUB files")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the library database file")
	fs.StringVar(&cmd.Schedule, "schedule", cmd.cfg.Rescan.Schedule, "Cron schedule for rescans")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s watch [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Scan the library now, then rescan on a schedule until interrupted.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *WatchCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	codec, err := blob.NewCodec(cmd.cfg.Scan.CompressionLevel)
	if err != nil {
		return err
	}

	scanner := scan.NewScanner(
		library.NewRepository(db.DB),
		codec,
		identity.NewDeriver(identity.RootNamespace),
		cmd.cfg.Scan.Workers,
		cmd.cfg.Scan.BatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := scanner.Scan(ctx, cmd.LibraryPath)
	if err != nil {
		return err
	}
	log.Printf("Initial scan: imported %d, unchanged %d, failed %d, orphaned %d",
		summary.Imported, summary.Unchanged, len(summary.Failures), len(summary.Orphaned))

	sched := scheduler.NewRescanScheduler(scanner, cmd.LibraryPath, cmd.Schedule)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Printf("Shutting down...")

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Duration(cmd.cfg.Global.ShutdownTimeoutInSeconds) * time.Second):
		log.Printf("Shutdown timed out, exiting anyway")
	}

	return nil
}
