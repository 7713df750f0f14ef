package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/epubshelf/epubshelf/internal/blob"
	"github.com/epubshelf/epubshelf/internal/config"
	"github.com/epubshelf/epubshelf/internal/database"
	"github.com/epubshelf/epubshelf/internal/database/library"
	"github.com/epubshelf/epubshelf/internal/identity"
	"github.com/epubshelf/epubshelf/internal/scan"
)

// ScanCommand synchronizes the library database with the EPUB files
// under the library root.
type ScanCommand struct {
	LibraryPath  string
	DatabasePath string
	Workers      int
	BatchSize    int
	Level        int
}

func NewScanCommand() *ScanCommand {
	return &ScanCommand{}
}

func (cmd *ScanCommand) ParseFlags(args []string) error {
	cfg := config.NewConfig()

	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	fs.StringVar(&cmd.LibraryPath, "library", cfg.Library.Path, "Directory to scan for EPUB files")
	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the library database file")
	fs.IntVar(&cmd.Workers, "workers", cfg.Scan.Workers, "Concurrent file workers")
	fs.IntVar(&cmd.BatchSize, "batch", cfg.Scan.BatchSize, "Books committed per transaction")
	fs.IntVar(&cmd.Level, "level", cfg.Scan.CompressionLevel, "zstd compression level for chapter content")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s scan [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import new EPUB files under the library directory into the database.\n")
		fmt.Fprintf(os.Stderr, "Files already imported are skipped; books whose files have gone\n")
		fmt.Fprintf(os.Stderr, "missing are reported but never deleted. Re-running a scan against an\n")
		fmt.Fprintf(os.Stderr, "unchanged directory is a no-op.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ScanCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	codec, err := blob.NewCodec(cmd.Level)
	if err != nil {
		return err
	}

	scanner := scan.NewScanner(
		library.NewRepository(db.DB),
		codec,
		identity.NewDeriver(identity.RootNamespace),
		cmd.Workers,
		cmd.BatchSize,
	)

	// Ctrl-C stops intake; commits in flight are allowed to finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := scanner.Scan(ctx, cmd.LibraryPath)
	if err != nil && summary == nil {
		return err
	}

	fmt.Printf("Imported:  %d\n", summary.Imported)
	fmt.Printf("Unchanged: %d\n", summary.Unchanged)
	fmt.Printf("Failed:    %d\n", len(summary.Failures))
	for _, f := range summary.Failures {
		fmt.Printf("  %s: %v\n", f.Path, f.Err)
	}
	fmt.Printf("Orphaned:  %d\n", len(summary.Orphaned))
	for _, o := range summary.Orphaned {
		fmt.Printf("  %s (%s)\n", o.Title, o.ContentHash)
	}

	return err
}
