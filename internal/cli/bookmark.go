package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/epubshelf/epubshelf/internal/config"
	"github.com/epubshelf/epubshelf/internal/database"
	"github.com/epubshelf/epubshelf/internal/database/bookmarks"
	"github.com/epubshelf/epubshelf/internal/database/library"
)

// BookmarkCommand shows, sets, or clears the reading position of a book.
type BookmarkCommand struct {
	DatabasePath string
	BookID       string
	ChapterIndex int
	Progress     float64
	Clear        bool
}

func NewBookmarkCommand() *BookmarkCommand {
	return &BookmarkCommand{}
}

func (cmd *BookmarkCommand) ParseFlags(args []string) error {
	cfg := config.NewConfig()

	fs := flag.NewFlagSet("bookmark", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the library database file")
	fs.StringVar(&cmd.BookID, "book", "", "Book identifier (required)")
	fs.IntVar(&cmd.ChapterIndex, "chapter", -1, "Chapter index to bookmark (omit to show the current bookmark)")
	fs.Float64Var(&cmd.Progress, "progress", 0, "Position within the chapter, 0.0-1.0")
	fs.BoolVar(&cmd.Clear, "clear", false, "Remove the book's bookmark")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s bookmark -book <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Show, set, or clear the single reading position kept per book.\n")
		fmt.Fprintf(os.Stderr, "Setting a bookmark replaces any existing one.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.BookID == "" {
		return fmt.Errorf("required flag -book not provided")
	}
	return nil
}

func (cmd *BookmarkCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	libRepo := library.NewRepository(db.DB)
	repo := bookmarks.NewRepository(db.DB)

	switch {
	case cmd.Clear:
		if err := repo.Clear(cmd.BookID); err != nil {
			return fmt.Errorf("failed to clear bookmark: %w", err)
		}
		fmt.Println("Bookmark cleared")
		return nil

	case cmd.ChapterIndex >= 0:
		chapter, err := libRepo.GetChapter(cmd.BookID, cmd.ChapterIndex)
		if err != nil {
			return fmt.Errorf("failed to find chapter %d: %w", cmd.ChapterIndex, err)
		}
		if err := repo.Set(cmd.BookID, chapter.ID, cmd.Progress); err != nil {
			return fmt.Errorf("failed to set bookmark: %w", err)
		}
		fmt.Printf("Bookmarked chapter %d at %.0f%%\n", cmd.ChapterIndex, cmd.Progress*100)
		return nil

	default:
		bookmark, err := repo.Get(cmd.BookID)
		if errors.Is(err, bookmarks.ErrNotFound) {
			fmt.Println("No bookmark")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read bookmark: %w", err)
		}
		chapter, err := libRepo.GetChapterByID(bookmark.ChapterID)
		if err != nil {
			return fmt.Errorf("failed to resolve bookmarked chapter: %w", err)
		}
		fmt.Printf("Chapter %d at %.0f%% (set %s)\n",
			chapter.Index, bookmark.Progress*100, bookmark.CreatedAt.Format("2006-01-02 15:04"))
		return nil
	}
}
