package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/epubshelf/epubshelf/internal/config"
	"github.com/epubshelf/epubshelf/internal/database"
	"github.com/epubshelf/epubshelf/internal/database/library"
)

// ListCommand prints the books in the library, ordered by title.
type ListCommand struct {
	DatabasePath string
	Verbose      bool
}

func NewListCommand() *ListCommand {
	return &ListCommand{}
}

func (cmd *ListCommand) ParseFlags(args []string) error {
	cfg := config.NewConfig()

	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the library database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Show identifiers and chapter counts")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s list [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List the books in the library.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ListCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := library.NewRepository(db.DB)
	books, err := repo.GetAllBooks()
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}

	for _, book := range books {
		creator := ""
		if book.Creator != nil {
			creator = " — " + *book.Creator
		}
		fmt.Printf("%s%s\n", book.Title, creator)
		if cmd.Verbose {
			chapters, err := repo.CountChapters(book.ID)
			if err != nil {
				return err
			}
			fmt.Printf("  id: %s\n", book.ID)
			fmt.Printf("  language: %s, chapters: %d\n", book.Language, chapters)
		}
	}
	fmt.Printf("\n%d book(s)\n", len(books))

	return nil
}
