package config

const (
	// DefaultDatabasePath is where the library database lives unless
	// DATABASE_PATH is set.
	DefaultDatabasePath = "./library.db"

	// DefaultLibraryPath is the directory scanned for EPUB files unless
	// LIBRARY_PATH is set.
	DefaultLibraryPath = "./books"
)
