// Package bookmarks keeps at most one reading position per book.
// Setting a bookmark replaces any prior one: the library tracks where
// you are, not where you have been.
package bookmarks

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/epubshelf/epubshelf/internal/entities"
)

var (
	// ErrNotFound is returned by Get when a book has no bookmark.
	// Absence is a normal state, not a failure.
	ErrNotFound = errors.New("bookmarks: no bookmark for book")

	// ErrInvalidProgress is returned when progress falls outside [0,1].
	ErrInvalidProgress = errors.New("bookmarks: progress must be between 0 and 1")

	// ErrChapterMismatch is returned when the chapter does not belong
	// to the book being bookmarked.
	ErrChapterMismatch = errors.New("bookmarks: chapter does not belong to book")
)

// Repository handles bookmark database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new bookmarks repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Set records the reading position for a book, replacing any existing
// bookmark (upsert keyed solely on the book). Progress is an abstract
// fraction of the chapter in [0,1].
func (r *Repository) Set(bookID, chapterID string, progress float64) error {
	if progress < 0 || progress > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidProgress, progress)
	}

	var chapter entities.Chapter
	if err := r.db.Select("book_id").First(&chapter, "id = ?", chapterID).Error; err != nil {
		return fmt.Errorf("bookmarks: look up chapter %s: %w", chapterID, err)
	}
	if chapter.BookID != bookID {
		return fmt.Errorf("%w: chapter %s belongs to book %s", ErrChapterMismatch, chapterID, chapter.BookID)
	}

	bookmark := entities.Bookmark{
		BookID:    bookID,
		ChapterID: chapterID,
		Progress:  progress,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chapter_id", "progress", "created_at"}),
	}).Create(&bookmark).Error
}

// Get returns the book's current bookmark, or ErrNotFound when there is
// none.
func (r *Repository) Get(bookID string) (*entities.Bookmark, error) {
	var bookmark entities.Bookmark
	err := r.db.First(&bookmark, "book_id = ?", bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// Clear removes the book's bookmark if present. Clearing a book with no
// bookmark is not an error.
func (r *Repository) Clear(bookID string) error {
	return r.db.Where("book_id = ?", bookID).Delete(&entities.Bookmark{}).Error
}

// GetAll returns every bookmark, newest first.
func (r *Repository) GetAll() ([]entities.Bookmark, error) {
	var bookmarks []entities.Bookmark
	err := r.db.Order("created_at DESC").Find(&bookmarks).Error
	return bookmarks, err
}
