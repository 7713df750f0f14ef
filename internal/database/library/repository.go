// Package library is the sole writer of book, chapter, and
// table-of-contents rows. The import pipeline proposes records; this
// repository decides what actually lands, one atomic unit per book.
package library

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/epubshelf/epubshelf/internal/entities"
)

// ErrIdentifierCollision is returned when a derived book identifier is
// already taken by different content. The derivation makes this
// operationally impossible; if it is ever observed, the commit is
// aborted rather than overwriting anything.
var ErrIdentifierCollision = errors.New("library: book identifier collision")

// Record is one fully-derived book proposed for import: the book row
// plus its chapters and table-of-contents entries.
type Record struct {
	Book     entities.Book
	Chapters []entities.Chapter
	Toc      []entities.TocEntry
}

// Repository handles all library database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new library repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ImportBatch writes a batch of records in a single transaction. Within
// the transaction each book lands before its chapters and ToC rows, so
// a partially-imported book is never observable. Uniqueness conflicts
// from re-running a scan are no-ops, not errors; ImportBatch returns
// how many books were actually new.
func (r *Repository) ImportBatch(records []Record) (int, error) {
	imported := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for i := range records {
			created, err := importOne(tx, &records[i])
			if err != nil {
				return err
			}
			if created {
				imported++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return imported, nil
}

func importOne(tx *gorm.DB, rec *Record) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec.Book)
	if res.Error != nil {
		return false, fmt.Errorf("insert book %q: %w", rec.Book.Title, res.Error)
	}

	if res.RowsAffected == 0 {
		// Already imported. Verify the existing row holds the same
		// content; the same derived ID over a different digest would be
		// a data-integrity violation.
		var existing entities.Book
		err := tx.Select("content_hash").First(&existing, "id = ?", rec.Book.ID).Error
		if err == nil && existing.ContentHash != rec.Book.ContentHash {
			return false, fmt.Errorf("%w: id %s holds hash %s, incoming %s",
				ErrIdentifierCollision, rec.Book.ID, existing.ContentHash, rec.Book.ContentHash)
		}
	}

	if len(rec.Chapters) > 0 {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec.Chapters).Error
		if err != nil {
			return false, fmt.Errorf("insert chapters for %q: %w", rec.Book.Title, err)
		}
	}
	if len(rec.Toc) > 0 {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec.Toc).Error
		if err != nil {
			return false, fmt.Errorf("insert toc for %q: %w", rec.Book.Title, err)
		}
	}

	return res.RowsAffected > 0, nil
}

// ContentHashes returns a snapshot of every stored content digest,
// keyed to the book title for reporting. The reconciler reads this once
// before any per-file work is dispatched.
func (r *Repository) ContentHashes() (map[string]string, error) {
	var books []entities.Book
	if err := r.db.Select("content_hash", "title").Find(&books).Error; err != nil {
		return nil, err
	}
	hashes := make(map[string]string, len(books))
	for _, b := range books {
		hashes[b.ContentHash] = b.Title
	}
	return hashes, nil
}

// GetAllBooks returns every book ordered by title.
func (r *Repository) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("title").Find(&books).Error
	return books, err
}

// GetBookByID retrieves a book by its derived identifier.
func (r *Repository) GetBookByID(id string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBookByHash retrieves a book by its content digest.
func (r *Repository) GetBookByHash(hash string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, "content_hash = ?", hash).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetChapter retrieves one chapter of a book by its sequence index.
// Content is returned as stored (compressed).
func (r *Repository) GetChapter(bookID string, index int) (*entities.Chapter, error) {
	var chapter entities.Chapter
	err := r.db.First(&chapter, "book_id = ? AND idx = ?", bookID, index).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// GetChapterByID retrieves a chapter by its derived identifier.
func (r *Repository) GetChapterByID(id string) (*entities.Chapter, error) {
	var chapter entities.Chapter
	if err := r.db.First(&chapter, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chapter, nil
}

// GetToc returns a book's table of contents in entry order. A book
// without one gets an empty slice.
func (r *Repository) GetToc(bookID string) ([]entities.TocEntry, error) {
	var entries []entities.TocEntry
	err := r.db.Where("book_id = ?", bookID).Order("idx").Find(&entries).Error
	return entries, err
}

// CountChapters returns how many chapters a book has.
func (r *Repository) CountChapters(bookID string) (int64, error) {
	var n int64
	err := r.db.Model(&entities.Chapter{}).Where("book_id = ?", bookID).Count(&n).Error
	return n, err
}
