package entities

import "time"

// Book is one imported EPUB source. Its ID is derived from the file's
// content digest, so re-importing the same bytes always lands on the
// same row. ContentHash is the dedup join key across the whole library.
type Book struct {
	ID          string  `gorm:"primaryKey;size:36" json:"id"`
	Identifier  string  `gorm:"size:256" json:"identifier"`
	Language    string  `gorm:"size:32" json:"language"`
	Title       string  `gorm:"index;size:512" json:"title"`
	Creator     *string `gorm:"size:256" json:"creator,omitempty"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	Publisher   *string `gorm:"size:256" json:"publisher,omitempty"`
	ContentHash string  `gorm:"uniqueIndex;size:64" json:"content_hash"`

	Chapters []Chapter  `gorm:"foreignKey:BookID" json:"chapters,omitempty"`
	Toc      []TocEntry `gorm:"foreignKey:BookID" json:"toc,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Chapter is one ordered content unit of a book. Content holds the
// zstd-compressed normalized XHTML. Rows are immutable once written.
type Chapter struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	BookID  string `gorm:"size:36;uniqueIndex:uniq_chapters_book_idx" json:"book_id"`
	Index   int    `gorm:"column:idx;uniqueIndex:uniq_chapters_book_idx" json:"index"`
	Content []byte `gorm:"type:blob" json:"-"`
}

// TocEntry points a display title at a chapter of the same book.
// Index orders entries within the book and is distinct from the
// chapter index.
type TocEntry struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	BookID    string `gorm:"size:36;uniqueIndex:uniq_toc_book_idx" json:"book_id"`
	Index     int    `gorm:"column:idx;uniqueIndex:uniq_toc_book_idx" json:"index"`
	ChapterID string `gorm:"size:36" json:"chapter_id"`
	Title     string `gorm:"size:512" json:"title"`
}

// Bookmark is the single reading position kept per book. Progress is an
// abstract fraction of the chapter in [0,1]; mapping it to rows or
// pixels is the renderer's problem.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    string    `gorm:"size:36;uniqueIndex" json:"book_id"`
	ChapterID string    `gorm:"size:36" json:"chapter_id"`
	Progress  float64   `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
}

func (Book) TableName() string {
	return "books"
}

func (Chapter) TableName() string {
	return "chapters"
}

func (TocEntry) TableName() string {
	return "table_of_contents"
}

func (Bookmark) TableName() string {
	return "bookmarks"
}
