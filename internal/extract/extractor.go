// Package extract turns a raw EPUB archive into the structured pieces
// the import pipeline persists: metadata, spine-ordered chapter
// documents, and a flattened table of contents resolved to chapter
// positions.
//
// Every failure here is per-file. A malformed archive fails its own
// import and nothing else; the scan carries on.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/simp-lee/epub"
)

// Sentinel errors classifying per-file extraction failures.
var (
	// ErrUnreadableArchive indicates the file could not be opened as an
	// EPUB at all (bad zip, missing OPF, DRM).
	ErrUnreadableArchive = errors.New("extract: unreadable epub archive")

	// ErrMissingMetadata indicates the package declares no title or no
	// language, both of which the library requires.
	ErrMissingMetadata = errors.New("extract: missing required metadata")

	// ErrDanglingTocRef indicates a table-of-contents entry points at a
	// document that is not in the chapter sequence.
	ErrDanglingTocRef = errors.New("extract: toc entry references no spine item")
)

// Metadata is the subset of package metadata the library stores.
// Identifier is whatever the EPUB declares about itself; it is recorded
// but never trusted for uniqueness.
type Metadata struct {
	Identifier  string
	Language    string
	Title       string
	Creator     *string
	Description *string
	Publisher   *string
}

// TocRef names a chapter by its position in the extracted sequence.
type TocRef struct {
	Title        string
	ChapterIndex int
}

// Document is one fully extracted EPUB: metadata, raw chapter XHTML in
// spine order, and the flattened table of contents. A book with no
// discoverable ToC has an empty Toc slice; that is a valid terminal
// state, not an error.
type Document struct {
	Metadata Metadata
	Chapters [][]byte
	Toc      []TocRef
}

// Read parses raw archive bytes into a Document.
func Read(raw []byte) (*Document, error) {
	book, err := epub.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableArchive, err)
	}
	defer book.Close()

	meta, err := extractMetadata(book.Metadata())
	if err != nil {
		return nil, err
	}

	chapters := book.Chapters()
	docs := make([][]byte, 0, len(chapters))
	for i, ch := range chapters {
		content, err := ch.RawContent()
		if err != nil {
			return nil, fmt.Errorf("%w: chapter %d (%s): %v", ErrUnreadableArchive, i, ch.Href, err)
		}
		docs = append(docs, content)
	}

	toc, err := flattenToc(book.TOC(), len(docs))
	if err != nil {
		return nil, err
	}

	return &Document{Metadata: *meta, Chapters: docs, Toc: toc}, nil
}

func extractMetadata(md epub.Metadata) (*Metadata, error) {
	title := firstNonEmpty(md.Titles)
	language := firstNonEmpty(md.Language)
	if title == "" || language == "" {
		return nil, fmt.Errorf("%w: title=%q language=%q", ErrMissingMetadata, title, language)
	}

	meta := &Metadata{
		Title:    title,
		Language: language,
	}
	if len(md.Identifiers) > 0 {
		meta.Identifier = strings.TrimSpace(md.Identifiers[0].Value)
	}
	if len(md.Authors) > 0 {
		if name := strings.TrimSpace(md.Authors[0].Name); name != "" {
			meta.Creator = &name
		}
	}
	if desc := strings.TrimSpace(md.Description); desc != "" {
		meta.Description = &desc
	}
	if pub := strings.TrimSpace(md.Publisher); pub != "" {
		meta.Publisher = &pub
	}
	return meta, nil
}

// flattenToc walks the ToC tree in document order and resolves every
// entry to a chapter position. Entries without a target (bare section
// headings) are skipped; entries whose target resolves outside the
// chapter sequence are malformed references.
func flattenToc(items []epub.TOCItem, chapterCount int) ([]TocRef, error) {
	var refs []TocRef
	var walk func(items []epub.TOCItem) error
	walk = func(items []epub.TOCItem) error {
		for _, item := range items {
			if item.Href != "" {
				if item.SpineIndex < 0 || item.SpineIndex >= chapterCount {
					return fmt.Errorf("%w: %q -> %s", ErrDanglingTocRef, item.Title, item.Href)
				}
				refs = append(refs, TocRef{
					Title:        strings.TrimSpace(item.Title),
					ChapterIndex: item.SpineIndex,
				})
			}
			if err := walk(item.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(items); err != nil {
		return nil, err
	}
	return refs, nil
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
