// Package scan implements the library synchronization pipeline: walk
// the library root, hash and classify every EPUB against the stored
// digest snapshot, extract and normalize the new ones, and hand batches
// to the single store writer.
package scan

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/epubshelf/epubshelf/internal/blob"
	"github.com/epubshelf/epubshelf/internal/database/library"
	"github.com/epubshelf/epubshelf/internal/entities"
	"github.com/epubshelf/epubshelf/internal/extract"
	"github.com/epubshelf/epubshelf/internal/identity"
	"github.com/epubshelf/epubshelf/internal/markup"
)

// Failure records one file that could not be imported, with the reason.
// Per-file failures never abort the scan.
type Failure struct {
	Path string
	Err  error
}

// Orphan is a stored book whose content no scanned file produced.
// Orphans are reported for operator attention, never deleted.
type Orphan struct {
	ContentHash string
	Title       string
}

// Summary is what a scan reports back: counts plus per-failure reasons.
type Summary struct {
	Imported  int
	Unchanged int
	Failures  []Failure
	Orphaned  []Orphan
}

// Scanner runs the import pipeline. Per-file work (read, hash, extract,
// normalize, compress) fans out across a bounded worker pool; commits
// go through a single writer.
type Scanner struct {
	repo      *library.Repository
	codec     *blob.Codec
	deriver   identity.Deriver
	workers   int
	batchSize int
}

// NewScanner creates a scanner. Non-positive workers or batchSize fall
// back to defaults of 4 and 8.
func NewScanner(repo *library.Repository, codec *blob.Codec, deriver identity.Deriver, workers, batchSize int) *Scanner {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 8
	}
	return &Scanner{
		repo:      repo,
		codec:     codec,
		deriver:   deriver,
		workers:   workers,
		batchSize: batchSize,
	}
}

type fileResult struct {
	path      string
	unchanged bool
	record    *library.Record
	err       error
}

// Scan synchronizes the store with the EPUB files under root.
//
// The stored digest snapshot is read once before any file work starts,
// so the whole scan classifies against a single consistent library
// state. Cancelling ctx stops intake between per-file units; a commit
// already handed to the store is always allowed to finish.
func (s *Scanner) Scan(ctx context.Context, root string) (*Summary, error) {
	snapshot, err := s.repo.ContentHashes()
	if err != nil {
		return nil, fmt.Errorf("scan: read stored digests: %w", err)
	}

	stored := make([]string, 0, len(snapshot))
	for digest := range snapshot {
		stored = append(stored, digest)
	}
	reconciler := NewReconciler(stored)

	paths := Walk(root)
	log.Printf("scan: found %d epub files under %s", len(paths), root)

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- s.processFile(path, reconciler)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-scanCtx.Done():
				return
			}
		}
	}()

	summary := &Summary{}
	batch := make([]library.Record, 0, s.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		imported, err := s.repo.ImportBatch(batch)
		if err != nil {
			return err
		}
		summary.Imported += imported
		batch = batch[:0]
		return nil
	}

	var commitErr error
	for res := range results {
		if commitErr != nil {
			continue // drain remaining workers after a store failure
		}
		switch {
		case res.err != nil:
			log.Printf("scan: %s: %v", res.path, res.err)
			summary.Failures = append(summary.Failures, Failure{Path: res.path, Err: res.err})
		case res.unchanged:
			summary.Unchanged++
		default:
			batch = append(batch, *res.record)
			if len(batch) >= s.batchSize {
				if commitErr = flush(); commitErr != nil {
					cancel()
				}
			}
		}
	}
	if commitErr != nil {
		return nil, fmt.Errorf("scan: commit batch: %w", commitErr)
	}
	if err := flush(); err != nil {
		return nil, fmt.Errorf("scan: commit batch: %w", err)
	}

	for _, digest := range reconciler.Orphaned() {
		summary.Orphaned = append(summary.Orphaned, Orphan{
			ContentHash: digest,
			Title:       snapshot[digest],
		})
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// processFile runs the per-file stage: read, hash, classify, extract,
// normalize, compress, derive. It holds no shared state beyond the
// reconciler, so any number of these run concurrently.
func (s *Scanner) processFile(path string, reconciler *Reconciler) fileResult {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileResult{path: path, err: fmt.Errorf("read: %w", err)}
	}

	digest := identity.HashContent(raw)
	if reconciler.Classify(digest) == ClassUnchanged {
		return fileResult{path: path, unchanged: true}
	}

	doc, err := extract.Read(raw)
	if err != nil {
		return fileResult{path: path, err: err}
	}

	record, err := s.buildRecord(digest, doc)
	if err != nil {
		return fileResult{path: path, err: err}
	}
	return fileResult{path: path, record: record}
}

// buildRecord derives identifiers and assembles the entities for one
// extracted book.
func (s *Scanner) buildRecord(digest string, doc *extract.Document) (*library.Record, error) {
	bookUUID := s.deriver.BookID(digest)
	bookID := bookUUID.String()

	chapters := make([]entities.Chapter, 0, len(doc.Chapters))
	for i, raw := range doc.Chapters {
		normalized, err := markup.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("chapter %d: %w", i, err)
		}
		chapters = append(chapters, entities.Chapter{
			ID:      s.deriver.ChapterID(bookUUID, i, normalized).String(),
			BookID:  bookID,
			Index:   i,
			Content: s.codec.Compress(normalized),
		})
	}

	toc := make([]entities.TocEntry, 0, len(doc.Toc))
	for i, ref := range doc.Toc {
		toc = append(toc, entities.TocEntry{
			ID:        s.deriver.TocEntryID(bookUUID, i).String(),
			BookID:    bookID,
			Index:     i,
			ChapterID: chapters[ref.ChapterIndex].ID,
			Title:     ref.Title,
		})
	}

	return &library.Record{
		Book: entities.Book{
			ID:          bookID,
			Identifier:  doc.Metadata.Identifier,
			Language:    doc.Metadata.Language,
			Title:       doc.Metadata.Title,
			Creator:     doc.Metadata.Creator,
			Description: doc.Metadata.Description,
			Publisher:   doc.Metadata.Publisher,
			ContentHash: digest,
		},
		Chapters: chapters,
		Toc:      toc,
	}, nil
}
