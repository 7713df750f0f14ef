package scan

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epubshelf/epubshelf/internal/blob"
	"github.com/epubshelf/epubshelf/internal/database"
	"github.com/epubshelf/epubshelf/internal/database/library"
	"github.com/epubshelf/epubshelf/internal/entities"
	"github.com/epubshelf/epubshelf/internal/identity"
)

type bookFixture struct {
	Title    string
	Chapters []string // inner body HTML per chapter, spine order
	Toc      []string // one entry per chapter prefix, resolving in order
}

// buildEPUB assembles a minimal EPUB 2 archive (OPF + NCX) in memory.
func buildEPUB(t *testing.T, fix bookFixture) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name, content string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}

	add("mimetype", "application/epub+zip")
	add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spine strings.Builder
	for i := range fix.Chapters {
		fmt.Fprintf(&manifest, `<item id="ch%d" href="ch%d.xhtml" media-type="application/xhtml+xml"/>`, i, i)
		fmt.Fprintf(&spine, `<itemref idref="ch%d"/>`, i)
	}

	add("OEBPS/content.opf", fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0" unique-identifier="bookid">
  <metadata>
    <dc:title>%s</dc:title>
    <dc:language>en</dc:language>
    <dc:identifier id="bookid">urn:test:%s</dc:identifier>
  </metadata>
  <manifest>%s<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/></manifest>
  <spine toc="ncx">%s</spine>
</package>`, fix.Title, fix.Title, manifest.String(), spine.String()))

	for i, body := range fix.Chapters {
		add(fmt.Sprintf("OEBPS/ch%d.xhtml", i), fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>chapter</title></head><body>%s</body></html>`, body))
	}

	var nav strings.Builder
	for j, title := range fix.Toc {
		fmt.Fprintf(&nav,
			`<navPoint id="np%d" playOrder="%d"><navLabel><text>%s</text></navLabel><content src="ch%d.xhtml"/></navPoint>`,
			j, j+1, title, j)
	}
	add("OEBPS/toc.ncx", fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head/><docTitle><text>toc</text></docTitle>
  <navMap>%s</navMap>
</ncx>`, nav.String()))

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type harness struct {
	db      *database.Database
	repo    *library.Repository
	codec   *blob.Codec
	scanner *Scanner
	root    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	codec, err := blob.NewCodec(blob.DefaultLevel)
	require.NoError(t, err)

	repo := library.NewRepository(db.DB)
	return &harness{
		db:      db,
		repo:    repo,
		codec:   codec,
		scanner: NewScanner(repo, codec, identity.NewDeriver(identity.RootNamespace), 2, 2),
		root:    t.TempDir(),
	}
}

func (h *harness) addFile(t *testing.T, name string, raw []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.root, name), raw, 0o644))
}

func TestScan(t *testing.T) {
	t.Run("imports new books and dedupes identical files", func(t *testing.T) {
		h := newHarness(t)
		dracula := buildEPUB(t, bookFixture{
			Title:    "Dracula",
			Chapters: []string{"<p>Jonathan's journal</p>", "<p>More journal</p>"},
			Toc:      []string{"Chapter I", "Chapter II"},
		})
		emma := buildEPUB(t, bookFixture{
			Title:    "Emma",
			Chapters: []string{"<p>Emma Woodhouse</p>"},
		})
		h.addFile(t, "dracula.epub", dracula)
		h.addFile(t, "dracula-copy.epub", dracula) // byte-identical
		h.addFile(t, "emma.epub", emma)

		summary, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Imported)
		assert.Equal(t, 1, summary.Unchanged)
		assert.Empty(t, summary.Failures)
		assert.Empty(t, summary.Orphaned)

		books, err := h.repo.GetAllBooks()
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, "Dracula", books[0].Title)
		assert.Equal(t, "Emma", books[1].Title)
	})

	t.Run("rescanning an unchanged library imports nothing", func(t *testing.T) {
		h := newHarness(t)
		h.addFile(t, "a.epub", buildEPUB(t, bookFixture{Title: "A", Chapters: []string{"<p>a</p>"}}))
		h.addFile(t, "b.epub", buildEPUB(t, bookFixture{Title: "B", Chapters: []string{"<p>b</p>"}}))

		_, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)

		summary, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Imported)
		assert.Equal(t, 2, summary.Unchanged)
		assert.Empty(t, summary.Orphaned)

		var count int64
		require.NoError(t, h.db.DB.Model(&entities.Book{}).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("stored chapters decompress back to normalized markup", func(t *testing.T) {
		h := newHarness(t)
		h.addFile(t, "moby.epub", buildEPUB(t, bookFixture{
			Title:    "Moby Dick",
			Chapters: []string{"<p>Call me Ishmael.</p><p>   </p><div></div>"},
		}))

		_, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)

		books, err := h.repo.GetAllBooks()
		require.NoError(t, err)
		require.Len(t, books, 1)

		chapter, err := h.repo.GetChapter(books[0].ID, 0)
		require.NoError(t, err)

		content, err := h.codec.Decompress(chapter.Content)
		require.NoError(t, err)
		assert.Contains(t, string(content), "Call me Ishmael.")
		// Empty elements were stripped before compression.
		assert.NotContains(t, string(content), "<div>")
	})

	t.Run("links toc entries to derived chapter ids", func(t *testing.T) {
		h := newHarness(t)
		h.addFile(t, "study.epub", buildEPUB(t, bookFixture{
			Title:    "A Study in Scarlet",
			Chapters: []string{"<p>one</p>", "<p>two</p>"},
			Toc:      []string{"Part I", "Part II"},
		}))

		_, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)

		books, err := h.repo.GetAllBooks()
		require.NoError(t, err)
		require.Len(t, books, 1)

		toc, err := h.repo.GetToc(books[0].ID)
		require.NoError(t, err)
		require.Len(t, toc, 2)
		assert.Equal(t, "Part I", toc[0].Title)

		for i, entry := range toc {
			chapter, err := h.repo.GetChapter(books[0].ID, i)
			require.NoError(t, err)
			assert.Equal(t, chapter.ID, entry.ChapterID)
		}
	})

	t.Run("reports stored books missing from disk as orphans", func(t *testing.T) {
		h := newHarness(t)
		h.addFile(t, "keep.epub", buildEPUB(t, bookFixture{Title: "Keep", Chapters: []string{"<p>k</p>"}}))
		h.addFile(t, "gone.epub", buildEPUB(t, bookFixture{Title: "Gone", Chapters: []string{"<p>g</p>"}}))

		_, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(h.root, "gone.epub")))

		summary, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)
		require.Len(t, summary.Orphaned, 1)
		assert.Equal(t, "Gone", summary.Orphaned[0].Title)

		// Orphans are reported, never deleted.
		books, err := h.repo.GetAllBooks()
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("a broken file fails alone without aborting the scan", func(t *testing.T) {
		h := newHarness(t)
		h.addFile(t, "good.epub", buildEPUB(t, bookFixture{Title: "Good", Chapters: []string{"<p>fine</p>"}}))
		h.addFile(t, "broken.epub", []byte("not an archive at all"))

		summary, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Imported)
		require.Len(t, summary.Failures, 1)
		assert.Equal(t, filepath.Join(h.root, "broken.epub"), summary.Failures[0].Path)
		assert.Error(t, summary.Failures[0].Err)
	})

	t.Run("commits across multiple batches", func(t *testing.T) {
		h := newHarness(t) // batchSize 2
		for i := 0; i < 7; i++ {
			title := fmt.Sprintf("Volume %d", i)
			h.addFile(t, fmt.Sprintf("v%d.epub", i), buildEPUB(t, bookFixture{
				Title:    title,
				Chapters: []string{fmt.Sprintf("<p>volume %d</p>", i)},
			}))
		}

		summary, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)
		assert.Equal(t, 7, summary.Imported)

		var count int64
		require.NoError(t, h.db.DB.Model(&entities.Book{}).Count(&count).Error)
		assert.EqualValues(t, 7, count)
	})

	t.Run("empty root yields an empty summary", func(t *testing.T) {
		h := newHarness(t)
		summary, err := h.scanner.Scan(context.Background(), h.root)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Imported)
		assert.Equal(t, 0, summary.Unchanged)
	})

	t.Run("cancelled context surfaces the cancellation", func(t *testing.T) {
		h := newHarness(t)
		h.addFile(t, "a.epub", buildEPUB(t, bookFixture{Title: "A", Chapters: []string{"<p>a</p>"}}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.scanner.Scan(ctx, h.root)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
