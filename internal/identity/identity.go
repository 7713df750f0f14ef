// Package identity computes content digests and derives stable
// identifiers from them.
//
// Identifiers form a derivation chain: a root namespace seeds book IDs,
// book IDs seed chapter and table-of-contents IDs. Repeated imports of
// the same bytes produce the same identifiers on any machine, which is
// what makes re-scans idempotent and database rebuilds consistent.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

// RootNamespace seeds all derivation. It is the nil UUID for
// compatibility with libraries exported before namespaces were
// configurable.
var RootNamespace = uuid.Nil

// HashContent returns the hex-encoded SHA-256 digest of raw file bytes.
// The digest is computed over the literal archive bytes, never a decoded
// representation, so identical files always hash identically.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Deriver produces deterministic version-5 UUIDs under an explicit root
// namespace. It carries no mutable state; equal inputs always yield
// equal outputs.
type Deriver struct {
	root uuid.UUID
}

func NewDeriver(root uuid.UUID) Deriver {
	return Deriver{root: root}
}

// BookID derives the book identifier from the file's content digest.
func (d Deriver) BookID(contentHash string) uuid.UUID {
	return uuid.NewSHA1(d.root, []byte(contentHash))
}

// ChapterID derives a chapter identifier from the owning book, the
// chapter's stored content, and its zero-based index. The index is part
// of the name: two byte-identical chapters (blank pages are common) at
// different positions must not collide.
func (d Deriver) ChapterID(bookID uuid.UUID, index int, content []byte) uuid.UUID {
	name := make([]byte, 0, len(content)+12)
	name = append(name, strconv.Itoa(index)...)
	name = append(name, ':')
	name = append(name, content...)
	return uuid.NewSHA1(bookID, name)
}

// TocEntryID derives a table-of-contents entry identifier from the
// owning book and the entry's position. Entries are structural pointers,
// so position alone is enough to keep them unique per book.
func (d Deriver) TocEntryID(bookID uuid.UUID, index int) uuid.UUID {
	return uuid.NewSHA1(bookID, []byte("toc:"+strconv.Itoa(index)))
}
