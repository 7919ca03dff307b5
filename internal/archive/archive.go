// Package archive builds zip archives out of downloaded object payloads.
//
// Every entry is written with the stored method (no compression) and unix mode
// 0755, with a fixed modification time so that the same inputs always produce the
// same bytes.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"
)

// EntryMode is the permission metadata attached to every entry (rwxr-xr-x).
const EntryMode os.FileMode = 0o755

// entryModTime is the earliest timestamp the zip format can represent.
var entryModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

func entryHeader(name string) *zip.FileHeader {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: entryModTime,
	}
	header.SetMode(EntryMode)
	return header
}

// Writer appends stored entries to a single archive stream.
type Writer struct {
	zw      *zip.Writer
	cw      *countingWriter
	entries []string
	closed  bool
}

// NewWriter starts an archive that is written to w as entries are added.
func NewWriter(w io.Writer) *Writer {
	cw := &countingWriter{w: w}
	return &Writer{
		zw: zip.NewWriter(cw),
		cw: cw,
	}
}

// Add writes one entry named name holding payload.
func (w *Writer) Add(name string, payload []byte) error {
	if w.closed {
		return fmt.Errorf("archive: add %s: writer closed", name)
	}
	fw, err := w.zw.CreateHeader(entryHeader(name))
	if err != nil {
		return fmt.Errorf("archive: start entry %s: %w", name, err)
	}
	if _, err := fw.Write(payload); err != nil {
		return fmt.Errorf("archive: write entry %s: %w", name, err)
	}
	w.entries = append(w.entries, name)
	return nil
}

// Close writes the central directory. The underlying writer is left open.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("archive: finalize: %w", err)
	}
	return nil
}

// Entries returns the names written so far, in order.
func (w *Writer) Entries() []string {
	return append([]string(nil), w.entries...)
}

// Written returns the number of archive bytes emitted to the underlying writer.
func (w *Writer) Written() int64 {
	return w.cw.n
}

// BuildFragment returns a complete, self-terminated archive holding a single entry.
func BuildFragment(name string, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(payload) + 2*len(name) + 128)

	w := NewWriter(&buf)
	if err := w.Add(name, payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
