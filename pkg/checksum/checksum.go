// Package checksum provides SHA-256 helpers for archived activity exports. Storage
// backends record the digest when an export is written and the verify command recomputes
// it from the stored bytes.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Of returns the hex SHA-256 of data.
func Of(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sum reads r to EOF and returns its hex SHA-256.
func Sum(r io.Reader) (string, error) {
	w := NewWriter(io.Discard)
	if _, err := io.Copy(w, r); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return w.Sum(), nil
}

// Verify reports whether the content of r hashes to want. Case is ignored in want.
func Verify(r io.Reader, want string) (bool, error) {
	got, err := Sum(r)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, strings.TrimSpace(want)), nil
}

// Writer hashes everything written through it before passing it on.
type Writer struct {
	next io.Writer
	h    hash.Hash
	n    int64
}

// NewWriter wraps next.
func NewWriter(next io.Writer) *Writer {
	return &Writer{next: next, h: sha256.New()}
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.next.Write(p)
	w.h.Write(p[:n])
	w.n += int64(n)
	return n, err
}

// Sum returns the hex SHA-256 of the bytes written so far.
func (w *Writer) Sum() string {
	return hex.EncodeToString(w.h.Sum(nil))
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 {
	return w.n
}
