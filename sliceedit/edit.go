// Copyright 2023 Jesus Ruiz. All rights reserved.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package sliceedit extends the functionalities of rsc.io/edit to
// implement eficient buffered editing of byte slices.
// Positions always refer to the original data, so edits can be queued while
// scanning it. Queued edits must not overlap.
package sliceedit

import (
	"bytes"

	"rsc.io/edit"
)

// A Buffer is a queue of edits to apply to a given byte slice.
type Buffer struct {
	ed  *edit.Buffer
	buf []byte
}

// NewBuffer returns a new buffer to accumulate changes to an initial data slice.
// The returned buffer maintains a reference to the data, so the caller must ensure
// the data is not modified until after the Buffer is done being used.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{
		ed:  edit.NewBuffer(buf),
		buf: buf,
	}
}

// FindAll finds all non-overlapping instances of item in buf.
func FindAll(buf []byte, item string) []int {
	found := []int{}

	if len(item) == 0 {
		return found
	}

	realOffset := 0

	for {
		i := bytes.Index(buf, []byte(item))
		if i == -1 {
			return found
		}
		found = append(found, i+realOffset)
		buf = buf[i+len(item):]
		realOffset = realOffset + i + len(item)
	}
}

// Insert inserts s at pos.
func (b *Buffer) Insert(pos int, s string) {
	b.ed.Insert(pos, s)
}

// Delete deletes the data in [start, end).
func (b *Buffer) Delete(start, end int) {
	b.ed.Delete(start, end)
}

// Replace replaces the data in [start, end) with s.
func (b *Buffer) Replace(start, end int, s string) {
	b.ed.Replace(start, end, s)
}

// DeleteAllString deletes every instance of s.
func (b *Buffer) DeleteAllString(s string) {
	for _, hit := range FindAll(b.buf, s) {
		b.ed.Delete(hit, hit+len(s))
	}
}

// ReplaceAllString replaces every instance of old with new.
func (b *Buffer) ReplaceAllString(old string, new string) {
	for _, hit := range FindAll(b.buf, old) {
		b.ed.Replace(hit, hit+len(old), new)
	}
}

// Bytes returns a new byte slice containing the original data
// with the queued edits applied.
func (b *Buffer) Bytes() []byte {
	return b.ed.Bytes()
}

// String returns a string containing the original data
// with the queued edits applied.
func (b *Buffer) String() string {
	return b.ed.String()
}
