// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lar

import (
	"bytes"
	"io"
	"sync"

	"github.com/pierrec/lz4"
)

// NewBuilder creates a new Builder. Do not fill the Index in the
// header, it is computed from the added files.
func NewBuilder(header Header) *Builder {
	header.Index = nil
	return &Builder{
		header: header,
	}
}

type pendingEntry struct {

	// Name is the name the file is retrieved by.
	Name string

	// Size of the file before compression.
	Size int64

	// Data holds the lz4 compressed contents.
	Data []byte
}

// Builder is the high level builder for the archive format. Archives
// are versioned and cannot be appended to, this Builder is the way to
// create one. Added files are compressed immediately and kept in
// memory until WriteTo bundles them together.
type Builder struct {
	header Header

	mutex   sync.Mutex
	entries []pendingEntry
}

// Add appends data to the builder with a given name. Will block until
// lz4 finishes compression. Is safe to use concurrently in different
// goroutines.
func (b *Builder) Add(name string, data []byte) error {
	var compressed bytes.Buffer
	writer := lz4.NewWriter(&compressed)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.entries = append(b.entries, pendingEntry{
		Name: name,
		Size: int64(len(data)),
		Data: compressed.Bytes(),
	})
	return nil
}

// WriteTo bundles and writes all of the files added to the Builder
// into a lar archive that is ready to use.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	var offset int64
	for _, entry := range b.entries {
		header.Index = append(header.Index, IndexEntry{
			Name:           entry.Name,
			Offset:         offset,
			Size:           entry.Size,
			CompressedSize: int64(len(entry.Data)),
		})
		offset += int64(len(entry.Data))
	}

	rawHeader, err := encodeHeader(&header)
	if err != nil {
		return 0, err
	}

	var written int64
	chunks := [][]byte{
		larMagic,
		int64ToBinary(int64(len(rawHeader))),
		rawHeader,
	}
	for _, entry := range b.entries {
		chunks = append(chunks, entry.Data)
	}
	for _, chunk := range chunks {
		num, err := w.Write(chunk)
		written += int64(num)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
