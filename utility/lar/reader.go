// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lar

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4"
)

// Open opens the lar archive from r. It will also check if the file is
// actually a lar archive, will return an error when the file is
// incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	magic := make([]byte, MagicLength)
	if num, err := r.ReadAt(magic, 0); err != nil {
		return nil, err
	} else if num < MagicLength || !bytes.Equal(magic, larMagic) {
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, err := r.ReadAt(headerSizeBytes, MagicLength); err != nil {
		return nil, err
	} else if num < HeaderSizeNumberLength {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToInt64(headerSizeBytes)
	if err != nil || headerSize <= 0 {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, MagicLength+HeaderSizeNumberLength); err != nil {
		return nil, err
	} else if int64(num) < headerSize {
		return nil, ErrFileFormat
	}

	var header Header
	if err := decodeHeader(&header, headerBytes); err != nil {
		return nil, ErrFileFormat
	}

	return &Archive{
		reader:    r,
		header:    header,
		blobStart: MagicLength + HeaderSizeNumberLength + headerSize,
	}, nil
}

// Archive provides concurrent io for a lar file, and can provide an
// io.Reader for each file separately to perform actions on.
type Archive struct {
	reader    io.ReaderAt
	header    Header
	blobStart int64
}

// Header returns the decoded archive header, index included.
func (a *Archive) Header() Header {
	return a.header
}

// Files returns the names of all files in the archive in index order.
func (a *Archive) Files() []string {
	names := make([]string, 0, len(a.header.Index))
	for _, entry := range a.header.Index {
		names = append(names, entry.Name)
	}
	return names
}

// ReadAll returns the entire contents of a file with a given name.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	entry, ok := a.find(name)
	if !ok {
		return nil, ErrNoEntry
	}

	section := io.NewSectionReader(a.reader, a.blobStart+entry.Offset, entry.CompressedSize)
	data, err := io.ReadAll(lz4.NewReader(section))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != entry.Size {
		return nil, ErrFileFormat
	}
	return data, nil
}

// Open returns a Reader for a file in the Archive.
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.find(name)
	if !ok {
		return nil, ErrNoEntry
	}

	section := io.NewSectionReader(a.reader, a.blobStart+entry.Offset, entry.CompressedSize)
	return &Reader{
		decoder: lz4.NewReader(section),
		size:    entry.Size,
	}, nil
}

func (a *Archive) find(name string) (IndexEntry, bool) {
	for _, entry := range a.header.Index {
		if entry.Name == name {
			return entry, true
		}
	}
	return IndexEntry{}, false
}

// Reader is a reader for a single file in an Archive. Abstracts away
// the location that needs to be known.
type Reader struct {
	decoder *lz4.Reader
	size    int64
}

// Read reads already decompressed data.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.decoder.Read(p)
}

// Size returns the decompressed size of the file.
func (r *Reader) Size() int64 {
	return r.size
}
