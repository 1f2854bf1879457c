// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lar is an api for an lz4 backed archive format. Its purpose
// is to get resources from disk to a usable state as fast as possible.
// The archive itself is not compressed in any form, every file in it is
// individually compressed, so it knows where all the files are located
// before they're read and can decompress each one on the fly. This
// compromises space efficiency a little, but makes the format well
// suited for memory mapped reading, and an archive can be read from
// concurrently.
package lar

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
)

// package errors
var (
	ErrFileFormat = errors.New("corrupted or not a lar archive")
	ErrNoEntry    = errors.New("no entry with that name in the archive")
)

// Sizes relevant to the header of the file
const (
	MagicLength            = 4
	HeaderSizeNumberLength = 8
)

var larMagic = []byte("LAR\x00")

// IndexEntry is info for one file in the file index. Offset is relative
// to the start of the blob section, right after the encoded header.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the file header for lar files.
type Header struct {
	Author      string
	DateCreated int64
	Version     int64
	Index       []IndexEntry
}

func int64ToBinary(num int64) []byte {
	buf := make([]byte, HeaderSizeNumberLength)
	binary.LittleEndian.PutUint64(buf, uint64(num))
	return buf
}

func binaryToInt64(bts []byte) (int64, error) {
	if len(bts) < HeaderSizeNumberLength {
		return 0, ErrFileFormat
	}
	return int64(binary.LittleEndian.Uint64(bts)), nil
}

func encodeHeader(h *Header) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeHeader(h *Header, data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(h)
}
