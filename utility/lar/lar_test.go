// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lar_test

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berylllium/lise/utility/lar"
)

var (
	testString1 = "vertex data pretending to be a shader blob"
	testString2 = "a slightly longer second file so the offsets move around a bit"
)

func buildTestArchive(t *testing.T) []byte {
	builder := lar.NewBuilder(lar.Header{
		Author:      "berylllium",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err := builder.Add("test", []byte(testString1)); err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("test2", []byte(testString2)); err != nil {
		t.Fatal(err)
	}

	buf := bytes.NewBuffer([]byte{})
	if _, err := builder.WriteTo(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	ar, err := lar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.Open("test")
	if err != nil {
		t.Fatal(err)
	}
	if f.Size() != int64(len(testString1)) {
		t.Errorf("expected size %d, got %d", len(testString1), f.Size())
	}

	result := make([]byte, len(testString1))
	if _, err := f.Read(result); err != nil {
		t.Error(err)
	}
	if strings.Compare(string(result), testString1) != 0 {
		t.Error("test string does not match up")
	}
}

func TestCreateAndReadAll(t *testing.T) {
	ar, err := lar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.ReadAll("test2")
	if err != nil {
		t.Error(err)
	}
	if strings.Compare(string(f), testString2) != 0 {
		t.Error("test string does not match up")
	}
}

func TestFilesKeepAddOrder(t *testing.T) {
	ar, err := lar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	files := ar.Files()
	if len(files) != 2 || files[0] != "test" || files[1] != "test2" {
		t.Errorf("expected [test test2], got %v", files)
	}
	if ar.Header().Author != "berylllium" {
		t.Errorf("expected the header to survive the round trip, got %+v", ar.Header())
	}
}

func TestReadAllUnknownName(t *testing.T) {
	ar, err := lar.Open(bytes.NewReader(buildTestArchive(t)))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ar.ReadAll("missing"); err != lar.ErrNoEntry {
		t.Errorf("expected ErrNoEntry, got %v", err)
	}
	if _, err := ar.Open("missing"); err != lar.ErrNoEntry {
		t.Errorf("expected ErrNoEntry, got %v", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := lar.Open(bytes.NewReader([]byte("TAR\x00 definitely not an archive"))); err != lar.ErrFileFormat {
		t.Errorf("expected ErrFileFormat for a wrong magic, got %v", err)
	}
	if _, err := lar.Open(bytes.NewReader([]byte("LA"))); err == nil {
		t.Error("expected a truncated file to fail to open")
	}
}

func TestConcurrentAdd(t *testing.T) {
	builder := lar.NewBuilder(lar.Header{Author: "berylllium", Version: 1})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("file%d", i)
			if err := builder.Add(name, []byte(strings.Repeat(name, 64))); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	buf := bytes.NewBuffer([]byte{})
	if _, err := builder.WriteTo(buf); err != nil {
		t.Fatal(err)
	}

	ar, err := lar.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(ar.Files()) != 8 {
		t.Errorf("expected 8 files, got %d", len(ar.Files()))
	}
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("file%d", i)
		data, err := ar.ReadAll(name)
		if err != nil {
			t.Error(err)
			continue
		}
		if string(data) != strings.Repeat(name, 64) {
			t.Errorf("contents of %s do not match up", name)
		}
	}
}
