// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/exp/mmap"

	"github.com/berylllium/lise/utility/lar"
)

var (
	currentUserName string
	author          *string

	version  = flag.Int64("version", 1, "Archive version number to create it with")
	extract  = flag.String("e", "", "Extract the given archive into the working directory")
	compress = flag.String("c", "", "Compress the given file/folder")
	list     = flag.String("l", "", "List the contents of the given archive")
	dstFile  = flag.String("f", "out.lar", "Destination file")
	silent   = flag.Bool("s", false, "Silent")
)

func init() {
	if u, err := user.Current(); err != nil {
		currentUserName = "unknown"
	} else {
		currentUserName = u.Name
	}
	author = flag.String("author", currentUserName, "Set the author of the package when compressing")
}

func main() {
	var opMade bool
	flag.Parse()

	var ops int
	for _, op := range []string{*extract, *compress, *list} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		panic(errors.New("only one operation at a time"))
	}

	if *extract != "" {
		opMade = true
		if err := extractFiles(); err != nil {
			panic(err)
		}
	}

	if *compress != "" {
		opMade = true
		if err := compressFiles(); err != nil {
			panic(err)
		}
	}

	if *list != "" {
		opMade = true
		if err := listFiles(); err != nil {
			panic(err)
		}
	}

	if !opMade {
		flag.PrintDefaults()
	}
}

func compressFiles() error {
	if _, err := os.Stat(*dstFile); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	dst, err := os.Create(*dstFile)
	if err != nil {
		return err
	}
	defer dst.Close()

	var filesToCompress []string
	err = filepath.Walk(*compress, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		filesToCompress = append(filesToCompress, path)
		return nil
	})
	if err != nil {
		return err
	}

	larBuilder := lar.NewBuilder(lar.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})

	for _, ftc := range filesToCompress {
		data, err := os.ReadFile(ftc)
		if err != nil {
			return err
		}
		if err := larBuilder.Add(filepath.ToSlash(ftc), data); err != nil {
			return err
		}
		if !*silent {
			fmt.Printf("added %s\n", ftc)
		}
	}

	_, err = larBuilder.WriteTo(dst)
	return err
}

func extractFiles() error {
	r, err := mmap.Open(*extract)
	if err != nil {
		return err
	}
	defer r.Close()

	ar, err := lar.Open(r)
	if err != nil {
		return err
	}

	for _, name := range ar.Files() {
		target := filepath.Clean(filepath.FromSlash(name))
		if filepath.IsAbs(target) || strings.HasPrefix(target, "..") {
			return fmt.Errorf("refusing to extract outside the working directory: %s", name)
		}

		data, err := ar.ReadAll(name)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(target); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return err
		}
		if !*silent {
			fmt.Printf("extracted %s\n", target)
		}
	}
	return nil
}

func listFiles() error {
	r, err := mmap.Open(*list)
	if err != nil {
		return err
	}
	defer r.Close()

	ar, err := lar.Open(r)
	if err != nil {
		return err
	}

	header := ar.Header()
	fmt.Printf("%s, version %d, created %s by %s\n", *list, header.Version,
		time.Unix(header.DateCreated, 0).Format("2006-01-02"), header.Author)
	for _, entry := range header.Index {
		fmt.Printf("%12d %12d  %s\n", entry.Size, entry.CompressedSize, entry.Name)
	}
	return nil
}
