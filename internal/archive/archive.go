// Package archive reads class files out of jar archives and class
// directories.
package archive

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	apperrors "github.com/jindex/pkg/errors"
)

const (
	classSuffix    = ".class"
	moduleInfoName = "module-info.class"
)

// Entry is one class file read from an archive.
type Entry struct {
	// Name is the entry path inside the archive, e.g. "java/lang/String.class".
	Name string
	Data []byte
}

// VisitFunc receives each class entry. Returning an error stops the walk
// and is returned from Walk unchanged.
type VisitFunc func(name string, data []byte) error

// IsClassEntry reports whether an archive entry holds an indexable class.
// Directory entries and module descriptors are excluded.
func IsClassEntry(name string) bool {
	if strings.HasSuffix(name, "/") || !strings.HasSuffix(name, classSuffix) {
		return false
	}
	return path.Base(name) != moduleInfoName
}

// Walk calls fn for every class entry of the jar or class directory at
// location. Entries are visited one at a time so only one class body is
// held in memory. A missing, unreadable or corrupt archive fails with a
// CodeArchiveError naming location and, where known, the entry.
func Walk(location string, fn VisitFunc) error {
	info, err := os.Stat(location)
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeArchiveError, err, "failed to open archive %s", location)
	}
	if info.IsDir() {
		return walkDir(location, fn)
	}

	f, err := os.Open(location)
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeArchiveError, err, "failed to open archive %s", location)
	}
	defer f.Close()

	return WalkReader(f, info.Size(), location, fn)
}

// WalkReader is Walk over an in-memory or already opened zip archive.
// source names the archive in errors.
func WalkReader(r io.ReaderAt, size int64, source string, fn VisitFunc) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeArchiveError, err, "failed to read zip file %s", source)
	}

	var buf bytes.Buffer
	for _, file := range zr.File {
		if file.FileInfo().IsDir() || !IsClassEntry(file.Name) {
			continue
		}

		data, err := readEntry(file, &buf)
		if err != nil {
			return apperrors.Wrapf(apperrors.CodeArchiveError, err, "failed to read %s,%s", source, file.Name)
		}
		if err := fn(file.Name, data); err != nil {
			return err
		}
	}
	return nil
}

// readEntry returns a copy of the entry body; buf is reused between
// entries.
func readEntry(file *zip.File, buf *bytes.Buffer) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf.Reset()
	if size := file.UncompressedSize64; size > 0 && size < 1<<30 {
		buf.Grow(int(size))
	}
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func walkDir(root string, fn VisitFunc) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return apperrors.Wrapf(apperrors.CodeArchiveError, err, "failed to read directory %s", root)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return apperrors.Wrapf(apperrors.CodeArchiveError, err, "failed to resolve %s", p)
		}
		name := filepath.ToSlash(rel)
		if !IsClassEntry(name) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return apperrors.Wrapf(apperrors.CodeArchiveError, err, "failed to read %s,%s", root, name)
		}
		return fn(name, data)
	})
}

// ReadClasses collects every class entry of the archive at location.
func ReadClasses(location string) ([]Entry, error) {
	var entries []Entry
	err := Walk(location, func(name string, data []byte) error {
		entries = append(entries, Entry{Name: name, Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
