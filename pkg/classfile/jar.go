package classfile

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxEntrySize bounds the uncompressed size of a single archive entry.
const MaxEntrySize = 64 << 20

// EntryFunc is called for each class entry of an archive. When the entry
// cannot be read, data is nil and readErr describes the failure; returning
// nil moves on to the next entry. A non-nil return stops the iteration.
type EntryFunc func(name string, data []byte, readErr error) error

// ReadJar opens a jar (or any zip archive) and calls fn for every .class
// entry in archive order. Directories and other resources are skipped.
func ReadJar(path string, fn EntryFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return ReadJarFrom(f, info.Size(), fn)
}

// ReadJarFrom is ReadJar over an already open archive.
func ReadJarFrom(r io.ReaderAt, size int64, fn EntryFunc) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !IsClassName(f.Name) {
			continue
		}
		data, readErr := readEntry(f, MaxEntrySize)
		if readErr != nil {
			data = nil
		}
		if err := fn(f.Name, data, readErr); err != nil {
			return err
		}
	}
	return nil
}

// ErrEntryTooLarge is returned for entries larger than MaxEntrySize.
var ErrEntryTooLarge = errors.New("archive entry too large")

// readEntry reads at most limit bytes. The header size is checked first and
// the bytes actually read are checked again, since headers can understate.
func readEntry(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrEntryTooLarge, f.UncompressedSize64, limit)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrEntryTooLarge, limit)
	}
	return data, nil
}

// IsClassName reports whether a file or entry name is a class file.
func IsClassName(name string) bool {
	return strings.HasSuffix(name, ".class")
}

// IsArchiveName reports whether a file name is a jar, war or zip archive.
func IsArchiveName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".jar") || strings.HasSuffix(lower, ".war") || strings.HasSuffix(lower, ".zip")
}
