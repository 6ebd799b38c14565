// Package testutil provides fixtures for tests: file trees on disk, class
// files assembled from a small builder and jar archives.
package testutil

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteFile writes data to a file, creating parent directories.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of relative path -> content.
func CreateFileTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, name), content)
	}
}

// ListFiles returns all files in a directory recursively, sorted.
func ListFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir(%s) error: %v", root, err)
	}
	sort.Strings(files)
	return files
}

// JarBytes builds an in-memory zip archive. Entries are written in sorted
// name order so archive order is deterministic.
func JarBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	return jarBytes(t, entries, zip.Deflate)
}

// StoredJarBytes is JarBytes with uncompressed entries, so each entry's
// content appears verbatim in the archive and can be located and altered.
func StoredJarBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	return jarBytes(t, entries, zip.Store)
}

// CorruptEntry flips the last byte of content inside a stored archive. The
// entry keeps its recorded CRC, so reading it fails the checksum.
func CorruptEntry(t *testing.T, archive, content []byte) []byte {
	t.Helper()
	i := bytes.Index(archive, content)
	if i < 0 || len(content) == 0 {
		t.Fatalf("CorruptEntry: content not found in archive")
	}
	out := bytes.Clone(archive)
	out[i+len(content)-1] ^= 0xFF
	return out
}

func jarBytes(t *testing.T, entries map[string][]byte, method uint16) []byte {
	t.Helper()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			t.Fatalf("zip Create(%s) error: %v", name, err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			t.Fatalf("zip Write(%s) error: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close error: %v", err)
	}
	return buf.Bytes()
}

// WriteJar writes a jar archive to path.
func WriteJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	WriteFile(t, path, JarBytes(t, entries))
}
