package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/invokecheck/internal/testutil"
	"github.com/panbanda/invokecheck/pkg/config"
)

func TestNew(t *testing.T) {
	svc := New()
	if svc == nil || svc.config == nil {
		t.Fatal("New() returned nil or has nil config")
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := &config.Config{}
	svc := New(WithConfig(cfg))
	if svc.config != cfg {
		t.Error("WithConfig did not set config")
	}
}

func TestScanPaths_InvalidPath(t *testing.T) {
	svc := New(WithConfig(config.DefaultConfig()))
	_, err := svc.ScanPaths([]string{"/nonexistent/path/that/does/not/exist"})
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	var pathErr *PathError
	if !errors.As(err, &pathErr) {
		t.Errorf("expected *PathError, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("PathError should unwrap to os.ErrNotExist")
	}
}

func TestScanPaths_ValidDir(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string][]byte{
		"com/example/Bank.class": testutil.NewClass("com/example/Bank").Bytes(),
		"lib/app.jar":            {},
		"README.md":              []byte("# app\n"),
	})

	svc := New(WithConfig(config.DefaultConfig()))
	result, err := svc.ScanPaths([]string{tmpDir})
	if err != nil {
		t.Fatalf("ScanPaths() error = %v", err)
	}
	want := []string{
		filepath.Join(tmpDir, "com/example/Bank.class"),
		filepath.Join(tmpDir, "lib/app.jar"),
	}
	if len(result.Files) != len(want) {
		t.Fatalf("Files = %v, want %v", result.Files, want)
	}
	for i := range want {
		if result.Files[i] != want[i] {
			t.Errorf("Files[%d] = %s, want %s", i, result.Files[i], want[i])
		}
	}
	if len(result.Explicit) != 0 {
		t.Errorf("Explicit = %v, want none", result.Explicit)
	}
}

func TestScanPaths_ExplicitFile(t *testing.T) {
	tmpDir := t.TempDir()
	classFile := filepath.Join(tmpDir, "Bank.class")
	testutil.WriteFile(t, classFile, testutil.NewClass("Bank").Bytes())
	textFile := filepath.Join(tmpDir, "notes.txt")
	testutil.WriteFile(t, textFile, []byte("notes"))

	svc := New(WithConfig(config.DefaultConfig()))
	result, err := svc.ScanPaths([]string{classFile, textFile})
	if err != nil {
		t.Fatalf("ScanPaths() error = %v", err)
	}
	if len(result.Files) != 1 || result.Files[0] != classFile {
		t.Errorf("Files = %v, want [%s]", result.Files, classFile)
	}
	if len(result.Explicit) != 1 {
		t.Errorf("Explicit = %v, want one entry", result.Explicit)
	}
}

func TestScanPaths_Deduplicates(t *testing.T) {
	tmpDir := t.TempDir()
	classFile := filepath.Join(tmpDir, "A.class")
	testutil.WriteFile(t, classFile, testutil.NewClass("A").Bytes())

	svc := New(WithConfig(config.DefaultConfig()))
	result, err := svc.ScanPaths([]string{tmpDir, classFile, tmpDir})
	if err != nil {
		t.Fatalf("ScanPaths() error = %v", err)
	}
	if len(result.Files) != 1 {
		t.Errorf("expected 1 file, got %v", result.Files)
	}
}

func TestScanPaths_MultiplePaths(t *testing.T) {
	tmpDir1 := t.TempDir()
	tmpDir2 := t.TempDir()
	testutil.WriteFile(t, filepath.Join(tmpDir1, "A.class"), testutil.NewClass("A").Bytes())
	testutil.WriteFile(t, filepath.Join(tmpDir2, "B.class"), testutil.NewClass("B").Bytes())

	svc := New(WithConfig(config.DefaultConfig()))
	result, err := svc.ScanPaths([]string{tmpDir1, tmpDir2})
	if err != nil {
		t.Fatalf("ScanPaths() error = %v", err)
	}
	if len(result.Files) != 2 {
		t.Errorf("expected 2 files, got %d", len(result.Files))
	}
}

func TestScanPaths_ExcludedPattern(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string][]byte{
		"a/A.class":           testutil.NewClass("a/A").Bytes(),
		"a/module-info.class": testutil.NewClass("module-info").Bytes(),
	})

	svc := New(WithConfig(config.DefaultConfig()))
	result, err := svc.ScanPaths([]string{tmpDir})
	if err != nil {
		t.Fatalf("ScanPaths() error = %v", err)
	}
	if len(result.Files) != 1 || filepath.Base(result.Files[0]) != "A.class" {
		t.Errorf("Files = %v, want only A.class", result.Files)
	}
}

func TestFilterBySize(t *testing.T) {
	tmpDir := t.TempDir()
	smallFile := filepath.Join(tmpDir, "Small.class")
	testutil.WriteFile(t, smallFile, []byte("small"))
	largeFile := filepath.Join(tmpDir, "Large.class")
	testutil.WriteFile(t, largeFile, make([]byte, 1000))

	svc := New(WithConfig(config.DefaultConfig()))
	filtered, skipped := svc.FilterBySize([]string{smallFile, largeFile}, 100)

	if len(filtered) != 1 {
		t.Errorf("expected 1 filtered file, got %d", len(filtered))
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", skipped)
	}
}

func TestPathError(t *testing.T) {
	err := &PathError{Path: "/foo", Err: os.ErrNotExist}
	expected := "invalid path /foo: file does not exist"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
	if err.Unwrap() != os.ErrNotExist {
		t.Error("Unwrap returned wrong error")
	}
}

func TestScanError(t *testing.T) {
	err := &ScanError{Path: "/foo", Err: os.ErrPermission}
	expected := "failed to scan directory /foo: permission denied"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
	if err.Unwrap() != os.ErrPermission {
		t.Error("Unwrap returned wrong error")
	}
}
