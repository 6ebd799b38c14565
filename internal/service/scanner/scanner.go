// Package scanner resolves command-line paths into verification inputs.
package scanner

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/panbanda/invokecheck/internal/scanner"
	"github.com/panbanda/invokecheck/pkg/config"
)

// ScanResult contains the result of a file scan.
type ScanResult struct {
	Files []string
	// Explicit lists inputs named directly rather than found by walking.
	Explicit []string
}

// Service provides file scanning functionality.
type Service struct {
	config *config.Config
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// New creates a new scanner service.
func New(opts ...Option) *Service {
	cfg, _ := config.LoadOrDefault()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Service{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanPaths scans directories, class files and archives and returns the
// inputs found, sorted and without duplicates. Files named explicitly are
// accepted even when .gitignore would hide them.
func (s *Service) ScanPaths(paths []string) (*ScanResult, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	scan := scanner.NewScanner(s.config)
	seen := make(map[string]bool)
	result := &ScanResult{}
	add := func(file string, explicit bool) {
		if seen[file] {
			return
		}
		seen[file] = true
		result.Files = append(result.Files, file)
		if explicit {
			result.Explicit = append(result.Explicit, file)
		}
	}

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, &PathError{Path: path, Err: err}
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, &PathError{Path: path, Err: err}
		}

		if !info.IsDir() {
			ok, err := scan.ScanFile(absPath)
			if err != nil {
				return nil, &PathError{Path: path, Err: err}
			}
			if ok {
				add(absPath, true)
			}
			continue
		}

		found, err := scan.ScanDir(absPath)
		if err != nil {
			return nil, &ScanError{Path: path, Err: err}
		}
		for _, f := range found {
			add(f, false)
		}
	}

	sort.Strings(result.Files)
	sort.Strings(result.Explicit)
	return result, nil
}

// FilterBySize filters files by maximum size.
func (s *Service) FilterBySize(files []string, maxSize int64) ([]string, int) {
	return scanner.FilterBySize(files, maxSize)
}

// PathError indicates an invalid path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "invalid path " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanError indicates a scanning failure.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return "failed to scan directory " + e.Path + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
