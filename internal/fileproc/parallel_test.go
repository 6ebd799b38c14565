package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"testing"
)

func paths(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("file%02d.class", i)
	}
	return out
}

func TestForEachFile(t *testing.T) {
	files := paths(20)
	results, errs := ForEachFile(context.Background(), files, func(path string) (string, error) {
		return path, nil
	})

	if errs != nil {
		t.Errorf("Unexpected errors: %v", errs)
	}
	if len(results) != len(files) {
		t.Fatalf("Expected %d results, got %d", len(files), len(results))
	}
	sort.Strings(results)
	for i, r := range results {
		if r != files[i] {
			t.Errorf("results[%d] = %s, want %s", i, r, files[i])
		}
	}
}

func TestForEachFile_EmptyFileList(t *testing.T) {
	results, errs := ForEachFile(context.Background(), nil, func(path string) (int, error) {
		return 1, nil
	})
	if results != nil {
		t.Errorf("Expected nil for empty file list, got %v", results)
	}
	if errs != nil {
		t.Errorf("Expected nil errors for empty file list, got %v", errs)
	}
}

func TestForEachFileN_CollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	files := paths(10)
	var progress atomic.Int32

	results, errs := ForEachFileN(context.Background(), files, 3, func(path string) (string, error) {
		if path == "file03.class" || path == "file07.class" {
			return "", boom
		}
		return path, nil
	}, func() { progress.Add(1) })

	if len(results) != 8 {
		t.Errorf("Expected 8 results, got %d", len(results))
	}
	if !errs.HasErrors() {
		t.Fatal("Expected errors")
	}
	sorted := errs.Sorted()
	if len(sorted) != 2 || sorted[0].Path != "file03.class" || sorted[1].Path != "file07.class" {
		t.Errorf("Sorted() = %v", sorted)
	}
	if !errors.Is(sorted[0], boom) {
		t.Errorf("ProcessingError should unwrap to the cause")
	}
	if got := progress.Load(); got != 10 {
		t.Errorf("progress called %d times, want 10", got)
	}
}

func TestForEachFileN_RespectsWorkerLimit(t *testing.T) {
	var active, peak atomic.Int32
	_, _ = ForEachFileN(context.Background(), paths(30), 2, func(path string) (int, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		runtime.Gosched()
		active.Add(-1)
		return 0, nil
	}, nil)

	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d exceeds limit 2", peak.Load())
	}
}

func TestForEachFileN_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results, errs := ForEachFileN(ctx, paths(5), 1, func(path string) (int, error) {
		calls.Add(1)
		return 1, nil
	}, nil)

	if len(results) != 0 || calls.Load() != 0 {
		t.Errorf("no file should be processed after cancellation, got %d results", len(results))
	}
	if !errs.HasErrors() {
		t.Fatal("Expected context errors")
	}
	for _, e := range errs.Sorted() {
		if !errors.Is(e, context.Canceled) {
			t.Errorf("error for %s = %v, want context.Canceled", e.Path, e.Err)
		}
	}
}

func TestProcessingErrors(t *testing.T) {
	var nilErrs *ProcessingErrors
	if nilErrs.HasErrors() {
		t.Error("nil ProcessingErrors should have no errors")
	}

	errs := &ProcessingErrors{}
	if errs.Error() != "no errors" {
		t.Errorf("Error() = %q", errs.Error())
	}
	errs.Add("a.class", errors.New("bad magic"))
	if errs.Error() != "a.class: bad magic" {
		t.Errorf("Error() = %q", errs.Error())
	}
	errs.Add("b.class", errors.New("truncated"))
	if errs.Error() != "2 files failed to process (first: a.class: bad magic)" {
		t.Errorf("Error() = %q", errs.Error())
	}
}

func TestWorkerCount(t *testing.T) {
	if got := WorkerCount(3); got != 3 {
		t.Errorf("WorkerCount(3) = %d", got)
	}
	if got := WorkerCount(0); got != runtime.NumCPU()*DefaultWorkerMultiplier {
		t.Errorf("WorkerCount(0) = %d", got)
	}
}
