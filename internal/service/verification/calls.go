package verification

import (
	"bytes"
	"context"
	"os"
	"sort"

	"github.com/panbanda/invokecheck/internal/fileproc"
	"github.com/panbanda/invokecheck/internal/report"
	"github.com/panbanda/invokecheck/pkg/classfile"
)

type listing struct {
	classes []report.ClassCalls
	errors  []report.FileError
}

// ListCalls decodes every class in files and lists its call instructions.
func (s *Service) ListCalls(ctx context.Context, files []string, onProgress fileproc.ProgressFunc) (*report.CallListing, error) {
	results, errs := fileproc.ForEachFileN(ctx, files, s.maxWorkers, listFile, onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &report.CallListing{Classes: []report.ClassCalls{}}
	for _, r := range results {
		out.Classes = append(out.Classes, r.classes...)
		out.Errors = append(out.Errors, r.errors...)
	}
	if errs.HasErrors() {
		for _, e := range errs.Sorted() {
			out.Errors = append(out.Errors, report.FileError{Path: e.Path, Error: e.Err.Error()})
		}
	}
	sort.Slice(out.Classes, func(i, j int) bool { return out.Classes[i].Source < out.Classes[j].Source })
	sort.Slice(out.Errors, func(i, j int) bool { return out.Errors[i].Path < out.Errors[j].Path })
	return out, nil
}

func listFile(path string) (listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return listing{}, err
	}

	var res listing
	if !classfile.IsArchiveName(path) {
		cc, err := listClass(path, data)
		if err != nil {
			return listing{}, err
		}
		res.classes = append(res.classes, cc)
		return res, nil
	}

	err = classfile.ReadJarFrom(bytes.NewReader(data), int64(len(data)), func(name string, entry []byte, readErr error) error {
		source := path + "!" + name
		if readErr != nil {
			res.errors = append(res.errors, report.FileError{Path: source, Error: readErr.Error()})
			return nil
		}
		cc, err := listClass(source, entry)
		if err != nil {
			res.errors = append(res.errors, report.FileError{Path: source, Error: err.Error()})
			return nil
		}
		res.classes = append(res.classes, cc)
		return nil
	})
	if err != nil {
		return listing{}, err
	}
	return res, nil
}

func listClass(source string, data []byte) (report.ClassCalls, error) {
	c, err := classfile.Decode(data)
	if err != nil {
		return report.ClassCalls{}, err
	}
	bodies, err := c.Bodies()
	if err != nil {
		return report.ClassCalls{}, err
	}

	cc := report.ClassCalls{Source: source, Class: c.Name, Methods: make([]report.MethodCalls, len(bodies))}
	for i, b := range bodies {
		cc.Methods[i] = report.MethodCalls{Name: b.Name, Descriptor: b.Descriptor, Calls: b.Calls}
	}
	return cc, nil
}
