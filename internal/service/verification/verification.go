// Package verification runs invocation rules over class files and archives.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/panbanda/invokecheck/internal/cache"
	"github.com/panbanda/invokecheck/internal/fileproc"
	"github.com/panbanda/invokecheck/internal/logging"
	"github.com/panbanda/invokecheck/internal/report"
	"github.com/panbanda/invokecheck/pkg/classfile"
	"github.com/panbanda/invokecheck/pkg/config"
	"github.com/panbanda/invokecheck/pkg/invoke"
)

// ErrNoRules is returned when Verify is called without rules.
var ErrNoRules = errors.New("no rules to verify")

// Service verifies compiled rules against inputs found by the scanner.
type Service struct {
	config     *config.Config
	cache      *cache.Cache
	logger     *logging.Logger
	maxWorkers int
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithCache sets the result cache. Without one every input is decoded.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMaxWorkers overrides the configured worker count.
func WithMaxWorkers(n int) Option {
	return func(s *Service) {
		s.maxWorkers = n
	}
}

// New creates a new verification service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.config == nil {
		cfg, err := config.LoadOrDefault()
		if err != nil {
			s.logger.Warnf("config: %v; using defaults", err)
		}
		if cfg == nil {
			cfg = config.DefaultConfig()
		}
		s.config = cfg
	}
	if s.maxWorkers == 0 {
		s.maxWorkers = s.config.Workers.Max
	}
	return s
}

// fileResult is the outcome for one input file. Archives contribute one
// class per decoded entry.
type fileResult struct {
	Classes  int                `json:"classes"`
	Verdicts []cachedVerdict    `json:"verdicts,omitempty"`
	Errors   []report.FileError `json:"errors,omitempty"`
}

// cachedVerdict keeps the rule position, which report.Verdict does not
// serialize.
type cachedVerdict struct {
	Index int `json:"index"`
	report.Verdict
}

// Verify checks every rule against every class in files. Inputs that cannot
// be read or decoded are reported and do not stop the run.
func (s *Service) Verify(ctx context.Context, files []string, rules []config.Compiled, onProgress fileproc.ProgressFunc) (*report.Report, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}

	fingerprint := rulesFingerprint(rules)
	results, errs := fileproc.ForEachFileN(ctx, files, s.maxWorkers, func(path string) (fileResult, error) {
		return s.verifyFile(path, rules, fingerprint)
	}, onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		verdicts   []report.Verdict
		fileErrors []report.FileError
		classes    int
	)
	for _, r := range results {
		classes += r.Classes
		for _, cv := range r.Verdicts {
			v := cv.Verdict
			v.RuleIndex = cv.Index
			verdicts = append(verdicts, v)
		}
		fileErrors = append(fileErrors, r.Errors...)
	}
	if errs.HasErrors() {
		for _, e := range errs.Sorted() {
			fileErrors = append(fileErrors, report.FileError{Path: e.Path, Error: e.Err.Error()})
		}
	}
	sort.Slice(fileErrors, func(i, j int) bool { return fileErrors[i].Path < fileErrors[j].Path })

	rep := report.Build(rules, verdicts, fileErrors)
	rep.Summary.Files = len(files)
	rep.Summary.Classes = classes
	return rep, nil
}

func (s *Service) verifyFile(path string, rules []config.Compiled, fingerprint string) (fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileResult{}, err
	}

	key := cache.Key(fingerprint, path)
	hash := cache.HashBytes(data)
	if cached, ok := s.cache.GetWithHash(key, hash); ok {
		var res fileResult
		if err := json.Unmarshal(cached, &res); err == nil {
			s.logger.Debugf("cache hit: %s", path)
			return res, nil
		}
	}

	var res fileResult
	if classfile.IsArchiveName(path) {
		err = classfile.ReadJarFrom(bytes.NewReader(data), int64(len(data)), func(name string, entry []byte, readErr error) error {
			source := path + "!" + name
			if readErr != nil {
				s.logger.Warnf("%s: %v", source, readErr)
				res.Errors = append(res.Errors, report.FileError{Path: source, Error: readErr.Error()})
				return nil
			}
			verdicts, err := verifyClass(source, entry, rules)
			if err != nil {
				s.logger.Warnf("%s: %v", source, err)
				res.Errors = append(res.Errors, report.FileError{Path: source, Error: err.Error()})
				return nil
			}
			res.Classes++
			res.Verdicts = append(res.Verdicts, verdicts...)
			return nil
		})
		if err != nil {
			return fileResult{}, err
		}
	} else {
		verdicts, err := verifyClass(path, data, rules)
		if err != nil {
			return fileResult{}, err
		}
		res.Classes = 1
		res.Verdicts = verdicts
	}

	if s.cache.Enabled() {
		if encoded, err := json.Marshal(res); err == nil {
			if err := s.cache.SetWithHash(key, hash, encoded); err != nil {
				s.logger.Debugf("cache write %s: %v", path, err)
			}
		}
	}
	return res, nil
}

// verifyClass decodes one class and runs every applicable rule in a single
// pass. A class is reported for a rule when it declares a target method or
// when the rule names it as the target type.
func verifyClass(source string, data []byte, rules []config.Compiled) ([]cachedVerdict, error) {
	c, err := classfile.Decode(data)
	if err != nil {
		return nil, err
	}

	type run struct {
		index    int
		verifier *invoke.Verifier
		err      error
	}
	var runs []run
	var visitors []invoke.Visitor
	for i, rule := range rules {
		if rule.Target.Type != "" && rule.Target.Type != c.Name {
			continue
		}
		v, err := invoke.NewVerifier(rule.Target, rule.Call, rule.Options()...)
		if err != nil {
			runs = append(runs, run{index: i, err: err})
			continue
		}
		runs = append(runs, run{index: i, verifier: v})
		visitors = append(visitors, v)
	}
	if len(runs) == 0 {
		return nil, nil
	}

	if err := classfile.Walk(c, visitors...); err != nil {
		return nil, err
	}

	var out []cachedVerdict
	for _, r := range runs {
		rule := rules[r.index]
		v := report.Verdict{
			Rule:   rule.Rule.Label(),
			RuleID: report.FormatRuleID(rule.Rule.ID()),
			Source: source,
			Class:  c.Name,
		}
		if r.err == nil {
			var res invoke.Result
			res, r.err = r.verifier.Result()
			v.Verdict = res.Verdict
			v.Methods = res.Methods
		}
		if r.err != nil {
			v.Error = r.err.Error()
		}
		if v.Error == "" && !v.Selected() && rule.Target.Type == "" {
			continue
		}
		out = append(out, cachedVerdict{Index: r.index, Verdict: v})
	}
	return out, nil
}

// rulesFingerprint identifies a rule list for cache keys. Rule order is part
// of it because verdicts refer to rules by position.
func rulesFingerprint(rules []config.Compiled) string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = report.FormatRuleID(r.Rule.ID())
	}
	return fmt.Sprintf("v1-%s", cache.HashBytes([]byte(cache.Key(ids...))))
}
