// Package report aggregates per-class verdicts into a verification report.
package report

import (
	"fmt"
	"time"

	"github.com/panbanda/invokecheck/pkg/invoke"
)

// Status is the outcome of a rule across all verified classes.
type Status string

// String implements fmt.Stringer for toon serialization.
func (s Status) String() string {
	return string(s)
}

const (
	// StatusSatisfied means every class declaring the target method satisfied the rule.
	StatusSatisfied Status = "satisfied"
	// StatusUnsatisfied means at least one selected class did not satisfy the rule.
	StatusUnsatisfied Status = "unsatisfied"
	// StatusNotFound means no verified class declares the target method.
	StatusNotFound Status = "not_found"
	// StatusError means the rule could not be verified against some class.
	StatusError Status = "error"
)

// Verdict is the result of one rule against one class.
type Verdict struct {
	Rule      string                 `json:"rule" toon:"rule"`
	RuleID    string                 `json:"rule_id" toon:"rule_id"`
	RuleIndex int                    `json:"-" toon:"-"`
	Source    string                 `json:"source" toon:"source"`
	Class     invoke.TypeName        `json:"class" toon:"class"`
	Verdict   bool                   `json:"verdict" toon:"verdict"`
	Methods   []invoke.MethodVerdict `json:"methods,omitempty" toon:"methods,omitempty"`
	Error     string                 `json:"error,omitempty" toon:"error,omitempty"`
}

// Selected reports whether the class declared at least one target method.
func (v Verdict) Selected() bool {
	return len(v.Methods) > 0
}

// FileError is an input that could not be read or decoded.
type FileError struct {
	Path  string `json:"path" toon:"path"`
	Error string `json:"error" toon:"error"`
}

// RuleSummary is the outcome of one rule.
type RuleSummary struct {
	Rule      string `json:"rule" toon:"rule"`
	RuleID    string `json:"rule_id" toon:"rule_id"`
	Classes   int    `json:"classes" toon:"classes"`
	Satisfied int    `json:"satisfied" toon:"satisfied"`
	Errors    int    `json:"errors,omitempty" toon:"errors,omitempty"`
	Status    Status `json:"status" toon:"status"`
}

// Summary holds report-wide counts.
type Summary struct {
	Files       int `json:"files" toon:"files"`
	Classes     int `json:"classes" toon:"classes"`
	Rules       int `json:"rules" toon:"rules"`
	Satisfied   int `json:"satisfied" toon:"satisfied"`
	Unsatisfied int `json:"unsatisfied" toon:"unsatisfied"`
	NotFound    int `json:"not_found" toon:"not_found"`
	Errored     int `json:"errored" toon:"errored"`
	FileErrors  int `json:"file_errors" toon:"file_errors"`
}

// Report is the full verification result.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at" toon:"generated_at"`
	Paths       []string      `json:"paths,omitempty" toon:"paths,omitempty"`
	Passed      bool          `json:"passed" toon:"passed"`
	Summary     Summary       `json:"summary" toon:"summary"`
	Rules       []RuleSummary `json:"rules" toon:"rules"`
	Verdicts    []Verdict     `json:"verdicts" toon:"verdicts"`
	Errors      []FileError   `json:"errors,omitempty" toon:"errors,omitempty"`
}

// FormatRuleID renders a rule fingerprint the way reports display it.
func FormatRuleID(id uint64) string {
	return fmt.Sprintf("%016x", id)
}
