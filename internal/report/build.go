package report

import (
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/invokecheck/pkg/config"
)

// Build summarizes verdicts per rule. Verdicts refer to rules by RuleIndex;
// verdicts with an out-of-range index are ignored.
func Build(rules []config.Compiled, verdicts []Verdict, errs []FileError) *Report {
	sorted := make([]Verdict, len(verdicts))
	copy(sorted, verdicts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RuleIndex != sorted[j].RuleIndex {
			return sorted[i].RuleIndex < sorted[j].RuleIndex
		}
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		return sorted[i].Class < sorted[j].Class
	})

	// Bitmaps over verdict positions.
	selected := roaring.New()
	satisfied := roaring.New()
	errored := roaring.New()
	byRule := make([]*roaring.Bitmap, len(rules))
	for i := range byRule {
		byRule[i] = roaring.New()
	}
	kept := sorted[:0]
	for _, v := range sorted {
		if v.RuleIndex < 0 || v.RuleIndex >= len(rules) {
			continue
		}
		pos := uint32(len(kept))
		kept = append(kept, v)
		byRule[v.RuleIndex].Add(pos)
		switch {
		case v.Error != "":
			errored.Add(pos)
		case v.Selected():
			selected.Add(pos)
			if v.Verdict {
				satisfied.Add(pos)
			}
		}
	}

	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Rules:       make([]RuleSummary, len(rules)),
		Verdicts:    kept,
		Errors:      errs,
	}
	if r.Verdicts == nil {
		r.Verdicts = []Verdict{}
	}

	for i, c := range rules {
		rs := RuleSummary{
			Rule:      c.Rule.Label(),
			RuleID:    FormatRuleID(c.Rule.ID()),
			Classes:   int(roaring.And(byRule[i], selected).GetCardinality()),
			Satisfied: int(roaring.And(byRule[i], satisfied).GetCardinality()),
			Errors:    int(roaring.And(byRule[i], errored).GetCardinality()),
		}
		rs.Status = ruleStatus(rs)
		r.Rules[i] = rs

		switch rs.Status {
		case StatusSatisfied:
			r.Summary.Satisfied++
		case StatusUnsatisfied:
			r.Summary.Unsatisfied++
		case StatusNotFound:
			r.Summary.NotFound++
		case StatusError:
			r.Summary.Errored++
		}
	}
	r.Summary.Rules = len(rules)
	r.Summary.FileErrors = len(errs)
	r.Passed = len(rules) > 0 && r.Summary.Satisfied == len(rules)
	return r
}

func ruleStatus(rs RuleSummary) Status {
	switch {
	case rs.Errors > 0:
		return StatusError
	case rs.Classes == 0:
		return StatusNotFound
	case rs.Satisfied == rs.Classes:
		return StatusSatisfied
	default:
		return StatusUnsatisfied
	}
}

// Failed returns the verdicts of selected classes that did not satisfy
// their rule.
func (r *Report) Failed() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if v.Error == "" && v.Selected() && !v.Verdict {
			out = append(out, v)
		}
	}
	return out
}
