package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/invokecheck/internal/output"
)

// RenderText implements output.Renderable for text output.
func (r *Report) RenderText(w io.Writer, colored bool) error {
	title := "Invocation Verification"
	if colored {
		color.New(color.Bold, color.FgCyan).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Files:   %d\n", r.Summary.Files)
	fmt.Fprintf(w, "Classes: %d\n", r.Summary.Classes)
	fmt.Fprintf(w, "Rules:   %d (%d satisfied, %d unsatisfied, %d not found, %d errored)\n",
		r.Summary.Rules, r.Summary.Satisfied, r.Summary.Unsatisfied, r.Summary.NotFound, r.Summary.Errored)
	fmt.Fprintln(w)

	if len(r.Rules) > 0 {
		rows := make([][]string, len(r.Rules))
		for i, rs := range r.Rules {
			status := string(rs.Status)
			if colored {
				status = output.StatusColor(status, status)
			}
			rows[i] = []string{rs.Rule, status, strconv.Itoa(rs.Classes), strconv.Itoa(rs.Satisfied)}
		}
		table := output.NewTable("Rules", []string{"Rule", "Status", "Classes", "Satisfied"}, rows, nil, nil)
		if err := table.RenderText(w, colored); err != nil {
			return err
		}
	}

	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintln(w, "Unsatisfied:")
		for _, v := range failed {
			fmt.Fprintf(w, "  %s: %s (%s)\n", v.Rule, v.Class, v.Source)
			for _, m := range v.Methods {
				if !m.Satisfied {
					fmt.Fprintf(w, "    %s%s matched %d\n", m.Name, m.Descriptor, m.Matched)
				}
			}
		}
		fmt.Fprintln(w)
	}

	errs := r.verdictErrors()
	if len(errs) > 0 || len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, v := range errs {
			fmt.Fprintf(w, "  %s: %s (%s): %s\n", v.Rule, v.Class, v.Source, v.Error)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s: %s\n", e.Path, e.Error)
		}
		fmt.Fprintln(w)
	}

	result := "PASSED"
	if !r.Passed {
		result = "FAILED"
	}
	if colored {
		if r.Passed {
			result = color.GreenString(result)
		} else {
			result = color.RedString(result)
		}
	}
	fmt.Fprintf(w, "Result: %s\n", result)
	return nil
}

// RenderMarkdown implements output.Renderable for markdown output.
func (r *Report) RenderMarkdown(w io.Writer) error {
	fmt.Fprintln(w, "# Invocation Verification")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Metric | Value |")
	fmt.Fprintln(w, "|--------|-------|")
	fmt.Fprintf(w, "| Files | %d |\n", r.Summary.Files)
	fmt.Fprintf(w, "| Classes | %d |\n", r.Summary.Classes)
	fmt.Fprintf(w, "| Rules | %d |\n", r.Summary.Rules)
	fmt.Fprintf(w, "| Satisfied | %d |\n", r.Summary.Satisfied)
	fmt.Fprintf(w, "| Unsatisfied | %d |\n", r.Summary.Unsatisfied)
	fmt.Fprintf(w, "| Not found | %d |\n", r.Summary.NotFound)
	fmt.Fprintf(w, "| Errored | %d |\n", r.Summary.Errored)
	fmt.Fprintln(w)

	if len(r.Rules) > 0 {
		fmt.Fprintln(w, "## Rules")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Rule | Status | Classes | Satisfied |")
		fmt.Fprintln(w, "|------|--------|---------|-----------|")
		for _, rs := range r.Rules {
			fmt.Fprintf(w, "| %s | %s | %d | %d |\n", escapeCell(rs.Rule), rs.Status, rs.Classes, rs.Satisfied)
		}
		fmt.Fprintln(w)
	}

	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintln(w, "## Unsatisfied")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Rule | Class | Source | Method | Matched |")
		fmt.Fprintln(w, "|------|-------|--------|--------|---------|")
		for _, v := range failed {
			for _, m := range v.Methods {
				if m.Satisfied {
					continue
				}
				fmt.Fprintf(w, "| %s | `%s` | `%s` | `%s%s` | %d |\n",
					escapeCell(v.Rule), v.Class, v.Source, m.Name, m.Descriptor, m.Matched)
			}
		}
		fmt.Fprintln(w)
	}

	errs := r.verdictErrors()
	if len(errs) > 0 || len(r.Errors) > 0 {
		fmt.Fprintln(w, "## Errors")
		fmt.Fprintln(w)
		for _, v := range errs {
			fmt.Fprintf(w, "- **%s** `%s`: %s\n", escapeCell(v.Rule), v.Source, v.Error)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(w, "- `%s`: %s\n", e.Path, e.Error)
		}
		fmt.Fprintln(w)
	}

	if r.Passed {
		fmt.Fprintln(w, "**Result:** passed")
	} else {
		fmt.Fprintln(w, "**Result:** failed")
	}
	return nil
}

// RenderData implements output.Renderable for JSON/TOON output.
func (r *Report) RenderData() any {
	return r
}

func (r *Report) verdictErrors() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if v.Error != "" {
			out = append(out, v)
		}
	}
	return out
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
