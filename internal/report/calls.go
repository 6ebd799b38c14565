package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/invokecheck/pkg/invoke"
)

// MethodCalls lists the call instructions of one method body.
type MethodCalls struct {
	Name       string                   `json:"name" toon:"name"`
	Descriptor string                   `json:"descriptor" toon:"descriptor"`
	Calls      []invoke.CallInstruction `json:"calls" toon:"calls"`
}

// ClassCalls lists the methods of one class.
type ClassCalls struct {
	Source  string          `json:"source" toon:"source"`
	Class   invoke.TypeName `json:"class" toon:"class"`
	Methods []MethodCalls   `json:"methods" toon:"methods"`
}

// CallListing is the decoded call stream of a set of classes.
type CallListing struct {
	Classes []ClassCalls `json:"classes" toon:"classes"`
	Errors  []FileError  `json:"errors,omitempty" toon:"errors,omitempty"`
}

// TotalCalls returns the number of call instructions in the listing.
func (l *CallListing) TotalCalls() int {
	n := 0
	for _, c := range l.Classes {
		for _, m := range c.Methods {
			n += len(m.Calls)
		}
	}
	return n
}

// RenderText implements output.Renderable for text output.
func (l *CallListing) RenderText(w io.Writer, colored bool) error {
	if len(l.Classes) == 0 && len(l.Errors) == 0 {
		fmt.Fprintln(w, "No classes found")
		return nil
	}

	for _, c := range l.Classes {
		header := fmt.Sprintf("%s (%s)", c.Class, c.Source)
		if colored {
			color.New(color.Bold).Fprintln(w, header)
		} else {
			fmt.Fprintln(w, header)
		}
		for _, m := range c.Methods {
			fmt.Fprintf(w, "  %s%s\n", m.Name, m.Descriptor)
			for _, call := range m.Calls {
				kind := string(call.Kind)
				if colored {
					kind = color.CyanString(kind)
				}
				fmt.Fprintf(w, "    %s %s.%s%s\n", kind, call.Owner, call.Name, call.Descriptor)
			}
		}
		fmt.Fprintln(w)
	}

	for _, e := range l.Errors {
		fmt.Fprintf(w, "error: %s: %s\n", e.Path, e.Error)
	}
	fmt.Fprintf(w, "%d classes, %d calls\n", len(l.Classes), l.TotalCalls())
	return nil
}

// RenderMarkdown implements output.Renderable for markdown output.
func (l *CallListing) RenderMarkdown(w io.Writer) error {
	fmt.Fprintln(w, "# Call Instructions")
	fmt.Fprintln(w)

	for _, c := range l.Classes {
		fmt.Fprintf(w, "## `%s`\n\n", c.Class)
		fmt.Fprintf(w, "Source: `%s`\n\n", c.Source)
		fmt.Fprintln(w, "| Method | Kind | Owner | Name | Descriptor |")
		fmt.Fprintln(w, "|--------|------|-------|------|------------|")
		for _, m := range c.Methods {
			method := "`" + m.Name + m.Descriptor + "`"
			if len(m.Calls) == 0 {
				fmt.Fprintf(w, "| %s | | | | |\n", method)
				continue
			}
			for _, call := range m.Calls {
				fmt.Fprintf(w, "| %s | %s | `%s` | `%s` | `%s` |\n",
					method, call.Kind, call.Owner, call.Name, call.Descriptor)
			}
		}
		fmt.Fprintln(w)
	}

	if len(l.Errors) > 0 {
		fmt.Fprintln(w, "## Errors")
		fmt.Fprintln(w)
		for _, e := range l.Errors {
			fmt.Fprintf(w, "- `%s`: %s\n", e.Path, strings.TrimSpace(e.Error))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// RenderData implements output.Renderable for JSON/TOON output.
func (l *CallListing) RenderData() any {
	return l
}
