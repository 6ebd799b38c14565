package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/invokecheck/internal/output"
	"github.com/panbanda/invokecheck/pkg/config"
	"github.com/panbanda/invokecheck/pkg/invoke"
)

func compileRules(t *testing.T, names ...string) []config.Compiled {
	t.Helper()
	rules := make([]config.Rule, len(names))
	for i, name := range names {
		rules[i] = config.Rule{Name: name, TargetMethod: "run", CalledMethod: name}
	}
	compiled, err := config.CompileRules(rules)
	require.NoError(t, err)
	return compiled
}

func selected(rule int, class string, ok bool) Verdict {
	matched := 0
	if ok {
		matched = 1
	}
	return Verdict{
		RuleIndex: rule,
		Source:    class + ".class",
		Class:     invoke.TypeName(class),
		Verdict:   ok,
		Methods:   []invoke.MethodVerdict{{Name: "run", Descriptor: "()V", Matched: matched, Satisfied: ok}},
	}
}

func TestBuild_Statuses(t *testing.T) {
	rules := compileRules(t, "satisfied", "unsatisfied", "missing", "broken")
	verdicts := []Verdict{
		selected(0, "a/A", true),
		selected(0, "a/B", true),
		selected(1, "a/A", true),
		selected(1, "a/B", false),
		{RuleIndex: 2, Source: "a/A.class", Class: "a/A"},
		{RuleIndex: 3, Source: "a/A.class", Class: "a/A", Error: "malformed descriptor"},
	}

	r := Build(rules, verdicts, nil)

	require.Len(t, r.Rules, 4)
	assert.Equal(t, StatusSatisfied, r.Rules[0].Status)
	assert.Equal(t, 2, r.Rules[0].Classes)
	assert.Equal(t, 2, r.Rules[0].Satisfied)

	assert.Equal(t, StatusUnsatisfied, r.Rules[1].Status)
	assert.Equal(t, 2, r.Rules[1].Classes)
	assert.Equal(t, 1, r.Rules[1].Satisfied)

	assert.Equal(t, StatusNotFound, r.Rules[2].Status)
	assert.Equal(t, 0, r.Rules[2].Classes)

	assert.Equal(t, StatusError, r.Rules[3].Status)
	assert.Equal(t, 1, r.Rules[3].Errors)

	assert.Equal(t, Summary{Rules: 4, Satisfied: 1, Unsatisfied: 1, NotFound: 1, Errored: 1}, r.Summary)
	assert.False(t, r.Passed)
}

func TestBuild_Passed(t *testing.T) {
	rules := compileRules(t, "only")
	r := Build(rules, []Verdict{selected(0, "a/A", true)}, nil)
	assert.True(t, r.Passed)
	assert.Empty(t, r.Failed())
}

func TestBuild_NoRulesNeverPasses(t *testing.T) {
	r := Build(nil, nil, nil)
	assert.False(t, r.Passed)
	assert.NotNil(t, r.Verdicts)
}

func TestBuild_SortsAndDropsUnknownRules(t *testing.T) {
	rules := compileRules(t, "first", "second")
	r := Build(rules, []Verdict{
		selected(1, "a/B", true),
		selected(0, "a/C", true),
		selected(7, "a/Z", true),
		selected(0, "a/A", true),
	}, nil)

	require.Len(t, r.Verdicts, 3)
	assert.Equal(t, invoke.TypeName("a/A"), r.Verdicts[0].Class)
	assert.Equal(t, invoke.TypeName("a/C"), r.Verdicts[1].Class)
	assert.Equal(t, invoke.TypeName("a/B"), r.Verdicts[2].Class)
}

func TestBuild_RuleIdentity(t *testing.T) {
	rules := compileRules(t, "audit")
	r := Build(rules, nil, []FileError{{Path: "bad.class", Error: "invalid class file"}})

	assert.Equal(t, "audit", r.Rules[0].Rule)
	assert.Equal(t, FormatRuleID(rules[0].Rule.ID()), r.Rules[0].RuleID)
	assert.Len(t, r.Rules[0].RuleID, 16)
	assert.Equal(t, 1, r.Summary.FileErrors)
}

func TestReport_Failed(t *testing.T) {
	rules := compileRules(t, "r")
	r := Build(rules, []Verdict{
		selected(0, "a/A", true),
		selected(0, "a/B", false),
		{RuleIndex: 0, Class: "a/C", Error: "boom"},
	}, nil)

	failed := r.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, invoke.TypeName("a/B"), failed[0].Class)
}

func TestReport_Render(t *testing.T) {
	rules := compileRules(t, "audit|transfer")
	r := Build(rules, []Verdict{
		selected(0, "com/example/Bank", false),
	}, []FileError{{Path: "broken.class", Error: "invalid class file: bad magic"}})
	r.Summary.Files = 2
	r.Summary.Classes = 1

	var text bytes.Buffer
	require.NoError(t, r.RenderText(&text, false))
	assert.Contains(t, text.String(), "Invocation Verification")
	assert.Contains(t, text.String(), "Classes: 1")
	assert.Contains(t, text.String(), "com/example/Bank")
	assert.Contains(t, text.String(), "run()V matched 0")
	assert.Contains(t, text.String(), "broken.class: invalid class file: bad magic")
	assert.Contains(t, text.String(), "Result: FAILED")

	var md bytes.Buffer
	require.NoError(t, r.RenderMarkdown(&md))
	assert.Contains(t, md.String(), "# Invocation Verification")
	assert.Contains(t, md.String(), "| audit\\|transfer | unsatisfied | 1 | 0 |")
	assert.Contains(t, md.String(), "`run()V`")
	assert.Contains(t, md.String(), "**Result:** failed")

	assert.Same(t, r, r.RenderData())
}

func TestReport_FormatterOutput(t *testing.T) {
	rules := compileRules(t, "audit")
	r := Build(rules, []Verdict{selected(0, "com/example/Bank", true)}, nil)

	for _, format := range []output.Format{output.FormatJSON, output.FormatTOON, output.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, output.NewWriterFormatter(format, &buf, false).Output(r))
			assert.Contains(t, buf.String(), "com/example/Bank")
			assert.Contains(t, buf.String(), "satisfied")
			assert.NotContains(t, buf.String(), "RuleIndex")
		})
	}
}

func TestCallListing(t *testing.T) {
	l := &CallListing{
		Classes: []ClassCalls{{
			Source: "Bank.class",
			Class:  "com/example/Bank",
			Methods: []MethodCalls{
				{Name: "transfer", Descriptor: "(JJ)V", Calls: []invoke.CallInstruction{
					{Kind: invoke.KindStatic, Owner: "com/example/Audit", Name: "record", Descriptor: "(J)V"},
					{Kind: invoke.KindVirtual, Owner: "java/io/PrintStream", Name: "println", Descriptor: "(Ljava/lang/String;)V"},
				}},
				{Name: "close", Descriptor: "()V"},
			},
		}},
	}
	assert.Equal(t, 2, l.TotalCalls())

	var text bytes.Buffer
	require.NoError(t, l.RenderText(&text, false))
	assert.Contains(t, text.String(), "com/example/Bank (Bank.class)")
	assert.Contains(t, text.String(), "    invokestatic com/example/Audit.record(J)V")
	assert.Contains(t, text.String(), "1 classes, 2 calls")

	var md bytes.Buffer
	require.NoError(t, l.RenderMarkdown(&md))
	assert.Contains(t, md.String(), "| `transfer(JJ)V` | invokevirtual | `java/io/PrintStream` | `println` |")
	assert.Contains(t, md.String(), "| `close()V` | | | | |")

	var empty bytes.Buffer
	require.NoError(t, (&CallListing{}).RenderText(&empty, false))
	assert.Equal(t, "No classes found\n", empty.String())
}
