// Package invoke verifies that a target method contains at least a required
// number of call instructions matching a call specification.
package invoke

import (
	"fmt"

	"github.com/panbanda/invokecheck/pkg/descriptor"
)

// Visitor receives the events of a single pass over a class. Traversal
// cannot be stopped early: every method body is delivered in full.
type Visitor interface {
	VisitClass(name TypeName)
	VisitMethodStart(name, desc string)
	VisitCall(call CallInstruction)
	VisitMethodEnd()
}

// Verifier checks one (target method, call spec) pair against the class
// traversal it is subscribed to. A Verifier must not be shared between
// goroutines; create one per verification run.
type Verifier struct {
	target   TargetSpec
	call     CallSpec
	policy   Policy
	selector *Selector
	matcher  *Matcher

	class   TypeName
	classOK bool
	active  bool
	method  MethodVerdict
	scan    ScanState
	methods []MethodVerdict
	err     error
}

// Compile-time check that Verifier implements Visitor.
var _ Visitor = (*Verifier)(nil)

// Option is a functional option for configuring Verifier.
type Option func(*Verifier)

// WithPolicy sets how verdicts of several selected overloads are combined.
// By default PolicyAny is used.
func WithPolicy(p Policy) Option {
	return func(v *Verifier) {
		v.policy = p
	}
}

// WithMatcher replaces the default exact-owner matcher.
func WithMatcher(m *Matcher) Option {
	return func(v *Verifier) {
		if m != nil {
			v.matcher = m
		}
	}
}

// NewVerifier validates both specifications and returns a ready Verifier.
func NewVerifier(target TargetSpec, call CallSpec, opts ...Option) (*Verifier, error) {
	if err := call.Validate(); err != nil {
		return nil, err
	}
	if call.Descriptor != "" {
		if _, err := descriptor.Resolve(call.Descriptor); err != nil {
			return nil, fmt.Errorf("called method %s: %w", call.Name, wrapDescriptorErr(err))
		}
	}
	selector, err := NewSelector(target)
	if err != nil {
		return nil, err
	}

	v := &Verifier{
		target:   target,
		call:     call,
		policy:   PolicyAny,
		selector: selector,
		matcher:  NewMatcher(),
		classOK:  true,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.policy != PolicyAny && v.policy != PolicyAll {
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidSpecification, v.policy)
	}
	return v, nil
}

// Reset discards all state so the Verifier can observe another class.
func (v *Verifier) Reset() {
	v.class = ""
	v.classOK = true
	v.active = false
	v.method = MethodVerdict{}
	v.scan = ScanState{}
	v.methods = nil
	v.err = nil
}

// VisitClass starts a new run for the named class. When the target names a
// type, methods of any other class are never selected.
func (v *Verifier) VisitClass(name TypeName) {
	v.Reset()
	v.class = name
	v.classOK = v.target.Type == "" || v.target.Type == name
}

// VisitMethodStart installs a fresh scan when the method is the target.
func (v *Verifier) VisitMethodStart(name, desc string) {
	if v.active {
		v.VisitMethodEnd()
	}
	if !v.classOK || !v.selector.IsTarget(name, desc) {
		return
	}
	v.active = true
	v.method = MethodVerdict{Name: name, Descriptor: desc}
	v.scan = NewScanState(v.call.Count)
}

// VisitCall steps the active scan. Calls outside the target are ignored.
// The first error is kept and the rest of the stream is still consumed.
func (v *Verifier) VisitCall(call CallInstruction) {
	if !v.active {
		return
	}
	next, err := v.scan.Step(call, v.call, v.matcher)
	if err != nil {
		if v.err == nil {
			v.err = fmt.Errorf("%s.%s%s: %w", v.class, v.method.Name, v.method.Descriptor, err)
		}
		return
	}
	v.scan = next
}

// VisitMethodEnd records the verdict of the active scan and discards it.
func (v *Verifier) VisitMethodEnd() {
	if !v.active {
		return
	}
	v.method.Matched = v.scan.Matched
	v.method.Satisfied = v.scan.Satisfied()
	v.methods = append(v.methods, v.method)
	v.active = false
	v.method = MethodVerdict{}
	v.scan = ScanState{}
}

// Result combines the recorded method verdicts. No selected method yields a
// false verdict, not an error.
func (v *Verifier) Result() (Result, error) {
	if v.active {
		v.VisitMethodEnd()
	}
	if v.err != nil {
		return Result{}, v.err
	}
	res := Result{
		Class:   v.class,
		Methods: append([]MethodVerdict(nil), v.methods...),
	}
	res.Verdict = combine(v.policy, v.methods)
	return res, nil
}

// Verdict is a shorthand for Result().Verdict.
func (v *Verifier) Verdict() (bool, error) {
	res, err := v.Result()
	if err != nil {
		return false, err
	}
	return res.Verdict, nil
}

func combine(policy Policy, methods []MethodVerdict) bool {
	if len(methods) == 0 {
		return false
	}
	switch policy {
	case PolicyAll:
		for _, m := range methods {
			if !m.Satisfied {
				return false
			}
		}
		return true
	default:
		for _, m := range methods {
			if m.Satisfied {
				return true
			}
		}
		return false
	}
}

// Verify runs a Verifier over methods that have already been decoded, in
// the order given.
func Verify(class TypeName, methods []MethodBody, target TargetSpec, call CallSpec, opts ...Option) (Result, error) {
	v, err := NewVerifier(target, call, opts...)
	if err != nil {
		return Result{}, err
	}
	v.VisitClass(class)
	for _, m := range methods {
		v.VisitMethodStart(m.Name, m.Descriptor)
		for _, c := range m.Calls {
			v.VisitCall(c)
		}
		v.VisitMethodEnd()
	}
	return v.Result()
}
