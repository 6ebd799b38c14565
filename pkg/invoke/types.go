package invoke

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSpecification is returned for caller mistakes such as a
	// negative required count.
	ErrInvalidSpecification = errors.New("invalid specification")

	// ErrMalformedDescriptor is returned when a descriptor taking part in a
	// comparison does not parse. It indicates a caller or decoding bug.
	ErrMalformedDescriptor = errors.New("malformed descriptor")
)

// TypeName is a JVM class name in internal form, e.g. "java/lang/String".
type TypeName string

// InternalName converts a dotted source name to internal form. Names that
// are already internal are returned unchanged.
func InternalName(name string) TypeName {
	return TypeName(strings.ReplaceAll(strings.TrimSpace(name), ".", "/"))
}

// String implements fmt.Stringer for toon serialization.
func (t TypeName) String() string {
	return string(t)
}

// Kind is the invoke opcode a call instruction was decoded from.
type Kind string

// String implements fmt.Stringer for toon serialization.
func (k Kind) String() string {
	return string(k)
}

const (
	KindVirtual   Kind = "invokevirtual"
	KindSpecial   Kind = "invokespecial"
	KindStatic    Kind = "invokestatic"
	KindInterface Kind = "invokeinterface"
)

// CallInstruction is one call site observed in a method body.
type CallInstruction struct {
	Kind       Kind     `json:"kind" toon:"kind"`
	Owner      TypeName `json:"owner" toon:"owner"`
	Name       string   `json:"name" toon:"name"`
	Descriptor string   `json:"descriptor" toon:"descriptor"`
}

func (c CallInstruction) String() string {
	return fmt.Sprintf("%s %s.%s%s", c.Kind, c.Owner, c.Name, c.Descriptor)
}

// CallSpec describes the call sites a target method must contain.
type CallSpec struct {
	// Owner is the required owner type; nil matches any owner.
	Owner *TypeName
	// Name must equal the called method name exactly.
	Name string
	// Descriptor must be equivalent to the call descriptor; empty matches any.
	Descriptor string
	// Count is the number of matching call sites required.
	Count int
}

// Validate rejects specifications that cannot be verified.
func (s CallSpec) Validate() error {
	if s.Count < 0 {
		return fmt.Errorf("%w: required count %d is negative", ErrInvalidSpecification, s.Count)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: called method name is empty", ErrInvalidSpecification)
	}
	return nil
}

// TargetSpec identifies the method whose body is scanned.
type TargetSpec struct {
	// Type is the declaring class; empty accepts any class.
	Type TypeName
	// Name must equal the method name exactly.
	Name string
	// Descriptor constrains overloads; empty accepts any descriptor.
	Descriptor string
}

// Validate rejects target specifications that cannot select a method.
func (s TargetSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: target method name is empty", ErrInvalidSpecification)
	}
	return nil
}

// Policy combines the verdicts of several selected overloads.
type Policy string

// String implements fmt.Stringer for toon serialization.
func (p Policy) String() string {
	return string(p)
}

const (
	// PolicyAny is satisfied when at least one selected method is satisfied.
	PolicyAny Policy = "any"
	// PolicyAll is satisfied when every selected method is satisfied.
	PolicyAll Policy = "all"
)

// ParsePolicy converts a string to Policy, defaulting to PolicyAny.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return PolicyAny, nil
	case "all":
		return PolicyAll, nil
	default:
		return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidSpecification, s)
	}
}

// MethodBody is a materialized method: its name, descriptor and the call
// instructions of its body in program order.
type MethodBody struct {
	Name       string
	Descriptor string
	Calls      []CallInstruction
}

// MethodVerdict records the outcome of scanning one selected method.
// Matched counts every matching call site in the body, including those
// after the required count was reached.
type MethodVerdict struct {
	Name       string `json:"name" toon:"name"`
	Descriptor string `json:"descriptor" toon:"descriptor"`
	Matched    int    `json:"matched" toon:"matched"`
	Satisfied  bool   `json:"satisfied" toon:"satisfied"`
}

// Result is the outcome of one verification run.
type Result struct {
	Class   TypeName        `json:"class" toon:"class"`
	Verdict bool            `json:"verdict" toon:"verdict"`
	Methods []MethodVerdict `json:"methods,omitempty" toon:"methods,omitempty"`
}
