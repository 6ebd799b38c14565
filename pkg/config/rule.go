package config

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/invokecheck/pkg/descriptor"
	"github.com/panbanda/invokecheck/pkg/invoke"
)

// DefaultCount is the required number of call sites when a rule omits count.
const DefaultCount = 1

// Rule is one invocation precondition: the target method must contain at
// least Count calls to the called method. Class names may be dotted or
// internal, descriptors may be in JVM or Java source form.
type Rule struct {
	Name             string `koanf:"name" toml:"name,omitempty" json:"name,omitempty"`
	TargetClass      string `koanf:"target_class" toml:"target_class,omitempty" json:"target_class,omitempty"`
	TargetMethod     string `koanf:"target_method" toml:"target_method" json:"target_method"`
	TargetDescriptor string `koanf:"target_descriptor" toml:"target_descriptor,omitempty" json:"target_descriptor,omitempty"`
	CalledClass      string `koanf:"called_class" toml:"called_class,omitempty" json:"called_class,omitempty"`
	CalledMethod     string `koanf:"called_method" toml:"called_method" json:"called_method"`
	CalledDescriptor string `koanf:"called_descriptor" toml:"called_descriptor,omitempty" json:"called_descriptor,omitempty"`
	Count            *int   `koanf:"count" toml:"count,omitempty" json:"count,omitempty"`
	Policy           string `koanf:"policy" toml:"policy,omitempty" json:"policy,omitempty"`
}

// Compiled is a rule converted to verifier inputs.
type Compiled struct {
	Rule   Rule
	Target invoke.TargetSpec
	Call   invoke.CallSpec
	Policy invoke.Policy
}

// Options returns the verifier options the rule implies.
func (c Compiled) Options() []invoke.Option {
	return []invoke.Option{invoke.WithPolicy(c.Policy)}
}

// RequiredCount returns Count or DefaultCount when it is unset.
func (r Rule) RequiredCount() int {
	if r.Count == nil {
		return DefaultCount
	}
	return *r.Count
}

// WithCount returns a copy of r requiring n call sites.
func (r Rule) WithCount(n int) Rule {
	r.Count = &n
	return r
}

// Compile converts names to internal form and descriptors to JVM form.
func (r Rule) Compile() (Compiled, error) {
	policy, err := invoke.ParsePolicy(r.Policy)
	if err != nil {
		return Compiled{}, err
	}
	targetDesc, err := jvmDescriptor(r.TargetDescriptor)
	if err != nil {
		return Compiled{}, fmt.Errorf("target_descriptor: %w", err)
	}
	calledDesc, err := jvmDescriptor(r.CalledDescriptor)
	if err != nil {
		return Compiled{}, fmt.Errorf("called_descriptor: %w", err)
	}

	c := Compiled{
		Rule:   r,
		Policy: policy,
		Target: invoke.TargetSpec{
			Type:       invoke.InternalName(r.TargetClass),
			Name:       r.TargetMethod,
			Descriptor: targetDesc,
		},
		Call: invoke.CallSpec{
			Name:       r.CalledMethod,
			Descriptor: calledDesc,
			Count:      r.RequiredCount(),
		},
	}
	if r.CalledClass != "" {
		owner := invoke.InternalName(r.CalledClass)
		c.Call.Owner = &owner
	}
	if err := c.Target.Validate(); err != nil {
		return Compiled{}, err
	}
	if err := c.Call.Validate(); err != nil {
		return Compiled{}, err
	}
	return c, nil
}

func jvmDescriptor(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	d, err := descriptor.Internalize(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", invoke.ErrMalformedDescriptor, err)
	}
	return d, nil
}

// ID is a stable fingerprint of the rule's semantics. The display name is
// not part of it.
func (r Rule) ID() uint64 {
	h := xxhash.New()
	for _, s := range []string{
		string(invoke.InternalName(r.TargetClass)), r.TargetMethod, r.TargetDescriptor,
		string(invoke.InternalName(r.CalledClass)), r.CalledMethod, r.CalledDescriptor,
		strconv.Itoa(r.RequiredCount()), r.Policy,
	} {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// Label returns the rule name, or a summary when the rule is unnamed.
func (r Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	target := r.TargetMethod
	if r.TargetClass != "" {
		target = r.TargetClass + "." + target
	}
	called := r.CalledMethod
	if r.CalledClass != "" {
		called = r.CalledClass + "." + called
	}
	return fmt.Sprintf("%s -> %s x%d", target, called, r.RequiredCount())
}

// CompileRules compiles every rule, stopping at the first error.
func CompileRules(rules []Rule) ([]Compiled, error) {
	out := make([]Compiled, 0, len(rules))
	for i, r := range rules {
		c, err := r.Compile()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Label(), err)
		}
		out = append(out, c)
	}
	return out, nil
}
