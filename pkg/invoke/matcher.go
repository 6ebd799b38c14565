package invoke

import (
	"errors"
	"fmt"

	"github.com/panbanda/invokecheck/pkg/descriptor"
)

// OwnerComparator decides whether an observed owner satisfies the required one.
type OwnerComparator func(want, got TypeName) bool

// ExactOwner compares qualified names for identity. There is no subtype
// reasoning and no resolution of unqualified names.
func ExactOwner(want, got TypeName) bool {
	return want == got
}

// Matcher decides whether a call instruction matches a call specification.
type Matcher struct {
	owners OwnerComparator
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithOwnerComparator replaces the exact owner comparison. It is the hook for
// callers that need to accept unqualified owner names.
func WithOwnerComparator(fn OwnerComparator) MatcherOption {
	return func(m *Matcher) {
		if fn != nil {
			m.owners = fn
		}
	}
}

// NewMatcher creates a matcher using exact owner comparison by default.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{owners: ExactOwner}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match checks name, then owner, then descriptor, stopping at the first
// mismatch. A descriptor that does not parse is reported as an error.
func (m *Matcher) Match(call CallInstruction, spec CallSpec) (bool, error) {
	if call.Name != spec.Name {
		return false, nil
	}
	if spec.Owner != nil && !m.owners(*spec.Owner, call.Owner) {
		return false, nil
	}
	if spec.Descriptor == "" {
		return true, nil
	}
	ok, err := descriptor.Equal(spec.Descriptor, call.Descriptor)
	if err != nil {
		return false, wrapDescriptorErr(err)
	}
	return ok, nil
}

func wrapDescriptorErr(err error) error {
	if errors.Is(err, descriptor.ErrMalformed) {
		return fmt.Errorf("%w: %w", ErrMalformedDescriptor, err)
	}
	return err
}
