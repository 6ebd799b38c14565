package invoke

import (
	"fmt"

	"github.com/panbanda/invokecheck/pkg/descriptor"
)

// Selector decides whether a visited method is the target method.
type Selector struct {
	name string
	desc *descriptor.Descriptor
}

// NewSelector builds a selector for spec. A configured descriptor is parsed
// once here so that selection itself cannot fail.
func NewSelector(spec TargetSpec) (*Selector, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	s := &Selector{name: spec.Name}
	if spec.Descriptor != "" {
		d, err := descriptor.Resolve(spec.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", spec.Name, wrapDescriptorErr(err))
		}
		s.desc = &d
	}
	return s, nil
}

// IsTarget reports whether the method is the target. A method descriptor
// that does not parse never selects.
func (s *Selector) IsTarget(name, desc string) bool {
	if name != s.name {
		return false
	}
	if s.desc == nil {
		return true
	}
	d, err := descriptor.Parse(desc)
	if err != nil {
		return false
	}
	return s.desc.Equivalent(d)
}
