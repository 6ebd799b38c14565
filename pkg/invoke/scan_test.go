package invoke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helperCall(desc string) CallInstruction {
	return CallInstruction{Kind: KindVirtual, Owner: "com/example/Helper", Name: "helper", Descriptor: desc}
}

func TestNewScanState(t *testing.T) {
	s := NewScanState(3)
	assert.Equal(t, PhaseScanning, s.Phase)
	assert.Equal(t, 0, s.Matched)
	assert.False(t, s.Satisfied())

	zero := NewScanState(0)
	assert.True(t, zero.Satisfied(), "a zero requirement starts satisfied")
	assert.Equal(t, 0, zero.Matched)
}

func TestScanStateStep(t *testing.T) {
	m := NewMatcher()
	spec := CallSpec{Name: "helper", Descriptor: "(I)V", Count: 2}

	s0 := NewScanState(spec.Count)
	s1, err := s0.Step(helperCall("(I)V"), spec, m)
	require.NoError(t, err)
	assert.Equal(t, 1, s1.Matched)
	assert.Equal(t, PhaseScanning, s1.Phase)

	// Step does not mutate its receiver.
	assert.Equal(t, 0, s0.Matched)

	s2, err := s1.Step(helperCall("(J)V"), spec, m)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	s3, err := s2.Step(helperCall("(I)V"), spec, m)
	require.NoError(t, err)
	assert.Equal(t, 2, s3.Matched)
	assert.True(t, s3.Satisfied())
}

func TestScanStateSatisfiedIsTerminal(t *testing.T) {
	m := NewMatcher()
	spec := CallSpec{Name: "helper", Descriptor: "(I)V", Count: 1}

	s, err := NewScanState(1).Step(helperCall("(I)V"), spec, m)
	require.NoError(t, err)
	require.True(t, s.Satisfied())

	for _, c := range []CallInstruction{helperCall("(I)V"), helperCall("(J)V"), {Name: "other"}} {
		s, err = s.Step(c, spec, m)
		require.NoError(t, err)
		assert.True(t, s.Satisfied())
	}

	// A malformed descriptor after satisfaction is not inspected.
	s, err = s.Step(helperCall("(broken"), spec, m)
	require.NoError(t, err)
	assert.True(t, s.Satisfied())
}

func TestScanStateCountsPastRequired(t *testing.T) {
	m := NewMatcher()
	spec := CallSpec{Name: "helper", Descriptor: "(I)V", Count: 3}

	s := NewScanState(spec.Count)
	for i := 0; i < 4; i++ {
		var err error
		s, err = s.Step(helperCall("(I)V"), spec, m)
		require.NoError(t, err)
	}
	assert.True(t, s.Satisfied())
	assert.Equal(t, 4, s.Matched)

	zero, err := NewScanState(0).Step(helperCall("(I)V"), spec, m)
	require.NoError(t, err)
	assert.True(t, zero.Satisfied())
	assert.Equal(t, 1, zero.Matched)
}

func TestScanStateMalformedDescriptor(t *testing.T) {
	m := NewMatcher()
	spec := CallSpec{Name: "helper", Descriptor: "(I)V", Count: 1}

	s := NewScanState(1)
	next, err := s.Step(helperCall("(broken"), spec, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
	assert.Equal(t, s, next)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "scanning", PhaseScanning.String())
	assert.Equal(t, "satisfied", PhaseSatisfied.String())
	assert.Equal(t, "unknown", Phase(7).String())
}
