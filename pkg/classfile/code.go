package classfile

import (
	"fmt"

	"github.com/panbanda/invokecheck/pkg/invoke"
)

var invokeKinds = map[uint8]invoke.Kind{
	OpInvokevirtual:   invoke.KindVirtual,
	OpInvokespecial:   invoke.KindSpecial,
	OpInvokestatic:    invoke.KindStatic,
	OpInvokeinterface: invoke.KindInterface,
}

// Calls decodes the call instructions of a method body in program order.
// invokedynamic sites are skipped: they have no owner type to match.
// Methods without code have no calls.
func (c *Class) Calls(m Method) ([]invoke.CallInstruction, error) {
	if !m.HasCode() {
		return nil, nil
	}

	var calls []invoke.CallInstruction
	r := newReader(m.Code)
	for r.remaining() > 0 {
		pc := r.off
		op, _ := r.u1()

		switch width := operandWidth[op]; width {
		case invalid:
			return nil, fmt.Errorf("%w: invalid opcode 0x%02x at pc %d", ErrInvalidClass, op, pc)
		case variable:
			if err := skipVariable(r, op, pc); err != nil {
				return nil, err
			}
			continue
		default:
			kind, isCall := invokeKinds[op]
			if !isCall {
				if err := r.skip(int(width)); err != nil {
					return nil, fmt.Errorf("opcode 0x%02x at pc %d: %w", op, pc, err)
				}
				continue
			}

			idx, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("opcode 0x%02x at pc %d: %w", op, pc, err)
			}
			owner, name, desc, err := c.pool.memberRef(idx)
			if err != nil {
				return nil, fmt.Errorf("%s at pc %d: %w", kind, pc, err)
			}
			// invokeinterface carries a count byte and a zero byte.
			if err := r.skip(int(width) - 2); err != nil {
				return nil, fmt.Errorf("%s at pc %d: %w", kind, pc, err)
			}
			calls = append(calls, invoke.CallInstruction{
				Kind:       kind,
				Owner:      invoke.TypeName(owner),
				Name:       name,
				Descriptor: desc,
			})
		}
	}
	return calls, nil
}

// skipVariable advances past tableswitch, lookupswitch and wide.
func skipVariable(r *reader, op uint8, pc int) error {
	switch op {
	case OpTableswitch, OpLookupswitch:
		// Operands start at the next multiple of four from the code start.
		if err := r.skip((4 - (pc+1)%4) % 4); err != nil {
			return err
		}
		if _, err := r.s4(); err != nil { // default
			return err
		}
		if op == OpTableswitch {
			low, err := r.s4()
			if err != nil {
				return err
			}
			high, err := r.s4()
			if err != nil {
				return err
			}
			if high < low {
				return fmt.Errorf("%w: tableswitch at pc %d has high %d < low %d", ErrInvalidClass, pc, high, low)
			}
			return skipEntries(r, int64(high)-int64(low)+1, 4)
		}
		npairs, err := r.s4()
		if err != nil {
			return err
		}
		if npairs < 0 {
			return fmt.Errorf("%w: lookupswitch at pc %d has %d pairs", ErrInvalidClass, pc, npairs)
		}
		return skipEntries(r, int64(npairs), 8)

	case OpWide:
		next, err := r.u1()
		if err != nil {
			return err
		}
		switch {
		case next == OpIinc:
			return r.skip(4)
		case isWideable(next):
			return r.skip(2)
		default:
			return fmt.Errorf("%w: wide applied to opcode 0x%02x at pc %d", ErrInvalidClass, next, pc)
		}
	}
	return fmt.Errorf("%w: opcode 0x%02x at pc %d", ErrInvalidClass, op, pc)
}

func skipEntries(r *reader, n int64, size int64) error {
	total := n * size
	if total > int64(r.remaining()) {
		return ErrTruncated
	}
	return r.skip(int(total))
}

// Bodies decodes every method of the class into the form consumed by
// invoke.Verify.
func (c *Class) Bodies() ([]invoke.MethodBody, error) {
	bodies := make([]invoke.MethodBody, 0, len(c.Methods))
	for _, m := range c.Methods {
		calls, err := c.Calls(m)
		if err != nil {
			return nil, fmt.Errorf("%s.%s%s: %w", c.Name, m.Name, m.Descriptor, err)
		}
		bodies = append(bodies, invoke.MethodBody{Name: m.Name, Descriptor: m.Descriptor, Calls: calls})
	}
	return bodies, nil
}
