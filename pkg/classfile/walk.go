package classfile

import (
	"github.com/panbanda/invokecheck/pkg/invoke"
)

// Walk delivers the events of one pass over c to every visitor: VisitClass,
// then for each declared method a start event, its calls in program order
// and an end event. Methods are decoded before any of their events are
// emitted, so a decode error never leaves a method half delivered.
func Walk(c *Class, visitors ...invoke.Visitor) error {
	for _, v := range visitors {
		v.VisitClass(c.Name)
	}
	for _, m := range c.Methods {
		calls, err := c.Calls(m)
		if err != nil {
			return err
		}
		for _, v := range visitors {
			v.VisitMethodStart(m.Name, m.Descriptor)
			for _, call := range calls {
				v.VisitCall(call)
			}
			v.VisitMethodEnd()
		}
	}
	return nil
}

// Accept decodes data and walks it with the given visitors.
func Accept(data []byte, visitors ...invoke.Visitor) (*Class, error) {
	c, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := Walk(c, visitors...); err != nil {
		return c, err
	}
	return c, nil
}
