// Package classfile decodes compiled JVM class files far enough to list the
// methods of a class and the call instructions of each method body.
package classfile

import (
	"errors"
	"fmt"

	"github.com/panbanda/invokecheck/pkg/descriptor"
	"github.com/panbanda/invokecheck/pkg/invoke"
)

// Magic is the first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

var (
	// ErrInvalidClass is returned for structurally invalid class files.
	ErrInvalidClass = errors.New("invalid class file")

	// ErrTruncated is returned when the data ends before a structure does.
	ErrTruncated = fmt.Errorf("%w: unexpected end of data", ErrInvalidClass)
)

// Method access flags used by the decoder.
const (
	AccStatic   uint16 = 0x0008
	AccNative   uint16 = 0x0100
	AccAbstract uint16 = 0x0400
)

// Class is a decoded class file.
type Class struct {
	Name         invoke.TypeName
	Super        invoke.TypeName
	MajorVersion uint16
	MinorVersion uint16
	AccessFlags  uint16
	Interfaces   []invoke.TypeName
	Methods      []Method

	pool pool
}

// Method is one method_info entry. Code is nil for abstract and native
// methods.
type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Code        []byte
}

// HasCode reports whether the method carries a Code attribute.
func (m Method) HasCode() bool {
	return m.Code != nil
}

// Decode parses a class file. Method descriptors are validated so that a
// decoded Class never hands malformed descriptors to a verifier.
func Decode(data []byte) (*Class, error) {
	r := newReader(data)

	magic, err := r.u4()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08X", ErrInvalidClass, magic)
	}

	c := &Class{}
	if c.MinorVersion, err = r.u2(); err != nil {
		return nil, err
	}
	if c.MajorVersion, err = r.u2(); err != nil {
		return nil, err
	}
	if c.pool, err = readPool(r); err != nil {
		return nil, err
	}
	if c.AccessFlags, err = r.u2(); err != nil {
		return nil, err
	}

	this, err := r.u2()
	if err != nil {
		return nil, err
	}
	name, err := c.pool.className(this)
	if err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	c.Name = invoke.TypeName(name)

	super, err := r.u2()
	if err != nil {
		return nil, err
	}
	// java/lang/Object and module-info have no superclass.
	if super != 0 {
		s, err := c.pool.className(super)
		if err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
		c.Super = invoke.TypeName(s)
	}

	ifaceCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		iface, err := c.pool.className(idx)
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		c.Interfaces = append(c.Interfaces, invoke.TypeName(iface))
	}

	fieldCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(fieldCount); i++ {
		if err := r.skip(6); err != nil {
			return nil, err
		}
		if err := skipAttributes(r); err != nil {
			return nil, err
		}
	}

	methodCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	c.Methods = make([]Method, 0, methodCount)
	for i := 0; i < int(methodCount); i++ {
		m, err := c.readMethod(r)
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		c.Methods = append(c.Methods, m)
	}

	// Class attributes (SourceFile, InnerClasses, ...) are not needed.
	if err := skipAttributes(r); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Class) readMethod(r *reader) (Method, error) {
	var m Method
	var err error
	if m.AccessFlags, err = r.u2(); err != nil {
		return m, err
	}
	nameIdx, err := r.u2()
	if err != nil {
		return m, err
	}
	if m.Name, err = c.pool.utf8(nameIdx); err != nil {
		return m, err
	}
	descIdx, err := r.u2()
	if err != nil {
		return m, err
	}
	if m.Descriptor, err = c.pool.utf8(descIdx); err != nil {
		return m, err
	}
	if _, err := descriptor.Parse(m.Descriptor); err != nil {
		return m, fmt.Errorf("%w: %s: %w", ErrInvalidClass, m.Name, err)
	}

	count, err := r.u2()
	if err != nil {
		return m, err
	}
	for i := 0; i < int(count); i++ {
		attrName, body, err := c.readAttribute(r)
		if err != nil {
			return m, err
		}
		if attrName != "Code" {
			continue
		}
		if m.Code != nil {
			return m, fmt.Errorf("%w: %s has more than one Code attribute", ErrInvalidClass, m.Name)
		}
		if m.Code, err = codeBytes(body); err != nil {
			return m, fmt.Errorf("%s: %w", m.Name, err)
		}
	}
	return m, nil
}

func (c *Class) readAttribute(r *reader) (string, []byte, error) {
	nameIdx, err := r.u2()
	if err != nil {
		return "", nil, err
	}
	name, err := c.pool.utf8(nameIdx)
	if err != nil {
		return "", nil, err
	}
	n, err := r.u4()
	if err != nil {
		return "", nil, err
	}
	if uint64(n) > uint64(r.remaining()) {
		return "", nil, ErrTruncated
	}
	body, err := r.bytes(int(n))
	if err != nil {
		return "", nil, err
	}
	return name, body, nil
}

func skipAttributes(r *reader) error {
	count, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if err := r.skip(2); err != nil {
			return err
		}
		n, err := r.u4()
		if err != nil {
			return err
		}
		if uint64(n) > uint64(r.remaining()) {
			return ErrTruncated
		}
		if err := r.skip(int(n)); err != nil {
			return err
		}
	}
	return nil
}

// codeBytes extracts the bytecode array from a Code attribute body:
// max_stack u2, max_locals u2, code_length u4, code[code_length], ...
func codeBytes(body []byte) ([]byte, error) {
	r := newReader(body)
	if err := r.skip(4); err != nil {
		return nil, err
	}
	n, err := r.u4()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.remaining()) {
		return nil, ErrTruncated
	}
	code, err := r.bytes(int(n))
	if err != nil {
		return nil, err
	}
	if code == nil {
		code = []byte{}
	}
	return code, nil
}
