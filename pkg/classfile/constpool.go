package classfile

import "fmt"

// Constant pool tags.
// See: https://docs.oracle.com/javase/specs/jvms/se21/html/jvms-4.html#jvms-4.4
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref          uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

// constant is one constant pool slot. Only the fields relevant to name
// resolution are kept; numeric values are skipped.
type constant struct {
	tag  uint8
	utf8 string
	ref1 uint16
	ref2 uint16
}

// pool is the constant pool. Index 0 and the slot after a long or double
// are unusable and hold a zero constant.
type pool []constant

func readPool(r *reader) (pool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: constant pool count is zero", ErrInvalidClass)
	}

	p := make(pool, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		c := constant{tag: tag}
		switch tag {
		case TagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return nil, err
			}
			c.utf8 = decodeModifiedUTF8(b)
		case TagInteger, TagFloat:
			err = r.skip(4)
		case TagLong, TagDouble:
			err = r.skip(8)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.ref1, err = r.u2()
		case TagMethodHandle:
			if err = r.skip(1); err == nil {
				c.ref1, err = r.u2()
			}
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			if c.ref1, err = r.u2(); err == nil {
				c.ref2, err = r.u2()
			}
		default:
			return nil, fmt.Errorf("%w: unknown constant tag %d at index %d", ErrInvalidClass, tag, i)
		}
		if err != nil {
			return nil, err
		}
		p[i] = c
		if tag == TagLong || tag == TagDouble {
			i++
		}
	}
	return p, nil
}

func (p pool) get(i uint16, tags ...uint8) (constant, error) {
	if i == 0 || int(i) >= len(p) {
		return constant{}, fmt.Errorf("%w: constant index %d out of range", ErrInvalidClass, i)
	}
	c := p[i]
	for _, t := range tags {
		if c.tag == t {
			return c, nil
		}
	}
	return constant{}, fmt.Errorf("%w: constant %d has tag %d, want one of %v", ErrInvalidClass, i, c.tag, tags)
}

func (p pool) utf8(i uint16) (string, error) {
	c, err := p.get(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.utf8, nil
}

func (p pool) className(i uint16) (string, error) {
	c, err := p.get(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(c.ref1)
}

// memberRef resolves a Methodref or InterfaceMethodref to its owner, name
// and descriptor.
func (p pool) memberRef(i uint16) (owner, name, desc string, err error) {
	c, err := p.get(i, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return "", "", "", err
	}
	if owner, err = p.className(c.ref1); err != nil {
		return "", "", "", err
	}
	nt, err := p.get(c.ref2, TagNameAndType)
	if err != nil {
		return "", "", "", err
	}
	if name, err = p.utf8(nt.ref1); err != nil {
		return "", "", "", err
	}
	if desc, err = p.utf8(nt.ref2); err != nil {
		return "", "", "", err
	}
	return owner, name, desc, nil
}
