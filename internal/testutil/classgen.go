package testutil

import (
	"encoding/binary"
	"fmt"
)

// Opcodes used by fixtures.
const (
	OpNop             = 0x00
	OpIconst1         = 0x04
	OpBipush          = 0x10
	OpSipush          = 0x11
	OpLdc2W           = 0x14
	OpIload           = 0x15
	OpAload0          = 0x2a
	OpPop             = 0x57
	OpIinc            = 0x84
	OpIfeq            = 0x99
	OpGoto            = 0xa7
	OpTableswitch     = 0xaa
	OpLookupswitch    = 0xab
	OpReturn          = 0xb1
	OpGetstatic       = 0xb2
	OpInvokevirtual   = 0xb6
	OpInvokespecial   = 0xb7
	OpInvokestatic    = 0xb8
	OpInvokeinterface = 0xb9
	OpInvokedynamic   = 0xba
	OpWide            = 0xc4
	OpGotoW           = 0xc8
)

const (
	accPublic   = 0x0001
	accAbstract = 0x0400
	accSuper    = 0x0020
)

type method struct {
	flags uint16
	name  string
	desc  string
	code  []byte
}

// ClassBuilder assembles minimal but well-formed class files. Constant pool
// entries are interned so the same reference always gets the same index.
type ClassBuilder struct {
	name    string
	super   string
	entries [][]byte
	next    uint16
	index   map[string]uint16
	methods []method
	major   uint16
}

// NewClass starts a class with the given internal name extending
// java/lang/Object.
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{
		name:  name,
		super: "java/lang/Object",
		next:  1,
		index: make(map[string]uint16),
		major: 52,
	}
}

// Super overrides the superclass. An empty name produces super_class 0.
func (b *ClassBuilder) Super(name string) *ClassBuilder {
	b.super = name
	return b
}

func (b *ClassBuilder) add(key string, slots uint16, entry []byte) uint16 {
	if idx, ok := b.index[key]; ok {
		return idx
	}
	idx := b.next
	b.entries = append(b.entries, entry)
	b.index[key] = idx
	b.next += slots
	return idx
}

// Utf8 interns a CONSTANT_Utf8 entry.
func (b *ClassBuilder) Utf8(s string) uint16 {
	entry := []byte{1}
	entry = binary.BigEndian.AppendUint16(entry, uint16(len(s)))
	entry = append(entry, s...)
	return b.add("utf8:"+s, 1, entry)
}

// Class interns a CONSTANT_Class entry.
func (b *ClassBuilder) Class(name string) uint16 {
	n := b.Utf8(name)
	return b.add("class:"+name, 1, ref(7, n))
}

// NameAndType interns a CONSTANT_NameAndType entry.
func (b *ClassBuilder) NameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	return b.add("nat:"+name+desc, 1, ref(12, n, d))
}

// Methodref interns a CONSTANT_Methodref entry.
func (b *ClassBuilder) Methodref(owner, name, desc string) uint16 {
	c, nt := b.Class(owner), b.NameAndType(name, desc)
	return b.add("mref:"+owner+"."+name+desc, 1, ref(10, c, nt))
}

// InterfaceMethodref interns a CONSTANT_InterfaceMethodref entry.
func (b *ClassBuilder) InterfaceMethodref(owner, name, desc string) uint16 {
	c, nt := b.Class(owner), b.NameAndType(name, desc)
	return b.add("imref:"+owner+"."+name+desc, 1, ref(11, c, nt))
}

// Long interns a CONSTANT_Long entry, which takes two pool slots.
func (b *ClassBuilder) Long(v int64) uint16 {
	entry := []byte{5}
	entry = binary.BigEndian.AppendUint64(entry, uint64(v))
	return b.add(fmt.Sprintf("long:%d", v), 2, entry)
}

// InvokeDynamic interns a CONSTANT_InvokeDynamic entry.
func (b *ClassBuilder) InvokeDynamic(name, desc string) uint16 {
	nt := b.NameAndType(name, desc)
	return b.add("indy:"+name+desc, 1, ref(18, 0, nt))
}

func ref(tag byte, idx ...uint16) []byte {
	entry := []byte{tag}
	for _, i := range idx {
		entry = binary.BigEndian.AppendUint16(entry, i)
	}
	return entry
}

// Invoke encodes invokevirtual, invokespecial or invokestatic.
func (b *ClassBuilder) Invoke(op byte, owner, name, desc string) []byte {
	return U2(op, b.Methodref(owner, name, desc))
}

// InvokeInterface encodes invokeinterface with its count and zero bytes.
func (b *ClassBuilder) InvokeInterface(owner, name, desc string, count byte) []byte {
	return append(U2(OpInvokeinterface, b.InterfaceMethodref(owner, name, desc)), count, 0)
}

// InvokeDynamicInsn encodes invokedynamic.
func (b *ClassBuilder) InvokeDynamicInsn(name, desc string) []byte {
	return append(U2(OpInvokedynamic, b.InvokeDynamic(name, desc)), 0, 0)
}

// U2 encodes an opcode with a two-byte operand.
func U2(op byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16([]byte{op}, v)
}

// Op returns raw instruction bytes.
func Op(b ...byte) []byte {
	return b
}

// Method adds a concrete method whose code is the concatenation of code.
func (b *ClassBuilder) Method(name, desc string, code ...[]byte) *ClassBuilder {
	body := []byte{}
	for _, c := range code {
		body = append(body, c...)
	}
	b.methods = append(b.methods, method{flags: accPublic, name: name, desc: desc, code: body})
	return b
}

// AbstractMethod adds a method without a Code attribute.
func (b *ClassBuilder) AbstractMethod(name, desc string) *ClassBuilder {
	b.methods = append(b.methods, method{flags: accPublic | accAbstract, name: name, desc: desc})
	return b
}

// Bytes serializes the class file.
func (b *ClassBuilder) Bytes() []byte {
	this := b.Class(b.name)
	var super uint16
	if b.super != "" {
		super = b.Class(b.super)
	}
	codeName := uint16(0)
	for _, m := range b.methods {
		b.Utf8(m.name)
		b.Utf8(m.desc)
		if m.code != nil {
			codeName = b.Utf8("Code")
		}
	}

	out := binary.BigEndian.AppendUint32(nil, 0xCAFEBABE)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, b.major)
	out = binary.BigEndian.AppendUint16(out, b.next)
	for _, e := range b.entries {
		out = append(out, e...)
	}
	out = binary.BigEndian.AppendUint16(out, accPublic|accSuper)
	out = binary.BigEndian.AppendUint16(out, this)
	out = binary.BigEndian.AppendUint16(out, super)
	out = binary.BigEndian.AppendUint16(out, 0) // interfaces
	out = binary.BigEndian.AppendUint16(out, 0) // fields

	out = binary.BigEndian.AppendUint16(out, uint16(len(b.methods)))
	for _, m := range b.methods {
		out = binary.BigEndian.AppendUint16(out, m.flags)
		out = binary.BigEndian.AppendUint16(out, b.Utf8(m.name))
		out = binary.BigEndian.AppendUint16(out, b.Utf8(m.desc))
		if m.code == nil {
			out = binary.BigEndian.AppendUint16(out, 0)
			continue
		}
		out = binary.BigEndian.AppendUint16(out, 1)
		out = binary.BigEndian.AppendUint16(out, codeName)
		out = binary.BigEndian.AppendUint32(out, uint32(12+len(m.code)))
		out = binary.BigEndian.AppendUint16(out, 8) // max_stack
		out = binary.BigEndian.AppendUint16(out, 8) // max_locals
		out = binary.BigEndian.AppendUint32(out, uint32(len(m.code)))
		out = append(out, m.code...)
		out = binary.BigEndian.AppendUint16(out, 0) // exception table
		out = binary.BigEndian.AppendUint16(out, 0) // attributes
	}
	out = binary.BigEndian.AppendUint16(out, 0) // class attributes
	return out
}
