package classfile

// Opcodes the decoder treats specially.
const (
	OpIload           uint8 = 0x15
	OpAload           uint8 = 0x19
	OpIstore          uint8 = 0x36
	OpAstore          uint8 = 0x3a
	OpIinc            uint8 = 0x84
	OpRet             uint8 = 0xa9
	OpTableswitch     uint8 = 0xaa
	OpLookupswitch    uint8 = 0xab
	OpInvokevirtual   uint8 = 0xb6
	OpInvokespecial   uint8 = 0xb7
	OpInvokestatic    uint8 = 0xb8
	OpInvokeinterface uint8 = 0xb9
	OpInvokedynamic   uint8 = 0xba
	OpWide            uint8 = 0xc4
	OpJsrW            uint8 = 0xc9
)

const (
	// variable marks opcodes whose length depends on their operands.
	variable = -1
	// invalid marks reserved or undefined opcodes.
	invalid = -2
)

// operandWidth is the number of operand bytes following each opcode.
var operandWidth [256]int8

func init() {
	for i := range operandWidth {
		operandWidth[i] = invalid
	}
	set := func(from, to uint8, width int8) {
		for op := int(from); op <= int(to); op++ {
			operandWidth[op] = width
		}
	}

	set(0x00, 0x0f, 0) // nop, aconst_null, iconst_*, lconst_*, fconst_*, dconst_*
	set(0x10, 0x10, 1) // bipush
	set(0x11, 0x11, 2) // sipush
	set(0x12, 0x12, 1) // ldc
	set(0x13, 0x14, 2) // ldc_w, ldc2_w
	set(0x15, 0x19, 1) // iload..aload
	set(0x1a, 0x35, 0) // *load_n, *aload
	set(0x36, 0x3a, 1) // istore..astore
	set(0x3b, 0x83, 0) // *store_n, *astore, stack, arithmetic
	set(0x84, 0x84, 2) // iinc
	set(0x85, 0x98, 0) // conversions, comparisons
	set(0x99, 0xa8, 2) // if*, goto, jsr
	set(0xa9, 0xa9, 1) // ret
	set(0xaa, 0xab, variable)
	set(0xac, 0xb1, 0) // *return
	set(0xb2, 0xb8, 2) // field access, invokevirtual/special/static
	set(0xb9, 0xba, 4) // invokeinterface, invokedynamic
	set(0xbb, 0xbb, 2) // new
	set(0xbc, 0xbc, 1) // newarray
	set(0xbd, 0xbd, 2) // anewarray
	set(0xbe, 0xbf, 0) // arraylength, athrow
	set(0xc0, 0xc1, 2) // checkcast, instanceof
	set(0xc2, 0xc3, 0) // monitorenter, monitorexit
	set(0xc4, 0xc4, variable)
	set(0xc5, 0xc5, 3) // multianewarray
	set(0xc6, 0xc7, 2) // ifnull, ifnonnull
	set(0xc8, 0xc9, 4) // goto_w, jsr_w
}

// isWideable reports whether op may follow a wide prefix with a two-byte
// local index.
func isWideable(op uint8) bool {
	return (op >= OpIload && op <= OpAload) || (op >= OpIstore && op <= OpAstore) || op == OpRet
}
