package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeVerifyInvocation() string {
	return `Verifies that a method in compiled JVM classes calls another method at least a required number of times.

USE WHEN:
- Checking that an API entry point always records an audit event, releases a lock, or flushes a stream
- Confirming a refactoring kept a required call in a method body
- Gating a build on invocation preconditions without running the code

INPUT:
- paths: .class files, directories, or jar/war/zip archives
- target_method (required unless the config file has rules), optionally target_class and target_descriptor
- called_method, optionally called_class, called_descriptor, count (default 1), policy (any or all)
- Class names may be dotted (com.example.Bank) or internal (com/example/Bank)
- Descriptors may be JVM form ((JJ)V) or source form ((long, long) void)

INTERPRETING RESULTS:
- satisfied: every class declaring the target method contains enough matching calls
- unsatisfied: at least one declaring class falls short; see verdicts[].methods[].matched
- not_found: no class declares the target method, check names and descriptor
- error: a call descriptor in the bytecode could not be parsed
- Calls are counted in bytecode order. Reachability is not considered: a call in a dead branch still counts.
- Owners compare by exact name. A call through a subclass or interface has that type as owner.

FIELDS RETURNED:
- passed, summary counts, per-rule status, per-class verdicts with matched counts, unreadable inputs`
}

func describeListCalls() string {
	return `Lists the call instructions of every method in compiled JVM classes.

USE WHEN:
- Finding the exact owner, name and descriptor to put in a verify_invocation rule
- Debugging an unexpected not_found or unsatisfied verdict
- Inspecting what a method calls without a decompiler

INTERPRETING RESULTS:
- Each call shows the invoke kind (invokevirtual, invokespecial, invokestatic, invokeinterface)
- Owner is the type named in the constant pool, not the runtime receiver
- invokedynamic sites (lambdas, string concatenation) are not listed
- Constructors appear as <init> and static initializers as <clinit>

FIELDS RETURNED:
- classes[]: source, class, methods[] with name, descriptor and calls in bytecode order
- errors[]: inputs that could not be decoded`
}

func describeCompareDescriptors() string {
	return `Checks whether two method descriptors denote the same signature.

USE WHEN:
- Translating a Java signature to the JVM descriptor used in bytecode
- Checking why a descriptor constraint does not match

INTERPRETING RESULTS:
- Either side may be JVM form ((ILjava/lang/String;)V) or source form ((int, java.lang.String) void)
- equivalent is true when parameter types and return type are identical
- A malformed descriptor is reported as an error with the offending position

FIELDS RETURNED:
- a and b converted to JVM form, equivalent`
}
