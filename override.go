package embedded

// Override interfaces allow value types to bypass reflection-based
// assembly. When a value type implements one of these interfaces, the
// accessor calls the interface method instead of reading or writing
// struct fields.
//
// Keys are sub-attribute names as declared in the mapping.

// Assembler builds a value object from its sub-attribute values.
// Implement it on the pointer receiver.
type Assembler interface {
	// AssembleAttributes populates the receiver. Values for every declared
	// sub-attribute are present, possibly nil.
	AssembleAttributes(values map[string]any) error
}

// Disassembler exposes a value object's sub-attribute values.
type Disassembler interface {
	// DisassembleAttributes returns the sub-attribute values. Missing keys
	// are written as nil.
	DisassembleAttributes() map[string]any
}
