package breakpoint

// Kind is the type of a breakpoint condition.
type Kind int

//go:generate go tool stringer -linecomment -type=Kind
const (
	KIND_ADDRESS    = Kind(0) // address
	KIND_RANGE      = Kind(1) // range
	KIND_DATA       = Kind(2) // data
	KIND_EXPRESSION = Kind(3) // expression
)
