package breakpoint

import (
	"fmt"
	"strings"
)

// Condition describes when a breakpoint matches.
type Condition struct {
	Kind      Kind
	Low       uint32 // Address, or low end of an inclusive range.
	High      uint32 // High end of an inclusive range.
	Expr      string // Expression for KIND_EXPRESSION, otherwise an optional guard.
	Temporary bool   // Delete the breakpoint after its first hit.
}

// At matches when the program counter equals addr.
func At(addr uint32) Condition {
	return Condition{Kind: KIND_ADDRESS, Low: addr, High: addr}
}

// Range matches when the program counter is within [low, high].
func Range(low, high uint32) Condition {
	return Condition{Kind: KIND_RANGE, Low: low, High: high}
}

// Write matches when the instruction wrote to an address within [low, high].
func Write(low, high uint32) Condition {
	return Condition{Kind: KIND_DATA, Low: low, High: high}
}

// When matches when the expression evaluates true. The expression is
// Starlark, with the names r0-r7, pc, sp, flags, cycles, the flag booleans
// c, z, i, v and n, and a mem(addr) function.
func When(expr string) Condition {
	return Condition{Kind: KIND_EXPRESSION, Expr: expr}
}

// If adds an expression guard to an address, range or data condition.
func (cond Condition) If(expr string) Condition {
	cond.Expr = expr
	return cond
}

// Once marks the condition as temporary.
func (cond Condition) Once() Condition {
	cond.Temporary = true
	return cond
}

func (cond Condition) String() string {
	var sb strings.Builder

	switch cond.Kind {
	case KIND_ADDRESS:
		fmt.Fprintf(&sb, "at $%04X", cond.Low)
	case KIND_RANGE:
		fmt.Fprintf(&sb, "range $%04X-$%04X", cond.Low, cond.High)
	case KIND_DATA:
		fmt.Fprintf(&sb, "write $%04X-$%04X", cond.Low, cond.High)
	case KIND_EXPRESSION:
		fmt.Fprintf(&sb, "when %v", cond.Expr)
	default:
		sb.WriteString(cond.Kind.String())
	}

	if cond.Kind != KIND_EXPRESSION && len(cond.Expr) != 0 {
		fmt.Fprintf(&sb, " if %v", cond.Expr)
	}
	if cond.Temporary {
		sb.WriteString(" once")
	}

	return sb.String()
}

func (cond Condition) validate() (err error) {
	switch cond.Kind {
	case KIND_ADDRESS:
	case KIND_RANGE, KIND_DATA:
		if cond.Low > cond.High {
			err = ErrConditionInvalid
		}
	case KIND_EXPRESSION:
		if len(strings.TrimSpace(cond.Expr)) == 0 {
			err = ErrConditionInvalid
		}
	default:
		err = ErrConditionInvalid
	}

	return
}
