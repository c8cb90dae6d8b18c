package breakpoint

import (
	"errors"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/vcpu/isa"
)

// EXPR_STEP_LIMIT bounds the work a single expression evaluation may do.
const EXPR_STEP_LIMIT = 10000

var exprNames = map[string]bool{
	"r0": true, "r1": true, "r2": true, "r3": true,
	"r4": true, "r5": true, "r6": true, "r7": true,
	"pc": true, "sp": true, "flags": true, "cycles": true,
	"c": true, "z": true, "i": true, "v": true, "n": true,
	"mem": true,
}

var flagNames = map[string]isa.Flags{
	"c": isa.FLAG_C,
	"z": isa.FLAG_Z,
	"i": isa.FLAG_I,
	"v": isa.FLAG_V,
	"n": isa.FLAG_N,
}

// compile resolves an expression into a program that assigns its truth
// value to 'rc'.
func compile(expr string) (prog *starlark.Program, err error) {
	opts := syntax.FileOptions{}
	file, err := opts.Parse("breakpoint", "rc = bool("+expr+")\n", 0)
	if err != nil {
		err = errors.Join(ErrMalformedCondition, err)
		return
	}

	prog, err = starlark.FileProgram(file, func(name string) bool { return exprNames[name] })
	if err != nil {
		err = errors.Join(ErrMalformedCondition, err)
		return
	}

	return
}

// predeclared builds the expression environment from a view.
func predeclared(view View) starlark.StringDict {
	env := starlark.StringDict{
		"pc":     starlark.MakeUint(uint(view.PC())),
		"sp":     starlark.MakeUint(uint(view.SP())),
		"flags":  starlark.MakeInt(int(view.Flags())),
		"cycles": starlark.MakeUint64(view.Cycles()),
	}

	for r := range isa.Register(isa.REGISTER_COUNT) {
		env["r"+string(rune('0'+r))] = starlark.MakeInt(int(view.Register(r)))
	}

	for name, flag := range flagNames {
		env[name] = starlark.Bool(view.Flags().Has(flag))
	}

	env["mem"] = starlark.NewBuiltin("mem", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
		var addr int
		err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr)
		if err != nil {
			return
		}
		if addr < 0 || uint64(addr) > math.MaxUint32 {
			err = ErrExpressionAddress
			return
		}
		data, err := view.Peek(uint32(addr))
		if err != nil {
			return
		}
		value = starlark.MakeInt(int(data))
		return
	})

	return env
}

// evaluate runs a compiled expression against a view. Evaluation errors
// count as a false result.
func evaluate(prog *starlark.Program, view View) bool {
	thread := &starlark.Thread{Name: "breakpoint"}
	thread.SetMaxExecutionSteps(EXPR_STEP_LIMIT)

	globals, err := prog.Init(thread, predeclared(view))
	if err != nil {
		return false
	}

	rc, ok := globals["rc"]
	if !ok {
		return false
	}

	return bool(rc.Truth())
}
