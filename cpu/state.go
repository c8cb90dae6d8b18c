package cpu

//go:generate go tool stringer -linecomment -type=State,Reason

// State is the execution state of the CPU.
type State uint8

const (
	STATE_READY   = State(iota) // ready
	STATE_RUNNING               // running
	STATE_HALTED                // halted
	STATE_FAULTED               // faulted
)

// Reason tells why a Step or Run returned.
type Reason int

const (
	REASON_STEPPED     = Reason(iota) // stepped
	REASON_INTERRUPTED                // interrupted
	REASON_HALTED                     // halted
	REASON_FAULTED                    // faulted
	REASON_BREAKPOINT                 // breakpoint
	REASON_BREAK                      // break
	REASON_LIMIT                      // limit
)
