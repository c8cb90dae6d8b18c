// Package breakpoint implements the breakpoint manager of the debugger.
//
// Breakpoints observe the CPU after each completed instruction through a
// read-only View. They never change CPU or memory state.
package breakpoint

import (
	"log"
	"slices"

	"go.starlark.net/starlark"

	"github.com/ezrec/vcpu/isa"
)

// ID identifies a breakpoint within a Manager.
type ID int

// View is the read-only CPU state a breakpoint is checked against.
type View interface {
	PC() uint32
	SP() uint32
	Register(r isa.Register) uint8
	Flags() isa.Flags
	Cycles() uint64
	// Peek reads memory without side effects.
	Peek(addr uint32) (byte, error)
	// Written returns the addresses stored to by the last instruction.
	Written() []uint32
}

// Breakpoint is a registered condition and its status.
type Breakpoint struct {
	Condition
	ID      ID
	Enabled bool
	Hits    uint64

	program *starlark.Program
}

// Manager owns the set of breakpoints of a session.
type Manager struct {
	Verbose bool // Set to log breakpoint hits.

	next   ID
	order  []ID
	points map[ID]*Breakpoint
}

// NewManager creates an empty breakpoint manager.
func NewManager() (mgr *Manager) {
	mgr = &Manager{
		points: map[ID]*Breakpoint{},
	}

	return
}

// Add registers an enabled breakpoint and returns its id.
func (mgr *Manager) Add(cond Condition) (id ID, err error) {
	err = cond.validate()
	if err != nil {
		return
	}

	bp := &Breakpoint{
		Condition: cond,
		Enabled:   true,
	}

	if len(cond.Expr) != 0 {
		bp.program, err = compile(cond.Expr)
		if err != nil {
			return
		}
	}

	mgr.next++
	id = mgr.next
	bp.ID = id

	if mgr.points == nil {
		mgr.points = map[ID]*Breakpoint{}
	}
	mgr.points[id] = bp
	mgr.order = append(mgr.order, id)

	return
}

func (mgr *Manager) lookup(id ID) (bp *Breakpoint, err error) {
	bp, ok := mgr.points[id]
	if !ok {
		err = ErrUnknownID(id)
	}
	return
}

// Remove deletes a breakpoint.
func (mgr *Manager) Remove(id ID) (err error) {
	_, err = mgr.lookup(id)
	if err != nil {
		return
	}

	delete(mgr.points, id)
	mgr.order = slices.DeleteFunc(mgr.order, func(other ID) bool { return other == id })

	return
}

// Enable re-arms a disabled breakpoint.
func (mgr *Manager) Enable(id ID) (err error) {
	bp, err := mgr.lookup(id)
	if err != nil {
		return
	}

	bp.Enabled = true
	return
}

// Disable keeps a breakpoint, but stops it from matching.
func (mgr *Manager) Disable(id ID) (err error) {
	bp, err := mgr.lookup(id)
	if err != nil {
		return
	}

	bp.Enabled = false
	return
}

// Get returns a copy of a breakpoint.
func (mgr *Manager) Get(id ID) (bp Breakpoint, err error) {
	ptr, err := mgr.lookup(id)
	if err != nil {
		return
	}

	bp = *ptr
	return
}

// List returns copies of all breakpoints, in id order.
func (mgr *Manager) List() (bps []Breakpoint) {
	for _, id := range mgr.order {
		bps = append(bps, *mgr.points[id])
	}
	return
}

// Len returns the number of breakpoints, enabled or not.
func (mgr *Manager) Len() int {
	return len(mgr.order)
}

// Clear deletes every breakpoint. Ids are not reused.
func (mgr *Manager) Clear() {
	clear(mgr.points)
	mgr.order = mgr.order[:0]
}

// match checks a single breakpoint against the view.
func (bp *Breakpoint) match(view View) bool {
	if !bp.Enabled {
		return false
	}

	switch bp.Kind {
	case KIND_ADDRESS:
		if view.PC() != bp.Low {
			return false
		}
	case KIND_RANGE:
		pc := view.PC()
		if pc < bp.Low || pc > bp.High {
			return false
		}
	case KIND_DATA:
		hit := slices.ContainsFunc(view.Written(), func(addr uint32) bool {
			return addr >= bp.Low && addr <= bp.High
		})
		if !hit {
			return false
		}
	case KIND_EXPRESSION:
	default:
		return false
	}

	if bp.program != nil {
		return evaluate(bp.program, view)
	}

	return true
}

// Check returns the ids of every enabled breakpoint matching the view, in
// ascending order. Matching breakpoints have their hit counter incremented,
// and temporary ones are deleted.
func (mgr *Manager) Check(view View) (ids []ID) {
	for _, id := range mgr.order {
		bp := mgr.points[id]
		if !bp.match(view) {
			continue
		}

		bp.Hits++
		ids = append(ids, id)

		if mgr.Verbose {
			log.Printf("breakpoint: %d hit (%v) at $%04X", id, bp.Condition, view.PC())
		}
	}

	for _, id := range ids {
		if mgr.points[id].Temporary {
			delete(mgr.points, id)
		}
	}
	mgr.order = slices.DeleteFunc(mgr.order, func(id ID) bool {
		_, ok := mgr.points[id]
		return !ok
	})

	return
}
