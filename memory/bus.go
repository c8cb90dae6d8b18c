package memory

import (
	"fmt"
	"log"
	"slices"
)

// MAX_SIZE is the largest address space an instruction can encode.
const MAX_SIZE = 1 << 16

// Device is a memory-mapped peripheral. Offsets are relative to the base
// of the mapped region.
type Device interface {
	// Read returns the byte at offset, possibly with side effects.
	Read(offset uint32) byte
	// Peek returns the byte at offset without side effects.
	Peek(offset uint32) byte
	// Write stores value at offset.
	Write(offset uint32, value byte)
}

type region struct {
	low, high uint32
	device    Device
}

func (r region) contains(addr uint32) bool {
	return addr >= r.low && addr <= r.high
}

// Bus is the memory of a single emulation session.
type Bus struct {
	Verbose bool // Set to log device and protection activity.

	data     []byte
	readOnly []region
	devices  []region
}

// NewBus creates a zero filled bus of size bytes.
func NewBus(size int) (bus *Bus) {
	if size <= 0 || size > MAX_SIZE {
		panic(fmt.Sprintf("memory: invalid bus size %d", size))
	}

	bus = &Bus{
		data: make([]byte, size),
	}

	return
}

// Size returns the number of addressable bytes.
func (bus *Bus) Size() int {
	return len(bus.data)
}

func (bus *Bus) check(addr uint32) (err error) {
	if addr >= uint32(len(bus.data)) {
		err = &ErrAddress{Addr: addr, Err: ErrAddressOutOfRange}
	}
	return
}

func (bus *Bus) device(addr uint32) (dev Device, offset uint32) {
	for _, r := range bus.devices {
		if r.contains(addr) {
			return r.device, addr - r.low
		}
	}
	return
}

// Read returns the byte at addr. Reads from a mapped device are forwarded
// to the device.
func (bus *Bus) Read(addr uint32) (value byte, err error) {
	err = bus.check(addr)
	if err != nil {
		return
	}

	if dev, offset := bus.device(addr); dev != nil {
		value = dev.Read(offset)
		return
	}

	value = bus.data[addr]
	return
}

// Peek returns the byte at addr without triggering device side effects.
func (bus *Bus) Peek(addr uint32) (value byte, err error) {
	err = bus.check(addr)
	if err != nil {
		return
	}

	if dev, offset := bus.device(addr); dev != nil {
		value = dev.Peek(offset)
		return
	}

	value = bus.data[addr]
	return
}

// Write stores value at addr.
func (bus *Bus) Write(addr uint32, value byte) (err error) {
	err = bus.check(addr)
	if err != nil {
		return
	}

	for _, r := range bus.readOnly {
		if r.contains(addr) {
			if bus.Verbose {
				log.Printf("memory: write $%02X to read-only $%04X", value, addr)
			}
			err = &ErrAddress{Addr: addr, Err: ErrReadOnly}
			return
		}
	}

	if dev, offset := bus.device(addr); dev != nil {
		dev.Write(offset, value)
		return
	}

	bus.data[addr] = value
	return
}

// ReadRange reads n consecutive bytes starting at addr.
func (bus *Bus) ReadRange(addr uint32, n int) (data []byte, err error) {
	if n < 0 {
		err = ErrRegionInvalid
		return
	}

	data = make([]byte, n)
	for i := range n {
		data[i], err = bus.Read(addr + uint32(i))
		if err != nil {
			data = nil
			return
		}
	}

	return
}

// Load copies data into the backing store at addr, ignoring read-only
// protection and mapped devices. It is the patch view used by loaders.
func (bus *Bus) Load(addr uint32, data []byte) (err error) {
	if len(data) == 0 {
		return
	}

	end := uint64(addr) + uint64(len(data))
	if end > uint64(len(bus.data)) {
		err = &ErrAddress{Addr: uint32(min(end-1, uint64(^uint32(0)))), Err: ErrAddressOutOfRange}
		return
	}

	copy(bus.data[addr:], data)
	return
}

// Dump returns a copy of the backing store.
func (bus *Bus) Dump() []byte {
	return slices.Clone(bus.data)
}

// Clear zeroes the backing store. Protections and devices are kept.
func (bus *Bus) Clear() {
	clear(bus.data)
}

func (bus *Bus) region(low, high uint32) (r region, err error) {
	if low > high {
		err = ErrRegionInvalid
		return
	}
	err = bus.check(high)
	if err != nil {
		return
	}

	r = region{low: low, high: high}
	return
}

// Protect marks [low, high] as read-only.
func (bus *Bus) Protect(low, high uint32) (err error) {
	r, err := bus.region(low, high)
	if err != nil {
		return
	}

	bus.readOnly = append(bus.readOnly, r)
	return
}

// Map attaches dev to the inclusive region [low, high].
func (bus *Bus) Map(low, high uint32, dev Device) (err error) {
	r, err := bus.region(low, high)
	if err != nil {
		return
	}

	for _, other := range bus.devices {
		if r.low <= other.high && other.low <= r.high {
			err = ErrRegionOverlap
			return
		}
	}

	if bus.Verbose {
		log.Printf("memory: map $%04X-$%04X to %T", low, high, dev)
	}

	r.device = dev
	bus.devices = append(bus.devices, r)
	return
}
