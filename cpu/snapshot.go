package cpu

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"hash/crc32"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/ezrec/vcpu/isa"
)

const (
	SNAPSHOT_MAGIC   = "VCPU"
	SNAPSHOT_VERSION = 1
)

type snapshotHeader struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	Crc     uint32 // CRC32 (IEEE) of the compressed body.
	Length  uint32 // Length of the compressed body.
}

type snapshotBody struct {
	Register [isa.REGISTER_COUNT]uint8
	Flags    uint8
	State    uint8
	PC       uint32
	SP       uint32
	Cycles   uint64
	Size     uint32 `struc:"sizeof=Memory"`
	Memory   []byte
}

var snapshotOrder = binary.LittleEndian

// corrupt tags a decoding failure.
func corrupt(err error, what string) error {
	return stderrors.Join(ErrSnapshotCorrupt, errors.Wrap(err, what))
}

// Save returns the persisted state of the CPU and its memory.
// Pending interrupts are not saved.
func (cpu *Cpu) Save() (blob []byte, err error) {
	body := &snapshotBody{
		Register: cpu.Register,
		Flags:    uint8(cpu.Flags),
		State:    uint8(cpu.State),
		PC:       cpu.PC,
		SP:       cpu.SP,
		Cycles:   cpu.Cycles,
		Memory:   cpu.Bus.Dump(),
	}

	var raw bytes.Buffer
	err = struc.PackWithOrder(&raw, body, snapshotOrder)
	if err != nil {
		err = errors.Wrap(err, "failed to pack snapshot body")
		return
	}

	packed := snappy.Encode(nil, raw.Bytes())

	header := &snapshotHeader{
		Magic:   SNAPSHOT_MAGIC,
		Version: SNAPSHOT_VERSION,
		Crc:     crc32.ChecksumIEEE(packed),
		Length:  uint32(len(packed)),
	}

	var out bytes.Buffer
	err = struc.PackWithOrder(&out, header, snapshotOrder)
	if err != nil {
		err = errors.Wrap(err, "failed to pack snapshot header")
		return
	}
	out.Write(packed)

	blob = out.Bytes()
	return
}

// Restore replaces the CPU and memory state with a blob from Save. The
// blob must match the bus size. On error the CPU is not modified.
func (cpu *Cpu) Restore(blob []byte) (err error) {
	rd := bytes.NewReader(blob)

	var header snapshotHeader
	err = struc.UnpackWithOrder(rd, &header, snapshotOrder)
	if err != nil {
		err = stderrors.Join(ErrSnapshotInvalid, errors.Wrap(err, "failed to unpack snapshot header"))
		return
	}

	if header.Magic != SNAPSHOT_MAGIC {
		err = errors.WithMessagef(ErrSnapshotInvalid, "magic %q", header.Magic)
		return
	}

	if header.Version != SNAPSHOT_VERSION {
		err = errors.WithMessagef(ErrSnapshotVersion, "version %v", header.Version)
		return
	}

	packed := blob[len(blob)-rd.Len():]
	if uint32(len(packed)) != header.Length {
		err = errors.WithMessagef(ErrSnapshotCorrupt, "body length %v, expected %v", len(packed), header.Length)
		return
	}

	if crc := crc32.ChecksumIEEE(packed); crc != header.Crc {
		err = errors.WithMessagef(ErrSnapshotCorrupt, "crc %08x, expected %08x", crc, header.Crc)
		return
	}

	raw, err := snappy.Decode(nil, packed)
	if err != nil {
		err = corrupt(err, "failed to decompress snapshot body")
		return
	}

	var body snapshotBody
	err = struc.UnpackWithOrder(bytes.NewReader(raw), &body, snapshotOrder)
	if err != nil {
		err = corrupt(err, "failed to unpack snapshot body")
		return
	}

	if len(body.Memory) != cpu.Bus.Size() {
		err = errors.WithMessagef(ErrSnapshotSizeMismatch, "memory %v, bus %v", len(body.Memory), cpu.Bus.Size())
		return
	}

	size := uint32(len(body.Memory))
	if body.PC >= size || body.SP > size {
		err = errors.WithMessagef(ErrSnapshotCorrupt, "pc $%04X sp $%04X", body.PC, body.SP)
		return
	}

	state := State(body.State)
	if state > STATE_FAULTED {
		err = errors.WithMessagef(ErrSnapshotCorrupt, "state %v", body.State)
		return
	}

	err = cpu.Bus.Load(0, body.Memory)
	if err != nil {
		return
	}

	cpu.Register = body.Register
	cpu.Flags = isa.Flags(body.Flags) & isa.FLAG_MASK
	cpu.State = state
	cpu.PC = body.PC
	cpu.SP = body.SP
	cpu.Cycles = body.Cycles
	cpu.pending = nil
	cpu.written = nil
	cpu.fault = nil
	if state == STATE_FAULTED {
		cpu.fault = &ErrFault{PC: cpu.PC, Err: ErrFaultRestored}
	}

	return
}
