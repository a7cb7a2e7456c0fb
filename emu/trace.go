package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
)

// Trace container format constants
const (
	traceMagic      = "EMAPUTRC"
	traceVersion    = 1
	traceHeaderSize = 18 // magic(8) + version(2) + count(4) + dataCRC(4)
	traceRecordSize = 11 // cycle(8) + addr(2) + value(1)

	// ProgramMemoryBase is the first address of the program memory image.
	ProgramMemoryBase = 0x8000
	// ProgramMemorySize covers $8000-$FFFF.
	ProgramMemorySize = 0x8000
)

// TraceWrite is one CPU write to a sound register at an absolute cycle.
type TraceWrite struct {
	Cycle uint64
	Addr  uint16
	Value uint8
}

// Trace is a recorded register-write stream together with the program
// memory image DPCM samples are fetched from.
type Trace struct {
	Memory [ProgramMemorySize]uint8
	Writes []TraceWrite
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Read implements Memory. Addresses below $8000 read as zero.
func (t *Trace) Read(addr uint16) uint8 {
	if addr < ProgramMemoryBase {
		return 0
	}
	return t.Memory[addr-ProgramMemoryBase]
}

// Poke stores v at addr in the program memory image.
func (t *Trace) Poke(addr uint16, v uint8) error {
	if addr < ProgramMemoryBase {
		return fmt.Errorf("address $%04X outside program memory", addr)
	}
	t.Memory[addr-ProgramMemoryBase] = v
	return nil
}

// Add appends a register write. Writes must be added in cycle order and
// target a sound register.
func (t *Trace) Add(cycle uint64, addr uint16, v uint8) error {
	if _, ok := SlotForAddress(addr); !ok {
		return fmt.Errorf("address $%04X is not a sound register", addr)
	}
	if n := len(t.Writes); n > 0 && cycle < t.Writes[n-1].Cycle {
		return fmt.Errorf("write at cycle %d precedes cycle %d", cycle, t.Writes[n-1].Cycle)
	}
	t.Writes = append(t.Writes, TraceWrite{Cycle: cycle, Addr: addr, Value: v})
	return nil
}

// LastCycle returns the cycle of the final write, or 0 for an empty trace.
func (t *Trace) LastCycle() uint64 {
	if len(t.Writes) == 0 {
		return 0
	}
	return t.Writes[len(t.Writes)-1].Cycle
}

// Frames returns the number of frames needed to play every write.
func (t *Trace) Frames(timing Timing) int {
	if len(t.Writes) == 0 {
		return 0
	}
	return timing.FrameOfCycle(t.LastCycle()) + 1
}

// Encode serializes the trace.
func (t *Trace) Encode() []byte {
	data := make([]byte, traceHeaderSize+ProgramMemorySize+len(t.Writes)*traceRecordSize)

	copy(data[0:8], traceMagic)
	binary.LittleEndian.PutUint16(data[8:10], traceVersion)
	binary.LittleEndian.PutUint32(data[10:14], uint32(len(t.Writes)))

	offset := traceHeaderSize
	offset += copy(data[offset:], t.Memory[:])
	for _, w := range t.Writes {
		binary.LittleEndian.PutUint64(data[offset:], w.Cycle)
		binary.LittleEndian.PutUint16(data[offset+8:], w.Addr)
		data[offset+10] = w.Value
		offset += traceRecordSize
	}

	binary.LittleEndian.PutUint32(data[14:18], crc32.ChecksumIEEE(data[traceHeaderSize:]))
	return data
}

// CRC32 returns the checksum of the encoded trace body. Save states record
// it to reject a state taken from a different trace.
func (t *Trace) CRC32() uint32 {
	return binary.LittleEndian.Uint32(t.Encode()[14:18])
}

// ValidateTraceHeader checks the magic, version and length of an encoded
// trace and returns its record count.
func ValidateTraceHeader(data []byte) (int, error) {
	if len(data) < traceHeaderSize {
		return 0, fmt.Errorf("trace too short to contain header (%d bytes)", len(data))
	}
	if string(data[0:8]) != traceMagic {
		return 0, errors.New("invalid trace magic")
	}
	if v := binary.LittleEndian.Uint16(data[8:10]); v > traceVersion {
		return 0, fmt.Errorf("unsupported trace version %d", v)
	}
	count := int(binary.LittleEndian.Uint32(data[10:14]))
	want := traceHeaderSize + ProgramMemorySize + count*traceRecordSize
	if len(data) != want {
		return 0, fmt.Errorf("trace length mismatch: have %d bytes, header implies %d", len(data), want)
	}
	return count, nil
}

// DecodeTrace parses an encoded trace, verifying its checksum and that every
// write targets a sound register in cycle order.
func DecodeTrace(data []byte) (*Trace, error) {
	count, err := ValidateTraceHeader(data)
	if err != nil {
		return nil, err
	}

	expected := binary.LittleEndian.Uint32(data[14:18])
	if computed := crc32.ChecksumIEEE(data[traceHeaderSize:]); computed != expected {
		return nil, fmt.Errorf("trace checksum mismatch: header=%08X computed=%08X", expected, computed)
	}

	t := &Trace{Writes: make([]TraceWrite, 0, count)}
	offset := traceHeaderSize
	offset += copy(t.Memory[:], data[offset:offset+ProgramMemorySize])
	for i := 0; i < count; i++ {
		cycle := binary.LittleEndian.Uint64(data[offset:])
		addr := binary.LittleEndian.Uint16(data[offset+8:])
		if err := t.Add(cycle, addr, data[offset+10]); err != nil {
			return nil, fmt.Errorf("trace record %d: %w", i, err)
		}
		offset += traceRecordSize
	}
	return t, nil
}

// LoadTrace reads and decodes a trace file.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	t, err := DecodeTrace(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Save writes the encoded trace to path.
func (t *Trace) Save(path string) error {
	if err := os.WriteFile(path, t.Encode(), 0644); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}
