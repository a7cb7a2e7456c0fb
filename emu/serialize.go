package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "eMAPUState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + traceCRC(4) + dataCRC(4)
)

// emulatorSerializeSize is the emulator's own state:
// dot(8) + cycle(8) + next(4) + frame(4) + filterPrevL(8) + filterPrevR(8) + muteMask(1) = 41
const emulatorSerializeSize = 41

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SerializeSize returns the total size in bytes needed for a save state.
func SerializeSize() int {
	return stateHeaderSize + emulatorSerializeSize + APUSerializeSize
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	data := make([]byte, SerializeSize())

	// Write header
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], e.traceCRC)

	offset := stateHeaderSize
	offset = e.serializeBase(data, offset)

	if err := e.apu.Serialize(data[offset:]); err != nil {
		return nil, err
	}

	// Calculate and write data CRC32 (over everything after header)
	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores emulator state from a save state byte slice. The
// audio buffers are cleared; the quality level must match the state.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize
	base := e.saveBase()
	offset = e.deserializeBase(data, offset)
	if e.next > len(e.trace.Writes) {
		e.restoreBase(base)
		return errors.New("save state position is past the end of the trace")
	}

	if err := e.apu.Deserialize(data[offset:]); err != nil {
		e.restoreBase(base)
		return err
	}

	e.audioBuffer = e.audioBuffer[:0]
	e.scopeLen = 0
	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	if len(data) < SerializeSize() {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	traceCRC := binary.LittleEndian.Uint32(data[14:18])
	if traceCRC != e.traceCRC {
		return errors.New("save state is for a different trace")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

// baseState is the emulator's inline state, kept to undo a partial restore.
type baseState struct {
	dot, cycle               uint64
	next, frame              int
	filterPrevL, filterPrevR float64
	muted                    uint8
}

func (e *Emulator) saveBase() baseState {
	return baseState{
		dot:         e.dot,
		cycle:       e.cycle,
		next:        e.next,
		frame:       e.frame,
		filterPrevL: e.mixer.filterPrevL,
		filterPrevR: e.mixer.filterPrevR,
		muted:       e.mixer.muted,
	}
}

func (e *Emulator) restoreBase(s baseState) {
	e.dot = s.dot
	e.cycle = s.cycle
	e.next = s.next
	e.frame = s.frame
	e.mixer.filterPrevL = s.filterPrevL
	e.mixer.filterPrevR = s.filterPrevR
	e.mixer.muted = s.muted
}

// serializeBase writes Emulator inline state.
func (e *Emulator) serializeBase(data []byte, offset int) int {
	binary.LittleEndian.PutUint64(data[offset:], e.dot)
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], e.cycle)
	offset += 8
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.next))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.frame))
	offset += 4
	binary.LittleEndian.PutUint64(data[offset:], math.Float64bits(e.mixer.filterPrevL))
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], math.Float64bits(e.mixer.filterPrevR))
	offset += 8
	data[offset] = e.mixer.muted
	offset++
	return offset
}

// deserializeBase reads Emulator inline state.
func (e *Emulator) deserializeBase(data []byte, offset int) int {
	e.dot = binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	e.cycle = binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	e.next = int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	e.frame = int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	e.mixer.filterPrevL = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	e.mixer.filterPrevR = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	e.mixer.muted = data[offset] & (1<<NumChannels - 1)
	offset++
	return offset
}
