package emu

// Channel indices. The control register bit for a channel is 1 << index.
const (
	ChannelPulse1 = iota
	ChannelPulse2
	ChannelTriangle
	ChannelNoise
	ChannelDPCM
	NumChannels
)

// Slot identifies a writable sound register: four sub-registers per channel
// followed by the global control register.
type Slot uint8

const (
	slotsPerChannel = 4

	// SlotControl is the channel enable register ($4015).
	SlotControl Slot = NumChannels * slotsPerChannel
)

// MakeSlot returns the slot for sub-register reg (0-3) of channel ch.
func MakeSlot(ch, reg int) Slot {
	return Slot(ch*slotsPerChannel + reg&3)
}

// Channel returns the channel a slot belongs to. SlotControl returns
// NumChannels.
func (s Slot) Channel() int {
	return int(s) / slotsPerChannel
}

// Register returns the sub-register index (0-3) within the channel.
func (s Slot) Register() int {
	return int(s) % slotsPerChannel
}

// Register address range on the CPU bus.
const (
	apuRegBase    = 0x4000
	apuRegLast    = 0x4013
	apuRegControl = 0x4015
)

// SlotForAddress maps a CPU bus address to a sound register slot. The bool
// is false for addresses that are not writable sound registers.
func SlotForAddress(addr uint16) (Slot, bool) {
	switch {
	case addr >= apuRegBase && addr <= apuRegLast:
		return Slot(addr - apuRegBase), true
	case addr == apuRegControl:
		return SlotControl, true
	default:
		return 0, false
	}
}

// eventCapacity bounds the number of register writes recorded between two
// hsyncs. A scanline is ~114 CPU cycles so real software stays far below it.
const eventCapacity = 512

// RegisterEvent is a register write stamped with the CPU cycles elapsed
// since the last hsync.
type RegisterEvent struct {
	Time  uint32
	Slot  Slot
	Value uint8
}

// eventLog is the fixed capacity write log replayed by each channel during
// the next render pass. Each channel keeps its own read cursor so every event
// is applied to every channel exactly once.
type eventLog struct {
	events  [eventCapacity]RegisterEvent
	count   int
	cursor  [NumChannels]int
	dropped uint64
}

// record appends an event. Events beyond capacity are dropped and counted.
func (l *eventLog) record(time uint32, slot Slot, value uint8) {
	if l.count >= eventCapacity {
		l.dropped++
		return
	}
	l.events[l.count] = RegisterEvent{Time: time, Slot: slot, Value: value}
	l.count++
}

// rewind resets the read cursor of one channel to the first event.
func (l *eventLog) rewind(ch int) {
	l.cursor[ch] = 0
}

// next returns the next unconsumed event for ch with Time < until.
func (l *eventLog) next(ch int, until uint64) (RegisterEvent, bool) {
	i := l.cursor[ch]
	if i >= l.count || uint64(l.events[i].Time) >= until {
		return RegisterEvent{}, false
	}
	l.cursor[ch] = i + 1
	return l.events[i], true
}

// flush discards all events.
func (l *eventLog) flush() {
	l.count = 0
	l.cursor = [NumChannels]int{}
}

// Len returns the number of events pending.
func (l *eventLog) Len() int {
	return l.count
}
