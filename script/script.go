// Package script compiles Lua scores into register traces.
//
// A score drives a cursor through time and records register writes at the
// cursor:
//
//	apu.write(apu.SQ1, 0x9F)
//	apu.write(apu.SQ1 + 3, 0x08)
//	apu.write(apu.STATUS, 0x01)
//	apu.frames(30)
//
// The cursor advances with apu.wait(cycles), apu.lines(n) and
// apu.frames(n); frame and line lengths follow NTSC timing. Program memory
// for DPCM samples is filled with mem.poke(addr, value) and
// mem.load(addr, bytes), where bytes is a table of numbers or a string.
package script

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/user-none/emapu/emu"
	lua "github.com/yuin/gopher-lua"
)

// Register base addresses exposed to scores.
var registerNames = []struct {
	name string
	addr uint16
}{
	{"SQ1", 0x4000},
	{"SQ2", 0x4004},
	{"TRI", 0x4008},
	{"NOISE", 0x400C},
	{"DMC", 0x4010},
	{"STATUS", 0x4015},
}

// compiler holds the state a running score mutates. The cursor is kept in
// PPU dots so line and frame steps land on exact boundaries.
type compiler struct {
	trace  *emu.Trace
	timing emu.Timing
	dot    uint64
}

func (c *compiler) cycle() uint64 {
	return c.timing.CycleAtDot(c.dot)
}

// Compile runs src and returns the trace it records. name is used in error
// messages. The script is stopped when ctx is done.
func Compile(ctx context.Context, name, src string) (*emu.Trace, error) {
	c := &compiler{trace: emu.NewTrace(), timing: emu.NTSCTiming}

	L := newState(c)
	defer L.Close()
	L.SetContext(ctx)

	if err := L.DoString(src); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c.trace, nil
}

// CompileFile reads and compiles the score at path.
func CompileFile(ctx context.Context, path string) (*emu.Trace, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Compile(ctx, filepath.Base(path), string(src))
}

// newState creates a Lua state with the safe standard libraries and the
// apu and mem modules.
func newState(c *compiler) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	apu := L.NewTable()
	L.SetFuncs(apu, map[string]lua.LGFunction{
		"write":  c.luaWrite,
		"wait":   c.luaWait,
		"lines":  c.luaLines,
		"frames": c.luaFrames,
		"cycle":  c.luaCycle,
	})
	L.SetField(apu, "CPU_HZ", lua.LNumber(c.timing.CPUClockHz))
	L.SetField(apu, "FRAME_CYCLES", lua.LNumber(c.timing.CyclesPerFrame()))
	L.SetField(apu, "LINE_CYCLES", lua.LNumber(c.timing.CyclesPerScanline()))
	for _, r := range registerNames {
		L.SetField(apu, r.name, lua.LNumber(r.addr))
	}
	L.SetGlobal("apu", apu)

	mem := L.NewTable()
	L.SetFuncs(mem, map[string]lua.LGFunction{
		"poke": c.luaPoke,
		"load": c.luaLoad,
	})
	L.SetGlobal("mem", mem)
	return L
}

func isInteger(v lua.LNumber) bool {
	f := float64(v)
	return f == math.Trunc(f)
}

// checkRange returns argument n as an integer in [lo, hi]. Numbers with a
// fractional part are rejected rather than truncated.
func checkRange(L *lua.LState, n, lo, hi int) int {
	v, ok := L.Get(n).(lua.LNumber)
	if !ok {
		L.TypeError(n, lua.LTNumber)
	}
	if !isInteger(v) {
		L.ArgError(n, fmt.Sprintf("value %v is not an integer", v))
	}
	if v < lua.LNumber(lo) || v > lua.LNumber(hi) {
		L.ArgError(n, fmt.Sprintf("value %v out of range [%d, %d]", v, lo, hi))
	}
	return int(v)
}

// apu.write(addr, value)
func (c *compiler) luaWrite(L *lua.LState) int {
	addr := checkRange(L, 1, 0, 0xFFFF)
	v := checkRange(L, 2, 0, 0xFF)
	if err := c.trace.Add(c.cycle(), uint16(addr), uint8(v)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// apu.wait(cycles)
func (c *compiler) luaWait(L *lua.LState) int {
	n := checkRange(L, 1, 0, 1<<30)
	c.dot += uint64(n) * uint64(c.timing.DotsPerCycle)
	return 0
}

// apu.lines(n)
func (c *compiler) luaLines(L *lua.LState) int {
	n := checkRange(L, 1, 0, 1<<24)
	c.dot += uint64(n) * uint64(c.timing.DotsPerScanline)
	return 0
}

// apu.frames(n)
func (c *compiler) luaFrames(L *lua.LState) int {
	n := checkRange(L, 1, 0, 1<<20)
	c.dot += uint64(n) * uint64(c.timing.DotsPerFrame())
	return 0
}

// apu.cycle() -> current cursor in CPU cycles
func (c *compiler) luaCycle(L *lua.LState) int {
	L.Push(lua.LNumber(c.cycle()))
	return 1
}

// mem.poke(addr, value)
func (c *compiler) luaPoke(L *lua.LState) int {
	addr := checkRange(L, 1, 0, 0xFFFF)
	v := checkRange(L, 2, 0, 0xFF)
	if err := c.trace.Poke(uint16(addr), uint8(v)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// mem.load(addr, bytes) -> number of bytes stored
func (c *compiler) luaLoad(L *lua.LState) int {
	addr := checkRange(L, 1, emu.ProgramMemoryBase, 0xFFFF)

	var data []byte
	switch v := L.Get(2).(type) {
	case lua.LString:
		data = []byte(string(v))
	case *lua.LTable:
		n := v.Len()
		data = make([]byte, 0, n)
		for i := 1; i <= n; i++ {
			b, ok := v.RawGetInt(i).(lua.LNumber)
			if !ok || !isInteger(b) || b < 0 || b > 0xFF {
				L.ArgError(2, fmt.Sprintf("element %d is not a byte", i))
			}
			data = append(data, byte(b))
		}
	default:
		L.ArgError(2, "string or table expected")
	}

	if addr+len(data) > 0x10000 {
		L.ArgError(2, fmt.Sprintf("%d bytes at $%04X run past $FFFF", len(data), addr))
	}
	for i, b := range data {
		if err := c.trace.Poke(uint16(addr+i), b); err != nil {
			L.RaiseError("%v", err)
		}
	}
	L.Push(lua.LNumber(len(data)))
	return 1
}
