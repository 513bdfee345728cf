package engine

import (
	"testing"

	"github.com/xorllc/emnes/internal/controller"
)

// buildNROM assembles a minimal one-bank iNES image: 16KB PRG filled with
// NOPs, reset vector pointing at $8000, 8KB CHR-ROM.
func buildNROM() []byte {
	rom := make([]byte, 16+16384+8192)
	copy(rom[0:4], []byte{'N', 'E', 'S', 0x1A})
	rom[4] = 1 // PRG banks
	rom[5] = 1 // CHR banks

	prg := rom[16 : 16+16384]
	for i := range prg {
		prg[i] = 0xEA // NOP
	}
	prg[0x3FFC] = 0x00 // reset vector low -> $8000
	prg[0x3FFD] = 0x80
	return rom
}

func TestLoadRejectsBadMagic(t *testing.T) {
	e := New()
	bad := buildNROM()
	bad[0] = 'X'
	if err := e.Load(bad); err != ErrInvalidROM {
		t.Fatalf("Load(bad magic) = %v, want ErrInvalidROM", err)
	}
}

func TestLoadRejectsUnsupportedMapper(t *testing.T) {
	e := New()
	rom := buildNROM()
	rom[6] = 0xF0 // high mapper nibble -> mapper 15, unimplemented
	err := e.Load(rom)
	if _, ok := err.(UnsupportedMapperError); !ok {
		t.Fatalf("Load(mapper 15) = %v, want UnsupportedMapperError", err)
	}
}

func TestLoadAndResetSeedsPCFromVector(t *testing.T) {
	e := New()
	if err := e.Load(buildNROM()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.CPU().PC != 0x8000 {
		t.Fatalf("PC after reset = $%04X, want $8000", e.CPU().PC)
	}
	if !e.CPU().I {
		t.Fatalf("interrupt-disable flag should be set after reset")
	}
}

func TestRunFrameCompletesOneVblank(t *testing.T) {
	e := New()
	if err := e.Load(buildNROM()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	buf, err := e.RunFrame()
	if err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
	if buf == nil {
		t.Fatalf("RunFrame returned a nil frame buffer")
	}
	if e.Frames() != 1 {
		t.Fatalf("Frames() = %d, want 1", e.Frames())
	}
}

func TestRunFrameSurfacesFatalErrorOnIllegalOpcode(t *testing.T) {
	e := New()
	rom := buildNROM()
	rom[16] = 0x02 // undefined opcode at $8000
	if err := e.Load(rom); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err := e.RunFrame()
	fatal, ok := err.(FatalError)
	if !ok {
		t.Fatalf("RunFrame error = %v, want FatalError", err)
	}
	if fatal.Opcode != 0x02 || fatal.PC != 0x8000 {
		t.Fatalf("FatalError = %+v, want opcode 0x02 at $8000", fatal)
	}
}

func TestSetButtonsRoutesToPort1(t *testing.T) {
	e := New()
	if err := e.Load(buildNROM()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.SetButtons(1, 0x01) // A only
	if !e.ports.Port1().IsPressed(1) { // controller.ButtonA == 1
		t.Fatalf("port 1 button A should be pressed after SetButtons")
	}
}

func TestSetZapperSwapsPort2Device(t *testing.T) {
	e := New()
	if err := e.Load(buildNROM()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.SetZapper(10, 10, true)
	if _, ok := e.ports.Port2().(*controller.Zapper); !ok {
		t.Fatalf("port 2 should hold a Zapper after SetZapper")
	}
}

func TestStepInstructionCapturesPreExecutionState(t *testing.T) {
	e := New()
	if err := e.Load(buildNROM()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	state, err := e.StepInstruction()
	if err != nil {
		t.Fatalf("StepInstruction: %v", err)
	}
	if state.PC != 0x8000 {
		t.Fatalf("captured pre-execution PC = $%04X, want $8000", state.PC)
	}
	if e.CPU().PC != 0x8001 {
		t.Fatalf("PC after one NOP = $%04X, want $8001", e.CPU().PC)
	}
}
