package cpu

import "testing"

// ramBus is a flat 64KiB RAM used as the CPU's bus in isolation tests.
type ramBus struct {
	mem [65536]uint8
}

func (b *ramBus) Read(address uint16) uint8  { return b.mem[address] }
func (b *ramBus) Write(address uint16, v uint8) { b.mem[address] = v }

func newTestCPU() (*CPU, *ramBus) {
	bus := &ramBus{}
	bus.mem[resetVector] = 0x00
	bus.mem[resetVector+1] = 0x80
	c := New(bus)
	c.Reset()
	return c, bus
}

func TestResetVector(t *testing.T) {
	c, _ := newTestCPU()
	if c.PC != 0x8000 {
		t.Fatalf("PC after reset = %#04x, want 0x8000", c.PC)
	}
	if !c.I {
		t.Fatalf("I flag after reset = false, want true")
	}
	if c.SP != 0xFD {
		t.Fatalf("SP after reset = %#02x, want 0xFD", c.SP)
	}
	if c.Cycles() != 7 {
		t.Fatalf("reset consumed %d cycles, want 7", c.Cycles())
	}
}

func TestLDAImmediateSetsFlags(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x8000] = 0xA9 // LDA #$00
	bus.mem[0x8001] = 0x00
	cycles := c.Step()
	if cycles != 2 {
		t.Fatalf("LDA #imm took %d cycles, want 2", cycles)
	}
	if !c.Z || c.N {
		t.Fatalf("LDA #$00 flags Z=%v N=%v, want Z=true N=false", c.Z, c.N)
	}
}

func TestAbsoluteXPageCrossPenalty(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x8000] = 0xBD // LDA $80FF,X
	bus.mem[0x8001] = 0xFF
	bus.mem[0x8002] = 0x80
	c.X = 1
	bus.mem[0x8100] = 0x42
	cycles := c.Step()
	if cycles != 5 {
		t.Fatalf("page-crossing LDA abs,X took %d cycles, want 5", cycles)
	}
	if c.A != 0x42 {
		t.Fatalf("A = %#02x, want 0x42", c.A)
	}
}

func TestIndirectJMPPageWrapBug(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x8000] = 0x6C // JMP ($30FF)
	bus.mem[0x8001] = 0xFF
	bus.mem[0x8002] = 0x30
	bus.mem[0x30FF] = 0x00
	bus.mem[0x3000] = 0x40 // high byte wrongly read from start of page
	bus.mem[0x3100] = 0x90
	c.Step()
	if c.PC != 0x4000 {
		t.Fatalf("PC after buggy indirect JMP = %#04x, want 0x4000", c.PC)
	}
}

func TestPHPSetsBreakAndUnused(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x8000] = 0x08 // PHP
	c.Step()
	pushed := bus.mem[stackBase+uint16(c.SP)+1]
	if pushed&bFlagMask == 0 || pushed&unusedMask == 0 {
		t.Fatalf("PHP pushed %#02x, want Break and Unused set", pushed)
	}
}

func TestPHAPLARoundTrip(t *testing.T) {
	c, bus := newTestCPU()
	c.A = 0x7E
	bus.mem[0x8000] = 0x48 // PHA
	bus.mem[0x8001] = 0xA9 // LDA #$00 (clobber A)
	bus.mem[0x8002] = 0x00
	bus.mem[0x8003] = 0x68 // PLA
	c.Step()
	c.Step()
	c.Step()
	if c.A != 0x7E {
		t.Fatalf("A after PHA/PLA round trip = %#02x, want 0x7E", c.A)
	}
}

func TestStatusRoundTripThroughStack(t *testing.T) {
	c, bus := newTestCPU()
	c.C, c.Z, c.N = true, true, false
	before := c.GetStatusByte()
	bus.mem[0x8000] = 0x08 // PHP
	bus.mem[0x8001] = 0x28 // PLP
	c.Step()
	c.Step()
	after := c.GetStatusByte()
	if before != after {
		t.Fatalf("status round trip mismatch: before=%#02x after=%#02x", before, after)
	}
	if before&bFlagMask != 0 {
		t.Fatalf("GetStatusByte has Break set outside a pushed copy: %#02x", before)
	}
}

func TestResetStatusByteIs0x24(t *testing.T) {
	c, _ := newTestCPU()
	if got := c.GetStatusByte(); got != 0x24 {
		t.Fatalf("status byte after reset = %#02x, want 0x24", got)
	}
}

func TestPLPDiscardsPushedBreakBit(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x8000] = 0x08 // PHP: pushes with Break=1, Unused=1
	bus.mem[0x8001] = 0x28 // PLP: Break must not survive into the register
	c.Step()
	c.Step()
	if got := c.GetStatusByte(); got&bFlagMask != 0 {
		t.Fatalf("status byte after PLP = %#02x, Break bit should read as 0", got)
	}
}

func TestNMIServicedBeforeNextInstruction(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[nmiVector] = 0x00
	bus.mem[nmiVector+1] = 0x90
	bus.mem[0x8000] = 0xEA // NOP
	c.Step()
	c.SetNMI(true)
	c.SetNMI(false) // falling edge latches the pending NMI
	cycles := c.Step()
	if cycles != 7 {
		t.Fatalf("NMI service took %d cycles, want 7", cycles)
	}
	if c.PC != 0x9000 {
		t.Fatalf("PC after NMI = %#04x, want 0x9000", c.PC)
	}
	if !c.I {
		t.Fatalf("I flag after NMI service = false, want true")
	}
}

func TestIRQMaskedByInterruptDisable(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x8000] = 0x78 // SEI
	bus.mem[0x8001] = 0xEA // NOP
	c.Step()
	c.SetIRQ(true)
	cycles := c.Step()
	if cycles != 2 {
		t.Fatalf("masked IRQ still consumed %d cycles via interrupt service, want the NOP's 2", cycles)
	}
}

func TestIllegalOpcodePanics(t *testing.T) {
	c, bus := newTestCPU()
	bus.mem[0x8000] = 0x02 // undefined
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic on illegal opcode")
		}
		if _, ok := r.(illegalOpcodeError); !ok {
			t.Fatalf("panic value = %#v, want illegalOpcodeError", r)
		}
	}()
	c.Step()
}
