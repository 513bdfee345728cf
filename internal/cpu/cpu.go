// Package cpu implements the 6502-family (2A03) CPU used by the NES.
package cpu

// AddressingMode identifies how an instruction's operand address is formed.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

const (
	stackBase = 0x0100

	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01

	zeroPageMask = 0xFF
	pageMask     = 0xFF00

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// Instruction is one entry of the fixed 256-slot opcode decode table.
type Instruction struct {
	Name   string
	Opcode uint8
	Bytes  uint8
	Cycles uint8
	Mode   AddressingMode
}

// MemoryInterface is the bus a CPU reads and writes through.
type MemoryInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CPU is a 2A03 core: 6502 instruction set, no binary-coded decimal, plus
// the NMI/IRQ sampling the NES relies on.
type CPU struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16

	C bool // Carry
	Z bool // Zero
	I bool // Interrupt disable
	D bool // Decimal (no-op on the 2A03)
	V bool // Overflow
	N bool // Negative

	memory MemoryInterface
	cycles uint64

	instructions [256]*Instruction

	nmiPending  bool
	nmiPrevious bool
	irqLine     bool
}

// New creates a CPU driven by the given bus. Call Reset before stepping.
func New(memory MemoryInterface) *CPU {
	c := &CPU{memory: memory, SP: 0xFD}
	c.initInstructions()
	return c
}

// Reset runs the 6502 reset sequence: 5 dummy bus reads followed by a
// 16-bit vector fetch from $FFFC, for 7 cycles total.
func (cpu *CPU) Reset() {
	cpu.A, cpu.X, cpu.Y = 0, 0, 0
	cpu.SP = 0xFD

	cpu.C, cpu.Z, cpu.D, cpu.V, cpu.N = false, false, false, false, false
	cpu.I = true

	for i := 0; i < 5; i++ {
		cpu.memory.Read(cpu.PC)
		cpu.cycles++
	}

	low := uint16(cpu.memory.Read(resetVector))
	high := uint16(cpu.memory.Read(resetVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 2

	cpu.nmiPending = false
	cpu.nmiPrevious = false
	cpu.irqLine = false
}

// Cycles returns the free-running cycle counter since construction/reset.
func (cpu *CPU) Cycles() uint64 { return cpu.cycles }

// State is a read-only snapshot of the CPU's architectural registers,
// useful for reference-log comparisons (e.g. nestest).
type State struct {
	PC             uint16
	A, X, Y, SP, P uint8
	Cycles         uint64
}

// State returns the CPU's current architectural state.
func (cpu *CPU) State() State {
	return State{PC: cpu.PC, A: cpu.A, X: cpu.X, Y: cpu.Y, SP: cpu.SP, P: cpu.GetStatusByte(), Cycles: cpu.cycles}
}

// Step services one pending interrupt, or else decodes and executes one
// instruction at PC. It returns the number of CPU cycles consumed.
func (cpu *CPU) Step() uint8 {
	if cpu.nmiPending {
		cpu.nmiPending = false
		cpu.handleNMI()
		return 7
	}
	if cpu.irqLine && !cpu.I {
		cpu.handleIRQ()
		return 7
	}

	opcode := cpu.memory.Read(cpu.PC)
	instruction := cpu.instructions[opcode]
	if instruction == nil {
		// All 56 documented opcodes are mapped; reaching here is a fatal
		// engine bug, not a recoverable case.
		panic(illegalOpcodeError{opcode: opcode, pc: cpu.PC})
	}

	address, pageCrossed := cpu.getOperandAddress(instruction.Mode)
	extraCycles := cpu.executeInstruction(opcode, address, pageCrossed)

	if pageCrossed {
		switch opcode {
		case 0x9D, 0x99, 0x91: // indexed stores always pay the dummy-read cost up front
		case 0xBD, 0xB9, 0xB1, 0xBE, 0xBC, 0x7D, 0x79, 0x71, 0x3D, 0x39, 0x31, 0x1D, 0x19, 0x11, 0x5D, 0x59, 0x51, 0xDD, 0xD9, 0xD1:
			extraCycles++
		}
	}

	total := instruction.Cycles + extraCycles
	cpu.cycles += uint64(total)
	return total
}

// illegalOpcodeError is the payload of the panic Step raises on an
// undefined opcode; the engine recovers it into a FatalError.
type illegalOpcodeError struct {
	opcode uint8
	pc     uint16
}

func (e illegalOpcodeError) Error() string {
	return "illegal opcode"
}

// Opcode returns the undefined opcode value.
func (e illegalOpcodeError) Opcode() uint8 { return e.opcode }

// PC returns the program counter at the point of the illegal fetch.
func (e illegalOpcodeError) PC() uint16 { return e.pc }

func (cpu *CPU) getOperandAddress(mode AddressingMode) (uint16, bool) {
	switch mode {
	case Implied, Accumulator:
		cpu.PC++
		return 0, false

	case Immediate:
		address := cpu.PC + 1
		cpu.PC += 2
		return address, false

	case ZeroPage:
		address := uint16(cpu.memory.Read(cpu.PC + 1))
		cpu.PC += 2
		return address, false

	case ZeroPageX:
		base := cpu.memory.Read(cpu.PC + 1)
		address := uint16((base + cpu.X) & zeroPageMask)
		cpu.PC += 2
		return address, false

	case ZeroPageY:
		base := cpu.memory.Read(cpu.PC + 1)
		address := uint16((base + cpu.Y) & zeroPageMask)
		cpu.PC += 2
		return address, false

	case Relative:
		offset := int8(cpu.memory.Read(cpu.PC + 1))
		oldPC := cpu.PC + 2
		newPC := uint16(int32(oldPC) + int32(offset))
		cpu.PC = oldPC
		return newPC, (oldPC & pageMask) != (newPC & pageMask)

	case Absolute:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		cpu.PC += 3
		return (high << 8) | low, false

	case AbsoluteX:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.X)
		cpu.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case AbsoluteY:
		low := uint16(cpu.memory.Read(cpu.PC + 1))
		high := uint16(cpu.memory.Read(cpu.PC + 2))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 3
		return address, (base & pageMask) != (address & pageMask)

	case Indirect: // JMP only, reproduces the $xxFF page-wrap bug
		lowPtr := uint16(cpu.memory.Read(cpu.PC + 1))
		highPtr := uint16(cpu.memory.Read(cpu.PC + 2))
		ptr := (highPtr << 8) | lowPtr

		var address uint16
		if (ptr & zeroPageMask) == zeroPageMask {
			low := uint16(cpu.memory.Read(ptr))
			high := uint16(cpu.memory.Read(ptr & pageMask))
			address = (high << 8) | low
		} else {
			low := uint16(cpu.memory.Read(ptr))
			high := uint16(cpu.memory.Read(ptr + 1))
			address = (high << 8) | low
		}
		cpu.PC += 3
		return address, false

	case IndexedIndirect:
		base := cpu.memory.Read(cpu.PC + 1)
		ptr := (base + cpu.X) & zeroPageMask
		low := uint16(cpu.memory.Read(uint16(ptr)))
		high := uint16(cpu.memory.Read(uint16((ptr + 1) & zeroPageMask)))
		cpu.PC += 2
		return (high << 8) | low, false

	case IndirectIndexed:
		ptr := uint16(cpu.memory.Read(cpu.PC + 1))
		low := uint16(cpu.memory.Read(ptr))
		high := uint16(cpu.memory.Read((ptr + 1) & zeroPageMask))
		base := (high << 8) | low
		address := base + uint16(cpu.Y)
		cpu.PC += 2
		return address, (base & pageMask) != (address & pageMask)

	default:
		return 0, false
	}
}

func (cpu *CPU) push(value uint8) {
	cpu.memory.Write(stackBase+uint16(cpu.SP), value)
	cpu.SP--
}

func (cpu *CPU) pop() uint8 {
	cpu.SP++
	return cpu.memory.Read(stackBase + uint16(cpu.SP))
}

func (cpu *CPU) pushWord(value uint16) {
	cpu.push(uint8(value >> 8))
	cpu.push(uint8(value & 0xFF))
}

func (cpu *CPU) popWord() uint16 {
	low := uint16(cpu.pop())
	high := uint16(cpu.pop())
	return (high << 8) | low
}

func (cpu *CPU) setZN(value uint8) {
	cpu.Z = value == 0
	cpu.N = (value & nFlagMask) != 0
}

// handleNMI/handleIRQ push PC and status (Break cleared, Unused set),
// set the interrupt-disable flag, and load the vector.
func (cpu *CPU) handleNMI() {
	cpu.pushWord(cpu.PC)
	cpu.push(cpu.GetStatusByte())
	cpu.I = true
	low := uint16(cpu.memory.Read(nmiVector))
	high := uint16(cpu.memory.Read(nmiVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 7
}

func (cpu *CPU) handleIRQ() {
	cpu.pushWord(cpu.PC)
	cpu.push(cpu.GetStatusByte())
	cpu.I = true
	low := uint16(cpu.memory.Read(irqVector))
	high := uint16(cpu.memory.Read(irqVector + 1))
	cpu.PC = (high << 8) | low
	cpu.cycles += 7
}

// SetNMI latches a pending NMI on the falling edge of the line (the PPU
// holds the line high for the duration of vblank-with-NMI-enabled).
func (cpu *CPU) SetNMI(state bool) {
	if cpu.nmiPrevious && !state {
		cpu.nmiPending = true
	}
	cpu.nmiPrevious = state
}

// SetIRQ sets the level-sensitive IRQ line; any source asserting it keeps
// it asserted until that source clears its own condition.
func (cpu *CPU) SetIRQ(state bool) { cpu.irqLine = state }

// GetStatusByte packs the flags into the 6502 status byte, with the
// Unused bit always set and the Break bit always clear: Break is not an
// architectural register, it only ever exists in a byte already on its way
// to the stack (BRK/PHP OR it in at the push site).
func (cpu *CPU) GetStatusByte() uint8 {
	var status uint8
	if cpu.N {
		status |= nFlagMask
	}
	if cpu.V {
		status |= vFlagMask
	}
	status |= unusedMask
	if cpu.D {
		status |= dFlagMask
	}
	if cpu.I {
		status |= iFlagMask
	}
	if cpu.Z {
		status |= zFlagMask
	}
	if cpu.C {
		status |= cFlagMask
	}
	return status
}

// SetStatusByte unpacks a status byte into the flags (used by PLP/RTI). The
// popped Break bit is discarded: it never reads back from the register.
func (cpu *CPU) SetStatusByte(status uint8) {
	cpu.N = (status & nFlagMask) != 0
	cpu.V = (status & vFlagMask) != 0
	cpu.D = (status & dFlagMask) != 0
	cpu.I = (status & iFlagMask) != 0
	cpu.Z = (status & zFlagMask) != 0
	cpu.C = (status & cFlagMask) != 0
}

// --- Instruction bodies ---

func (cpu *CPU) lda(address uint16) uint8 {
	cpu.A = cpu.memory.Read(address)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) ldx(address uint16) uint8 {
	cpu.X = cpu.memory.Read(address)
	cpu.setZN(cpu.X)
	return 0
}

func (cpu *CPU) ldy(address uint16) uint8 {
	cpu.Y = cpu.memory.Read(address)
	cpu.setZN(cpu.Y)
	return 0
}

func (cpu *CPU) sta(address uint16) uint8 {
	cpu.memory.Write(address, cpu.A)
	return 0
}

func (cpu *CPU) stx(address uint16) uint8 {
	cpu.memory.Write(address, cpu.X)
	return 0
}

func (cpu *CPU) sty(address uint16) uint8 {
	cpu.memory.Write(address, cpu.Y)
	return 0
}

func (cpu *CPU) adc(address uint16) uint8 {
	value := cpu.memory.Read(address)
	carry := uint8(0)
	if cpu.C {
		carry = 1
	}
	result := uint16(cpu.A) + uint16(value) + uint16(carry)
	cpu.V = ((cpu.A^uint8(result))&0x80) != 0 && ((cpu.A^value)&0x80) == 0
	cpu.C = result > 0xFF
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) sbc(address uint16) uint8 {
	value := cpu.memory.Read(address) ^ 0xFF
	carry := uint8(0)
	if cpu.C {
		carry = 1
	}
	result := uint16(cpu.A) + uint16(value) + uint16(carry)
	cpu.V = ((cpu.A^uint8(result))&0x80) != 0 && ((cpu.A^value)&0x80) == 0
	cpu.C = result > 0xFF
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) and(address uint16) uint8 {
	cpu.A &= cpu.memory.Read(address)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) ora(address uint16) uint8 {
	cpu.A |= cpu.memory.Read(address)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) eor(address uint16) uint8 {
	cpu.A ^= cpu.memory.Read(address)
	cpu.setZN(cpu.A)
	return 0
}

func (cpu *CPU) asl(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x80) != 0
	value <<= 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) lsr(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = (value & 0x01) != 0
	value >>= 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) rol(address uint16) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x80) != 0
	value <<= 1
	if oldCarry {
		value |= 0x01
	}
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) ror(address uint16) uint8 {
	value := cpu.memory.Read(address)
	oldCarry := cpu.C
	cpu.C = (value & 0x01) != 0
	value >>= 1
	if oldCarry {
		value |= 0x80
	}
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) cmp(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = cpu.A >= value
	cpu.setZN(cpu.A - value)
	return 0
}

func (cpu *CPU) cpx(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = cpu.X >= value
	cpu.setZN(cpu.X - value)
	return 0
}

func (cpu *CPU) cpy(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.C = cpu.Y >= value
	cpu.setZN(cpu.Y - value)
	return 0
}

func (cpu *CPU) inc(address uint16) uint8 {
	value := cpu.memory.Read(address) + 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) dec(address uint16) uint8 {
	value := cpu.memory.Read(address) - 1
	cpu.memory.Write(address, value)
	cpu.setZN(value)
	return 0
}

func (cpu *CPU) inx(uint16) uint8 { cpu.X++; cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) dex(uint16) uint8 { cpu.X--; cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) iny(uint16) uint8 { cpu.Y++; cpu.setZN(cpu.Y); return 0 }
func (cpu *CPU) dey(uint16) uint8 { cpu.Y--; cpu.setZN(cpu.Y); return 0 }

func (cpu *CPU) tax(uint16) uint8 { cpu.X = cpu.A; cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) txa(uint16) uint8 { cpu.A = cpu.X; cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) tay(uint16) uint8 { cpu.Y = cpu.A; cpu.setZN(cpu.Y); return 0 }
func (cpu *CPU) tya(uint16) uint8 { cpu.A = cpu.Y; cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) tsx(uint16) uint8 { cpu.X = cpu.SP; cpu.setZN(cpu.X); return 0 }
func (cpu *CPU) txs(uint16) uint8 { cpu.SP = cpu.X; return 0 }

func (cpu *CPU) pha(uint16) uint8 { cpu.push(cpu.A); return 0 }
func (cpu *CPU) pla(uint16) uint8 { cpu.A = cpu.pop(); cpu.setZN(cpu.A); return 0 }
func (cpu *CPU) php(uint16) uint8 { cpu.push(cpu.GetStatusByte() | bFlagMask); return 0 }
func (cpu *CPU) plp(uint16) uint8 { cpu.SetStatusByte(cpu.pop()); return 0 }

func (cpu *CPU) clc(uint16) uint8 { cpu.C = false; return 0 }
func (cpu *CPU) sec(uint16) uint8 { cpu.C = true; return 0 }
func (cpu *CPU) cli(uint16) uint8 { cpu.I = false; return 0 }
func (cpu *CPU) sei(uint16) uint8 { cpu.I = true; return 0 }
func (cpu *CPU) clv(uint16) uint8 { cpu.V = false; return 0 }
func (cpu *CPU) cld(uint16) uint8 { cpu.D = false; return 0 }
func (cpu *CPU) sed(uint16) uint8 { cpu.D = true; return 0 }

func (cpu *CPU) jmp(address uint16) uint8 { cpu.PC = address; return 0 }

func (cpu *CPU) jsr(address uint16) uint8 {
	cpu.pushWord(cpu.PC - 1)
	cpu.PC = address
	return 0
}

func (cpu *CPU) rts(uint16) uint8 { cpu.PC = cpu.popWord() + 1; return 0 }

func (cpu *CPU) rti(uint16) uint8 {
	cpu.SetStatusByte(cpu.pop())
	cpu.PC = cpu.popWord()
	return 0
}

func branch(cpu *CPU, taken bool, address uint16, pageCrossed bool) uint8 {
	if !taken {
		return 0
	}
	cpu.PC = address
	if pageCrossed {
		return 2
	}
	return 1
}

func (cpu *CPU) bcc(address uint16, pc bool) uint8 { return branch(cpu, !cpu.C, address, pc) }
func (cpu *CPU) bcs(address uint16, pc bool) uint8 { return branch(cpu, cpu.C, address, pc) }
func (cpu *CPU) bne(address uint16, pc bool) uint8 { return branch(cpu, !cpu.Z, address, pc) }
func (cpu *CPU) beq(address uint16, pc bool) uint8 { return branch(cpu, cpu.Z, address, pc) }
func (cpu *CPU) bpl(address uint16, pc bool) uint8 { return branch(cpu, !cpu.N, address, pc) }
func (cpu *CPU) bmi(address uint16, pc bool) uint8 { return branch(cpu, cpu.N, address, pc) }
func (cpu *CPU) bvc(address uint16, pc bool) uint8 { return branch(cpu, !cpu.V, address, pc) }
func (cpu *CPU) bvs(address uint16, pc bool) uint8 { return branch(cpu, cpu.V, address, pc) }

func (cpu *CPU) bit(address uint16) uint8 {
	value := cpu.memory.Read(address)
	cpu.N = (value & nFlagMask) != 0
	cpu.V = (value & vFlagMask) != 0
	cpu.Z = (cpu.A & value) == 0
	return 0
}

func (cpu *CPU) nop(uint16) uint8 { return 0 }

func (cpu *CPU) brk(uint16) uint8 {
	cpu.PC++ // skip the signature/padding byte
	cpu.pushWord(cpu.PC)
	cpu.push(cpu.GetStatusByte() | bFlagMask)
	cpu.I = true
	low := uint16(cpu.memory.Read(irqVector))
	high := uint16(cpu.memory.Read(irqVector + 1))
	cpu.PC = (high << 8) | low
	return 0
}

// executeInstruction dispatches on opcode, the accumulator-mode shift/
// rotate variants are inlined here since they operate on A rather than a
// memory operand.
func (cpu *CPU) executeInstruction(opcode uint8, address uint16, pageCrossed bool) uint8 {
	switch opcode {
	case 0xA9, 0xA5, 0xB5, 0xAD, 0xBD, 0xB9, 0xA1, 0xB1:
		return cpu.lda(address)
	case 0xA2, 0xA6, 0xB6, 0xAE, 0xBE:
		return cpu.ldx(address)
	case 0xA0, 0xA4, 0xB4, 0xAC, 0xBC:
		return cpu.ldy(address)
	case 0x85, 0x95, 0x8D, 0x9D, 0x99, 0x81, 0x91:
		return cpu.sta(address)
	case 0x86, 0x96, 0x8E:
		return cpu.stx(address)
	case 0x84, 0x94, 0x8C:
		return cpu.sty(address)

	case 0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71:
		return cpu.adc(address)
	case 0xE9, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1:
		return cpu.sbc(address)

	case 0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31:
		return cpu.and(address)
	case 0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11:
		return cpu.ora(address)
	case 0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51:
		return cpu.eor(address)

	case 0x0A:
		cpu.C = (cpu.A & 0x80) != 0
		cpu.A <<= 1
		cpu.setZN(cpu.A)
		return 0
	case 0x06, 0x16, 0x0E, 0x1E:
		return cpu.asl(address)
	case 0x4A:
		cpu.C = (cpu.A & 0x01) != 0
		cpu.A >>= 1
		cpu.setZN(cpu.A)
		return 0
	case 0x46, 0x56, 0x4E, 0x5E:
		return cpu.lsr(address)
	case 0x2A:
		oldCarry := cpu.C
		cpu.C = (cpu.A & 0x80) != 0
		cpu.A <<= 1
		if oldCarry {
			cpu.A |= 0x01
		}
		cpu.setZN(cpu.A)
		return 0
	case 0x26, 0x36, 0x2E, 0x3E:
		return cpu.rol(address)
	case 0x6A:
		oldCarry := cpu.C
		cpu.C = (cpu.A & 0x01) != 0
		cpu.A >>= 1
		if oldCarry {
			cpu.A |= 0x80
		}
		cpu.setZN(cpu.A)
		return 0
	case 0x66, 0x76, 0x6E, 0x7E:
		return cpu.ror(address)

	case 0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1:
		return cpu.cmp(address)
	case 0xE0, 0xE4, 0xEC:
		return cpu.cpx(address)
	case 0xC0, 0xC4, 0xCC:
		return cpu.cpy(address)

	case 0xE6, 0xF6, 0xEE, 0xFE:
		return cpu.inc(address)
	case 0xC6, 0xD6, 0xCE, 0xDE:
		return cpu.dec(address)
	case 0xE8:
		return cpu.inx(address)
	case 0xCA:
		return cpu.dex(address)
	case 0xC8:
		return cpu.iny(address)
	case 0x88:
		return cpu.dey(address)

	case 0xAA:
		return cpu.tax(address)
	case 0x8A:
		return cpu.txa(address)
	case 0xA8:
		return cpu.tay(address)
	case 0x98:
		return cpu.tya(address)
	case 0xBA:
		return cpu.tsx(address)
	case 0x9A:
		return cpu.txs(address)

	case 0x48:
		return cpu.pha(address)
	case 0x68:
		return cpu.pla(address)
	case 0x08:
		return cpu.php(address)
	case 0x28:
		return cpu.plp(address)

	case 0x18:
		return cpu.clc(address)
	case 0x38:
		return cpu.sec(address)
	case 0x58:
		return cpu.cli(address)
	case 0x78:
		return cpu.sei(address)
	case 0xB8:
		return cpu.clv(address)
	case 0xD8:
		return cpu.cld(address)
	case 0xF8:
		return cpu.sed(address)

	case 0x4C, 0x6C:
		return cpu.jmp(address)
	case 0x20:
		return cpu.jsr(address)
	case 0x60:
		return cpu.rts(address)
	case 0x40:
		return cpu.rti(address)

	case 0x90:
		return cpu.bcc(address, pageCrossed)
	case 0xB0:
		return cpu.bcs(address, pageCrossed)
	case 0xD0:
		return cpu.bne(address, pageCrossed)
	case 0xF0:
		return cpu.beq(address, pageCrossed)
	case 0x10:
		return cpu.bpl(address, pageCrossed)
	case 0x30:
		return cpu.bmi(address, pageCrossed)
	case 0x50:
		return cpu.bvc(address, pageCrossed)
	case 0x70:
		return cpu.bvs(address, pageCrossed)

	case 0x24, 0x2C:
		return cpu.bit(address)
	case 0x00:
		return cpu.brk(address)
	case 0xEA:
		return cpu.nop(address)

	default:
		return 0
	}
}

// initInstructions populates the 256-slot decode table with the 56
// documented 6502 opcodes; undefined slots stay nil and are fatal at Step.
func (cpu *CPU) initInstructions() {
	add := func(op uint8, name string, bytes, cycles uint8, mode AddressingMode) {
		cpu.instructions[op] = &Instruction{name, op, bytes, cycles, mode}
	}

	add(0xA9, "LDA", 2, 2, Immediate)
	add(0xA5, "LDA", 2, 3, ZeroPage)
	add(0xB5, "LDA", 2, 4, ZeroPageX)
	add(0xAD, "LDA", 3, 4, Absolute)
	add(0xBD, "LDA", 3, 4, AbsoluteX)
	add(0xB9, "LDA", 3, 4, AbsoluteY)
	add(0xA1, "LDA", 2, 6, IndexedIndirect)
	add(0xB1, "LDA", 2, 5, IndirectIndexed)

	add(0xA2, "LDX", 2, 2, Immediate)
	add(0xA6, "LDX", 2, 3, ZeroPage)
	add(0xB6, "LDX", 2, 4, ZeroPageY)
	add(0xAE, "LDX", 3, 4, Absolute)
	add(0xBE, "LDX", 3, 4, AbsoluteY)

	add(0xA0, "LDY", 2, 2, Immediate)
	add(0xA4, "LDY", 2, 3, ZeroPage)
	add(0xB4, "LDY", 2, 4, ZeroPageX)
	add(0xAC, "LDY", 3, 4, Absolute)
	add(0xBC, "LDY", 3, 4, AbsoluteX)

	add(0x85, "STA", 2, 3, ZeroPage)
	add(0x95, "STA", 2, 4, ZeroPageX)
	add(0x8D, "STA", 3, 4, Absolute)
	add(0x9D, "STA", 3, 5, AbsoluteX)
	add(0x99, "STA", 3, 5, AbsoluteY)
	add(0x81, "STA", 2, 6, IndexedIndirect)
	add(0x91, "STA", 2, 6, IndirectIndexed)

	add(0x86, "STX", 2, 3, ZeroPage)
	add(0x96, "STX", 2, 4, ZeroPageY)
	add(0x8E, "STX", 3, 4, Absolute)

	add(0x84, "STY", 2, 3, ZeroPage)
	add(0x94, "STY", 2, 4, ZeroPageX)
	add(0x8C, "STY", 3, 4, Absolute)

	add(0x69, "ADC", 2, 2, Immediate)
	add(0x65, "ADC", 2, 3, ZeroPage)
	add(0x75, "ADC", 2, 4, ZeroPageX)
	add(0x6D, "ADC", 3, 4, Absolute)
	add(0x7D, "ADC", 3, 4, AbsoluteX)
	add(0x79, "ADC", 3, 4, AbsoluteY)
	add(0x61, "ADC", 2, 6, IndexedIndirect)
	add(0x71, "ADC", 2, 5, IndirectIndexed)

	add(0xE9, "SBC", 2, 2, Immediate)
	add(0xE5, "SBC", 2, 3, ZeroPage)
	add(0xF5, "SBC", 2, 4, ZeroPageX)
	add(0xED, "SBC", 3, 4, Absolute)
	add(0xFD, "SBC", 3, 4, AbsoluteX)
	add(0xF9, "SBC", 3, 4, AbsoluteY)
	add(0xE1, "SBC", 2, 6, IndexedIndirect)
	add(0xF1, "SBC", 2, 5, IndirectIndexed)

	add(0x29, "AND", 2, 2, Immediate)
	add(0x25, "AND", 2, 3, ZeroPage)
	add(0x35, "AND", 2, 4, ZeroPageX)
	add(0x2D, "AND", 3, 4, Absolute)
	add(0x3D, "AND", 3, 4, AbsoluteX)
	add(0x39, "AND", 3, 4, AbsoluteY)
	add(0x21, "AND", 2, 6, IndexedIndirect)
	add(0x31, "AND", 2, 5, IndirectIndexed)

	add(0x09, "ORA", 2, 2, Immediate)
	add(0x05, "ORA", 2, 3, ZeroPage)
	add(0x15, "ORA", 2, 4, ZeroPageX)
	add(0x0D, "ORA", 3, 4, Absolute)
	add(0x1D, "ORA", 3, 4, AbsoluteX)
	add(0x19, "ORA", 3, 4, AbsoluteY)
	add(0x01, "ORA", 2, 6, IndexedIndirect)
	add(0x11, "ORA", 2, 5, IndirectIndexed)

	add(0x49, "EOR", 2, 2, Immediate)
	add(0x45, "EOR", 2, 3, ZeroPage)
	add(0x55, "EOR", 2, 4, ZeroPageX)
	add(0x4D, "EOR", 3, 4, Absolute)
	add(0x5D, "EOR", 3, 4, AbsoluteX)
	add(0x59, "EOR", 3, 4, AbsoluteY)
	add(0x41, "EOR", 2, 6, IndexedIndirect)
	add(0x51, "EOR", 2, 5, IndirectIndexed)

	add(0x0A, "ASL", 1, 2, Accumulator)
	add(0x06, "ASL", 2, 5, ZeroPage)
	add(0x16, "ASL", 2, 6, ZeroPageX)
	add(0x0E, "ASL", 3, 6, Absolute)
	add(0x1E, "ASL", 3, 7, AbsoluteX)

	add(0x4A, "LSR", 1, 2, Accumulator)
	add(0x46, "LSR", 2, 5, ZeroPage)
	add(0x56, "LSR", 2, 6, ZeroPageX)
	add(0x4E, "LSR", 3, 6, Absolute)
	add(0x5E, "LSR", 3, 7, AbsoluteX)

	add(0x2A, "ROL", 1, 2, Accumulator)
	add(0x26, "ROL", 2, 5, ZeroPage)
	add(0x36, "ROL", 2, 6, ZeroPageX)
	add(0x2E, "ROL", 3, 6, Absolute)
	add(0x3E, "ROL", 3, 7, AbsoluteX)

	add(0x6A, "ROR", 1, 2, Accumulator)
	add(0x66, "ROR", 2, 5, ZeroPage)
	add(0x76, "ROR", 2, 6, ZeroPageX)
	add(0x6E, "ROR", 3, 6, Absolute)
	add(0x7E, "ROR", 3, 7, AbsoluteX)

	add(0xC9, "CMP", 2, 2, Immediate)
	add(0xC5, "CMP", 2, 3, ZeroPage)
	add(0xD5, "CMP", 2, 4, ZeroPageX)
	add(0xCD, "CMP", 3, 4, Absolute)
	add(0xDD, "CMP", 3, 4, AbsoluteX)
	add(0xD9, "CMP", 3, 4, AbsoluteY)
	add(0xC1, "CMP", 2, 6, IndexedIndirect)
	add(0xD1, "CMP", 2, 5, IndirectIndexed)

	add(0xE0, "CPX", 2, 2, Immediate)
	add(0xE4, "CPX", 2, 3, ZeroPage)
	add(0xEC, "CPX", 3, 4, Absolute)

	add(0xC0, "CPY", 2, 2, Immediate)
	add(0xC4, "CPY", 2, 3, ZeroPage)
	add(0xCC, "CPY", 3, 4, Absolute)

	add(0xE6, "INC", 2, 5, ZeroPage)
	add(0xF6, "INC", 2, 6, ZeroPageX)
	add(0xEE, "INC", 3, 6, Absolute)
	add(0xFE, "INC", 3, 7, AbsoluteX)

	add(0xC6, "DEC", 2, 5, ZeroPage)
	add(0xD6, "DEC", 2, 6, ZeroPageX)
	add(0xCE, "DEC", 3, 6, Absolute)
	add(0xDE, "DEC", 3, 7, AbsoluteX)

	add(0xE8, "INX", 1, 2, Implied)
	add(0xCA, "DEX", 1, 2, Implied)
	add(0xC8, "INY", 1, 2, Implied)
	add(0x88, "DEY", 1, 2, Implied)

	add(0xAA, "TAX", 1, 2, Implied)
	add(0x8A, "TXA", 1, 2, Implied)
	add(0xA8, "TAY", 1, 2, Implied)
	add(0x98, "TYA", 1, 2, Implied)
	add(0xBA, "TSX", 1, 2, Implied)
	add(0x9A, "TXS", 1, 2, Implied)

	add(0x48, "PHA", 1, 3, Implied)
	add(0x68, "PLA", 1, 4, Implied)
	add(0x08, "PHP", 1, 3, Implied)
	add(0x28, "PLP", 1, 4, Implied)

	add(0x18, "CLC", 1, 2, Implied)
	add(0x38, "SEC", 1, 2, Implied)
	add(0x58, "CLI", 1, 2, Implied)
	add(0x78, "SEI", 1, 2, Implied)
	add(0xB8, "CLV", 1, 2, Implied)
	add(0xD8, "CLD", 1, 2, Implied)
	add(0xF8, "SED", 1, 2, Implied)

	add(0x4C, "JMP", 3, 3, Absolute)
	add(0x6C, "JMP", 3, 5, Indirect)
	add(0x20, "JSR", 3, 6, Absolute)
	add(0x60, "RTS", 1, 6, Implied)
	add(0x40, "RTI", 1, 6, Implied)

	add(0x90, "BCC", 2, 2, Relative)
	add(0xB0, "BCS", 2, 2, Relative)
	add(0xD0, "BNE", 2, 2, Relative)
	add(0xF0, "BEQ", 2, 2, Relative)
	add(0x10, "BPL", 2, 2, Relative)
	add(0x30, "BMI", 2, 2, Relative)
	add(0x50, "BVC", 2, 2, Relative)
	add(0x70, "BVS", 2, 2, Relative)

	add(0x24, "BIT", 2, 3, ZeroPage)
	add(0x2C, "BIT", 3, 4, Absolute)
	add(0xEA, "NOP", 1, 2, Implied)
	add(0x00, "BRK", 1, 7, Implied)
}
