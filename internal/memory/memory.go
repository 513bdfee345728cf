// Package memory implements the NES's two address buses: the CPU-side
// bus (RAM, PPU/APU registers, controllers, cartridge) and the PPU-side
// bus (pattern tables, nametables, palette RAM).
package memory

// Memory is the CPU-side bus.
type Memory struct {
	ram [0x800]uint8

	ppuRegisters PPUInterface
	apuRegisters APUInterface
	inputSystem  InputInterface
	cartridge    CartridgeInterface

	dmaCallback  func(uint8)
	openBusValue uint8
}

// PPUMemory is the PPU-side bus.
type PPUMemory struct {
	vram       [0x1000]uint8
	paletteRAM [32]uint8
	cartridge  CartridgeInterface
}

// MirrorMode is the nametable mirroring scheme exposed by a cartridge.
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreen0
	MirrorSingleScreen1
	MirrorFourScreen
)

// PPUInterface is the CPU-visible register window of the PPU.
type PPUInterface interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// APUInterface is the CPU-visible register window of the APU.
type APUInterface interface {
	WriteRegister(address uint16, value uint8)
	ReadStatus() uint8
}

// InputInterface is the CPU-visible register window of a controller port.
type InputInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CartridgeInterface is what a mapper exposes to both buses.
type CartridgeInterface interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
	// MirrorMode reports the live nametable mirroring mode (as a
	// MirrorMode ordinal) so MMC1/MMC3 mirroring writes at runtime take
	// effect immediately rather than being frozen at PPUMemory creation.
	MirrorMode() uint8
}

// New creates the CPU-side bus.
func New(ppu PPUInterface, apu APUInterface, cart CartridgeInterface) *Memory {
	return &Memory{ppuRegisters: ppu, apuRegisters: apu, cartridge: cart}
}

// SetInputSystem attaches the controller/zapper ports at $4016/$4017.
func (m *Memory) SetInputSystem(input InputInterface) { m.inputSystem = input }

// SetDMACallback registers the handler for $4014 OAM DMA writes; the
// engine uses this to account for the 513/514-cycle CPU stall.
func (m *Memory) SetDMACallback(callback func(uint8)) { m.dmaCallback = callback }

// Read implements the CPU-side address decode.
func (m *Memory) Read(address uint16) uint8 {
	var value uint8
	switch {
	case address < 0x2000:
		value = m.ram[address&0x07FF]

	case address < 0x4000:
		value = m.ppuRegisters.ReadRegister(0x2000 + (address & 0x0007))

	case address < 0x4020:
		switch {
		case address == 0x4015:
			value = m.apuRegisters.ReadStatus()
		case address == 0x4016 || address == 0x4017:
			if m.inputSystem != nil {
				value = m.inputSystem.Read(address)
			}
		default:
			value = 0 // disabled APU test registers
		}

	case address >= 0x6000 && address < 0x8000:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}

	case address < 0x8000:
		value = m.openBusValue

	default:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}
	}

	m.openBusValue = value
	return value
}

// Write implements the CPU-side address decode.
func (m *Memory) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram[address&0x07FF] = value

	case address < 0x4000:
		m.ppuRegisters.WriteRegister(0x2000+(address&0x0007), value)

	case address < 0x4020:
		switch {
		case address == 0x4014:
			if m.dmaCallback != nil {
				m.dmaCallback(value)
			}
		case address == 0x4016:
			if m.inputSystem != nil {
				m.inputSystem.Write(address, value)
			}
		case address >= 0x4000 && address <= 0x4013, address == 0x4015, address == 0x4017:
			m.apuRegisters.WriteRegister(address, value)
		}

	case address >= 0x6000 && address < 0x8000:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}

	case address < 0x8000:
		// cartridge expansion area, unmapped

	default:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}
	}
}

// NewPPUMemory creates the PPU-side bus for the given cartridge. Nametable
// mirroring is read live from the cartridge on every access, not cached.
func NewPPUMemory(cart CartridgeInterface) *PPUMemory {
	mem := &PPUMemory{cartridge: cart}
	for i := 0; i < 32; i += 4 {
		mem.paletteRAM[i] = 0x0F
	}
	return mem
}

// Read implements the PPU-side address decode.
func (pm *PPUMemory) Read(address uint16) uint8 {
	address &= 0x3FFF
	switch {
	case address < 0x2000:
		return pm.cartridge.ReadCHR(address)
	case address < 0x3000:
		return pm.readNametable(address)
	case address < 0x3F00:
		return pm.readNametable(address - 0x1000)
	default:
		return pm.readPalette(address)
	}
}

// Write implements the PPU-side address decode.
func (pm *PPUMemory) Write(address uint16, value uint8) {
	address &= 0x3FFF
	switch {
	case address < 0x2000:
		pm.cartridge.WriteCHR(address, value)
	case address < 0x3000:
		pm.writeNametable(address, value)
	case address < 0x3F00:
		pm.writeNametable(address-0x1000, value)
	default:
		pm.writePalette(address, value)
	}
}

func (pm *PPUMemory) readNametable(address uint16) uint8 {
	return pm.vram[pm.nametableIndex(address)]
}

func (pm *PPUMemory) writeNametable(address uint16, value uint8) {
	pm.vram[pm.nametableIndex(address)] = value
}

func (pm *PPUMemory) nametableIndex(address uint16) uint16 {
	address &= 0x0FFF
	nametable := (address >> 10) & 3
	offset := address & 0x3FF

	switch MirrorMode(pm.cartridge.MirrorMode()) {
	case MirrorHorizontal:
		if nametable >= 2 {
			return 0x400 + offset
		}
		return offset
	case MirrorVertical:
		if nametable == 1 || nametable == 3 {
			return 0x400 + offset
		}
		return offset
	case MirrorSingleScreen0:
		return offset
	case MirrorSingleScreen1:
		return 0x400 + offset
	case MirrorFourScreen:
		return uint16(nametable)*0x400 + offset
	default:
		return offset
	}
}

// palette aliasing: $3F10/14/18/1C are hard aliases of $3F00/04/08/0C
// .
func paletteIndex(address uint16) uint16 {
	index := (address - 0x3F00) & 0x1F
	if index == 0x10 || index == 0x14 || index == 0x18 || index == 0x1C {
		index &= 0x0F
	}
	return index
}

func (pm *PPUMemory) readPalette(address uint16) uint8 {
	return pm.paletteRAM[paletteIndex(address)]
}

func (pm *PPUMemory) writePalette(address uint16, value uint8) {
	pm.paletteRAM[paletteIndex(address)] = value
}
