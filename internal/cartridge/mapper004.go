package cartridge

// Mapper004 implements MMC3 (mapper 4): two switchable 8KB PRG-ROM banks
// plus a fixed last bank, six switchable CHR banks (two 2KB + four 1KB,
// or the arrangement inverted by CHR A12 mode), mapper-controlled
// mirroring, and a scanline-clocked IRQ counter.
type Mapper004 struct {
	cart     *Cartridge
	prgBanks uint8

	bankSelect uint8
	prgMode    uint8 // 0 or 1
	chrMode    uint8 // 0 or 1
	registers  [8]uint8

	prgRAMEnabled      bool
	prgRAMWriteProtect bool

	irqLatch      uint8
	irqCounter    uint8
	irqEnabled    bool
	irqPending    bool
	irqReloadFlag bool
}

// NewMapper004 creates an MMC3 mapper over the cartridge's loaded ROM.
func NewMapper004(cart *Cartridge) *Mapper004 {
	return &Mapper004{
		cart:          cart,
		prgBanks:      uint8(len(cart.prgROM) / 0x2000),
		prgRAMEnabled: true,
	}
}

// ReadPRG reads PRG-RAM, or one of the four 8KB PRG-ROM windows per the
// bank-select register's PRG mode.
func (m *Mapper004) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			return m.cart.sram[address-0x6000]
		}
		return 0

	case address < 0xA000:
		if m.prgMode == 0 {
			return m.bankRead(m.registers[6], address-0x8000)
		}
		return m.bankRead(m.prgBanks-2, address-0x8000)

	case address < 0xC000:
		return m.bankRead(m.registers[7], address-0xA000)

	case address < 0xE000:
		if m.prgMode == 0 {
			return m.bankRead(m.prgBanks-2, address-0xC000)
		}
		return m.bankRead(m.registers[6], address-0xC000)

	default:
		return m.bankRead(m.prgBanks-1, address-0xE000)
	}
}

func (m *Mapper004) bankRead(bank uint8, offset uint16) uint8 {
	index := uint32(bank)*0x2000 + uint32(offset)
	if int(index) < len(m.cart.prgROM) {
		return m.cart.prgROM[index]
	}
	return 0
}

// WritePRG routes to PRG-RAM or one of the even/odd register pairs at
// $8000-$FFFF (bank select/data, mirroring/RAM-protect, IRQ latch/
// reload, IRQ disable/enable).
func (m *Mapper004) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled && !m.prgRAMWriteProtect {
			m.cart.sram[address-0x6000] = value
		}

	case address < 0xA000:
		if address&1 == 0 {
			m.bankSelect = value & 0x07
			m.prgMode = (value >> 6) & 0x01
			m.chrMode = (value >> 7) & 0x01
		} else {
			m.registers[m.bankSelect] = value
		}

	case address < 0xC000:
		if address&1 == 0 {
			if value&1 == 0 {
				m.cart.SetMirrorMode(MirrorVertical)
			} else {
				m.cart.SetMirrorMode(MirrorHorizontal)
			}
		} else {
			m.prgRAMWriteProtect = value&0x40 != 0
			m.prgRAMEnabled = value&0x80 != 0
		}

	case address < 0xE000:
		if address&1 == 0 {
			m.irqLatch = value
		} else {
			m.irqCounter = 0
			m.irqReloadFlag = true
		}

	default:
		if address&1 == 0 {
			m.irqEnabled = false
			m.irqPending = false
		} else {
			m.irqEnabled = true
		}
	}
}

// ReadCHR reads from one of the six CHR banks, arranged per CHR mode.
func (m *Mapper004) ReadCHR(address uint16) uint8 {
	index := m.chrIndex(address)
	if int(index) < len(m.cart.chrROM) {
		return m.cart.chrROM[index]
	}
	return 0
}

// WriteCHR writes to CHR-RAM only.
func (m *Mapper004) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	index := m.chrIndex(address)
	if int(index) < len(m.cart.chrROM) {
		m.cart.chrROM[index] = value
	}
}

func (m *Mapper004) chrIndex(address uint16) uint32 {
	if m.chrMode == 0 {
		switch {
		case address < 0x0800:
			return uint32(m.registers[0]&0xFE)*0x400 + uint32(address)
		case address < 0x1000:
			return uint32(m.registers[1]&0xFE)*0x400 + uint32(address-0x0800)
		case address < 0x1400:
			return uint32(m.registers[2])*0x400 + uint32(address-0x1000)
		case address < 0x1800:
			return uint32(m.registers[3])*0x400 + uint32(address-0x1400)
		case address < 0x1C00:
			return uint32(m.registers[4])*0x400 + uint32(address-0x1800)
		default:
			return uint32(m.registers[5])*0x400 + uint32(address-0x1C00)
		}
	}
	switch {
	case address < 0x0400:
		return uint32(m.registers[2])*0x400 + uint32(address)
	case address < 0x0800:
		return uint32(m.registers[3])*0x400 + uint32(address-0x0400)
	case address < 0x0C00:
		return uint32(m.registers[4])*0x400 + uint32(address-0x0800)
	case address < 0x1000:
		return uint32(m.registers[5])*0x400 + uint32(address-0x0C00)
	case address < 0x1800:
		return uint32(m.registers[0]&0xFE)*0x400 + uint32(address-0x1000)
	default:
		return uint32(m.registers[1]&0xFE)*0x400 + uint32(address-0x1800)
	}
}

// ClockScanline decrements the IRQ counter, reloading it from the latch
// when it hits zero or a reload was requested, and asserts IRQ when it
// expires with IRQs enabled. Driven by the PPU's dot-260 approximation
// of the real MMC3's PPU-A12 rising-edge clock.
func (m *Mapper004) ClockScanline() {
	if m.irqCounter == 0 || m.irqReloadFlag {
		m.irqCounter = m.irqLatch
		m.irqReloadFlag = false
	} else {
		m.irqCounter--
	}

	if m.irqCounter == 0 && m.irqEnabled {
		m.irqPending = true
	}
}

// IRQPending reports whether the counter has expired with IRQs enabled.
func (m *Mapper004) IRQPending() bool { return m.irqPending }

// ClearIRQ clears the pending IRQ flag.
func (m *Mapper004) ClearIRQ() { m.irqPending = false }
