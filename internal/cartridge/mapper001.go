package cartridge

// Mapper001 implements MMC1 (mapper 1): a serial 5-bit shift register
// feeding control/CHR-bank/PRG-bank registers, switchable PRG in 16KB or
// 32KB mode, switchable CHR in 4KB or 8KB mode, and mapper-controlled
// mirroring.
type Mapper001 struct {
	cart     *Cartridge
	prgBanks uint8 // number of 16KB PRG banks
	chrBanks uint8 // number of 4KB CHR banks

	shiftRegister uint8
	shiftCount    uint8

	control uint8 // mirroring(1:0), prgMode(3:2), chrMode(4)
	chrBank0 uint8
	chrBank1 uint8
	prgBank  uint8

	prgRAMEnabled bool
}

// NewMapper001 creates an MMC1 mapper over the cartridge's loaded ROM.
func NewMapper001(cart *Cartridge) *Mapper001 {
	return &Mapper001{
		cart:          cart,
		prgBanks:      uint8(len(cart.prgROM) / 0x4000),
		chrBanks:      uint8(len(cart.chrROM) / 0x1000),
		shiftRegister: 0x10,
		control:       0x0C, // power-on: PRG mode 3 (fix last bank at $C000)
		prgRAMEnabled: true,
	}
}

func (m *Mapper001) mirroring() MirrorMode {
	switch m.control & 0x03 {
	case 0:
		return MirrorSingleScreen0
	case 1:
		return MirrorSingleScreen1
	case 2:
		return MirrorVertical
	default:
		return MirrorHorizontal
	}
}

func (m *Mapper001) prgMode() uint8 { return (m.control >> 2) & 0x03 }
func (m *Mapper001) chrMode() uint8 { return (m.control >> 4) & 0x01 }

// ReadPRG reads PRG-RAM at $6000-$7FFF or a banked PRG-ROM window above.
func (m *Mapper001) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			return m.cart.sram[address-0x6000]
		}
		return 0

	case address >= 0x8000 && address < 0xC000:
		var bank uint8
		switch m.prgMode() {
		case 0, 1:
			bank = m.prgBank & 0xFE
		case 2:
			bank = 0
		default: // 3
			bank = m.prgBank
		}
		return m.readPRGBank(bank, address-0x8000)

	default: // 0xC000-0xFFFF
		var bank uint8
		switch m.prgMode() {
		case 0, 1:
			bank = (m.prgBank & 0xFE) | 1
		case 2:
			bank = m.prgBank
		default: // 3
			bank = m.prgBanks - 1
		}
		return m.readPRGBank(bank, address-0xC000)
	}
}

func (m *Mapper001) readPRGBank(bank uint8, offset uint16) uint8 {
	index := uint32(bank)*0x4000 + uint32(offset)
	if int(index) < len(m.cart.prgROM) {
		return m.cart.prgROM[index]
	}
	return 0
}

// WritePRG feeds the 5-bit serial shift register, or writes PRG-RAM.
func (m *Mapper001) WritePRG(address uint16, value uint8) {
	if address >= 0x6000 && address < 0x8000 {
		if m.prgRAMEnabled {
			m.cart.sram[address-0x6000] = value
		}
		return
	}
	if address < 0x8000 {
		return
	}

	if value&0x80 != 0 {
		m.shiftRegister = 0x10
		m.shiftCount = 0
		m.control |= 0x0C
		return
	}

	complete := m.shiftCount == 4
	m.shiftRegister = (m.shiftRegister >> 1) | ((value & 1) << 4)
	m.shiftCount++

	if complete {
		loaded := m.shiftRegister
		m.shiftRegister = 0x10
		m.shiftCount = 0
		m.writeRegister(address, loaded)
	}
}

func (m *Mapper001) writeRegister(address uint16, value uint8) {
	switch {
	case address < 0xA000:
		m.control = value & 0x1F
		m.cart.SetMirrorMode(m.mirroring())
	case address < 0xC000:
		m.chrBank0 = value & 0x1F
	case address < 0xE000:
		m.chrBank1 = value & 0x1F
	default:
		m.prgBank = value & 0x0F
		m.prgRAMEnabled = value&0x10 == 0
	}
}

// ReadCHR reads from CHR-ROM/RAM through the current 4KB/8KB bank mode.
func (m *Mapper001) ReadCHR(address uint16) uint8 {
	index := m.chrIndex(address)
	if int(index) < len(m.cart.chrROM) {
		return m.cart.chrROM[index]
	}
	return 0
}

// WriteCHR writes to CHR-RAM only; CHR-ROM is read-only.
func (m *Mapper001) WriteCHR(address uint16, value uint8) {
	if !m.cart.hasCHRRAM {
		return
	}
	index := m.chrIndex(address)
	if int(index) < len(m.cart.chrROM) {
		m.cart.chrROM[index] = value
	}
}

func (m *Mapper001) chrIndex(address uint16) uint32 {
	if m.chrMode() == 0 {
		bank := m.chrBank0 & 0xFE
		if address >= 0x1000 {
			bank |= 1
		}
		return uint32(bank)*0x1000 + uint32(address&0x0FFF)
	}
	if address < 0x1000 {
		return uint32(m.chrBank0)*0x1000 + uint32(address)
	}
	return uint32(m.chrBank1)*0x1000 + uint32(address-0x1000)
}
