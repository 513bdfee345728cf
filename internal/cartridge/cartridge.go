// Package cartridge implements iNES ROM loading and the mapper chips
// (NROM, MMC1, UxROM, CNROM, MMC3) that sit on both CPU and PPU buses.
package cartridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidROM is returned when the file isn't a well-formed iNES image.
var ErrInvalidROM = errors.New("cartridge: invalid iNES ROM")

// UnsupportedMapperError is returned when the header names a mapper ID
// this module doesn't implement.
type UnsupportedMapperError struct {
	MapperID uint8
}

func (e UnsupportedMapperError) Error() string {
	return fmt.Sprintf("cartridge: unsupported mapper %d", e.MapperID)
}

// Cartridge represents a NES cartridge
type Cartridge struct {
	prgROM []uint8
	chrROM []uint8

	mapperID uint8
	mapper   Mapper

	mirror MirrorMode

	hasBattery bool
	sram       [0x2000]uint8

	hasCHRRAM bool
}

// MirrorMode represents nametable mirroring mode
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreen0
	MirrorSingleScreen1
	MirrorFourScreen
)

// Mapper is what every bank-switching chip implements.
type Mapper interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// ClockableMapper is implemented by mappers with a scanline-driven IRQ
// counter (MMC3). The PPU's per-scanline callback drives ClockScanline;
// the engine polls IRQPending/ClearIRQ to feed CPU.SetIRQ.
type ClockableMapper interface {
	Mapper
	ClockScanline()
	IRQPending() bool
	ClearIRQ()
}

// iNESHeader is the 16-byte iNES 1.0 file header.
type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // in 16KB units
	CHRROMSize uint8 // in 8KB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// LoadFromFile loads a cartridge from an iNES file on disk.
func LoadFromFile(filename string) (*Cartridge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader parses an iNES 1.0 image and builds the cartridge's mapper.
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	var header iNESHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, ErrInvalidROM
	}

	if string(header.Magic[:]) != "NES\x1A" {
		return nil, ErrInvalidROM
	}
	if header.PRGROMSize == 0 {
		return nil, ErrInvalidROM
	}

	cart := &Cartridge{
		mapperID:   (header.Flags6 >> 4) | (header.Flags7 & 0xF0),
		hasBattery: (header.Flags6 & 0x02) != 0,
	}

	if (header.Flags6 & 0x08) != 0 {
		cart.mirror = MirrorFourScreen
	} else if (header.Flags6 & 0x01) != 0 {
		cart.mirror = MirrorVertical
	} else {
		cart.mirror = MirrorHorizontal
	}

	if (header.Flags6 & 0x04) != 0 {
		trainer := make([]uint8, 512)
		if _, err := io.ReadFull(r, trainer); err != nil {
			return nil, ErrInvalidROM
		}
	}

	prgSize := int(header.PRGROMSize) * 16384
	cart.prgROM = make([]uint8, prgSize)
	if _, err := io.ReadFull(r, cart.prgROM); err != nil {
		return nil, ErrInvalidROM
	}

	chrSize := int(header.CHRROMSize) * 8192
	if chrSize > 0 {
		cart.chrROM = make([]uint8, chrSize)
		if _, err := io.ReadFull(r, cart.chrROM); err != nil {
			return nil, ErrInvalidROM
		}
	} else {
		cart.chrROM = make([]uint8, 8192)
		cart.hasCHRRAM = true
	}

	mapper, err := createMapper(cart.mapperID, cart)
	if err != nil {
		return nil, err
	}
	cart.mapper = mapper

	return cart, nil
}

// ReadPRG reads from PRG ROM/RAM via the active mapper.
func (c *Cartridge) ReadPRG(address uint16) uint8 { return c.mapper.ReadPRG(address) }

// WritePRG writes to PRG ROM/RAM via the active mapper.
func (c *Cartridge) WritePRG(address uint16, value uint8) { c.mapper.WritePRG(address, value) }

// ReadCHR reads from CHR ROM/RAM via the active mapper.
func (c *Cartridge) ReadCHR(address uint16) uint8 { return c.mapper.ReadCHR(address) }

// WriteCHR writes to CHR ROM/RAM via the active mapper.
func (c *Cartridge) WriteCHR(address uint16, value uint8) { c.mapper.WriteCHR(address, value) }

// GetMirrorMode returns the cartridge's current nametable mirroring mode.
func (c *Cartridge) GetMirrorMode() MirrorMode { return c.mirror }

// SetMirrorMode lets a mapper (MMC1, MMC3) change mirroring at runtime.
func (c *Cartridge) SetMirrorMode(mode MirrorMode) { c.mirror = mode }

// MirrorMode reports the live mirroring mode as the raw ordinal
// memory.PPUMemory reads on every nametable access, so a mapper's runtime
// SetMirrorMode calls (MMC1 single-screen/H/V switching, MMC3's $A000
// register) are visible immediately instead of being frozen at load time.
func (c *Cartridge) MirrorMode() uint8 { return uint8(c.mirror) }

// MapperID returns the iNES mapper number this cartridge was loaded with.
func (c *Cartridge) MapperID() uint8 { return c.mapperID }

// ClockScanline drives the active mapper's IRQ counter, if it has one
// (MMC3's scanline-approximated A12 clock).
func (c *Cartridge) ClockScanline() {
	if clockable, ok := c.mapper.(ClockableMapper); ok {
		clockable.ClockScanline()
	}
}

// IRQPending reports whether the active mapper is asserting IRQ.
func (c *Cartridge) IRQPending() bool {
	clockable, ok := c.mapper.(ClockableMapper)
	return ok && clockable.IRQPending()
}

// ClearIRQ clears the active mapper's IRQ flag, if it has one.
func (c *Cartridge) ClearIRQ() {
	if clockable, ok := c.mapper.(ClockableMapper); ok {
		clockable.ClearIRQ()
	}
}

func createMapper(id uint8, cart *Cartridge) (Mapper, error) {
	switch id {
	case 0:
		return NewMapper000(cart), nil
	case 1:
		return NewMapper001(cart), nil
	case 2:
		return NewMapper002(cart), nil
	case 3:
		return NewMapper003(cart), nil
	case 4:
		return NewMapper004(cart), nil
	default:
		return nil, UnsupportedMapperError{MapperID: id}
	}
}
