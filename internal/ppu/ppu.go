// Package ppu implements the NES Picture Processing Unit (2C02): a
// per-dot pixel pipeline driving a 256x240 frame buffer from pattern,
// nametable, and OAM memory.
package ppu

import "github.com/xorllc/emnes/internal/memory"

// PPU is a 2C02 core. It is stepped one dot (1/3 CPU cycle) at a time by
// the owning engine.
type PPU struct {
	ppuCtrl   uint8
	ppuMask   uint8
	ppuStatus uint8
	oamAddr   uint8

	v uint16 // current VRAM address (15 bits used)
	t uint16 // temporary VRAM address / address latch
	x uint8  // fine X scroll (3 bits)
	w bool   // write toggle

	memory *memory.PPUMemory

	scanline int // -1..260
	dot      int // 0..340
	oddFrame bool
	frames   uint64

	readBuffer uint8

	oam          [256]uint8
	secondaryOAM [8 * 4]uint8
	spriteCount  uint8

	spritePatternLo [8]uint8
	spritePatternHi [8]uint8
	spriteX         [8]uint8
	spriteAttr      [8]uint8
	spriteIsZero    [8]bool
	sprite0OnLine   bool

	bgNextTileID   uint8
	bgNextAttrib   uint8
	bgNextLSB      uint8
	bgNextMSB      uint8
	bgShiftPatLo   uint16
	bgShiftPatHi   uint16
	bgShiftAttrLo  uint16
	bgShiftAttrHi  uint16

	frameBuffer [256 * 240]uint32

	nmiCallback           func()
	frameCompleteCallback func()
	scanlineCallback      func(scanline int) // fires once per visible scanline at the A12-clock dot, for MMC3
}

// New creates a PPU with no memory attached; call SetMemory before Step.
func New() *PPU {
	p := &PPU{scanline: -1}
	return p
}

// SetMemory attaches the PPU-side bus (pattern tables via the mapper,
// nametable RAM, and palette RAM).
func (p *PPU) SetMemory(mem *memory.PPUMemory) { p.memory = mem }

// SetNMICallback registers the function invoked when the PPU raises NMI.
func (p *PPU) SetNMICallback(cb func()) { p.nmiCallback = cb }

// SetFrameCompleteCallback registers the function invoked once per frame,
// at scanline 241 dot 1 when the vblank flag is set.
func (p *PPU) SetFrameCompleteCallback(cb func()) { p.frameCompleteCallback = cb }

// SetScanlineCallback registers the function invoked at dot 260 of
// each visible scanline when rendering is enabled — the approximation of
// the PPU A12 rising edge that MMC3 clocks its IRQ counter from.
func (p *PPU) SetScanlineCallback(cb func(scanline int)) { p.scanlineCallback = cb }

// Reset clears the write toggle and the control/mask registers; v is left
// unchanged, matching real hardware.
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.w = false
	p.t = 0
	p.x = 0
	p.scanline = -1
	p.dot = 0
	p.oddFrame = false
	p.readBuffer = 0
}

// FrameBuffer returns the last-rendered 256x240 RGB frame.
func (p *PPU) FrameBuffer() *[256 * 240]uint32 { return &p.frameBuffer }

func (p *PPU) renderingEnabled() bool { return p.ppuMask&0x18 != 0 }
func (p *PPU) backgroundEnabled() bool { return p.ppuMask&0x08 != 0 }
func (p *PPU) spritesEnabled() bool    { return p.ppuMask&0x10 != 0 }

// ReadRegister handles a CPU read of $2000-$2007 (mirrored every 8 bytes
// by the caller).
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address & 7 {
	case 2: // PPUSTATUS
		value := p.ppuStatus
		p.ppuStatus &^= 0x80 // clear vblank
		p.w = false
		return value
	case 4: // OAMDATA
		return p.oam[p.oamAddr]
	case 7: // PPUDATA
		return p.readPPUData()
	default:
		return p.openBus()
	}
}

// WriteRegister handles a CPU write of $2000-$2007.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address & 7 {
	case 0: // PPUCTRL
		p.ppuCtrl = value
		p.t = (p.t &^ 0x0C00) | (uint16(value&0x03) << 10)
		p.checkNMI()
	case 1: // PPUMASK
		p.ppuMask = value
	case 3: // OAMADDR
		p.oamAddr = value
	case 4: // OAMDATA
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 5: // PPUSCROLL
		if !p.w {
			p.t = (p.t &^ 0x001F) | uint16(value>>3)
			p.x = value & 0x07
		} else {
			p.t = (p.t &^ 0x73E0) | (uint16(value&0x07) << 12) | (uint16(value&0xF8) << 2)
		}
		p.w = !p.w
	case 6: // PPUADDR
		if !p.w {
			p.t = (p.t &^ 0x7F00) | (uint16(value&0x3F) << 8)
		} else {
			p.t = (p.t &^ 0x00FF) | uint16(value)
			p.v = p.t
		}
		p.w = !p.w
	case 7: // PPUDATA
		p.writePPUData(value)
	}
}

func (p *PPU) openBus() uint8 { return p.ppuStatus & 0x1F }

// WriteOAM is used by OAM DMA ($4014) to load a byte directly, bypassing
// the OAMDATA auto-increment semantics that a CPU-side register write has.
func (p *PPU) WriteOAM(address uint8, value uint8) { p.oam[address] = value }

func (p *PPU) readPPUData() uint8 {
	address := p.v & 0x3FFF
	var value uint8
	if address >= 0x3F00 {
		value = p.memory.Read(address)
		p.readBuffer = p.memory.Read(address - 0x1000)
	} else {
		value = p.readBuffer
		p.readBuffer = p.memory.Read(address)
	}
	p.incrementVRAMAddress()
	return value
}

func (p *PPU) writePPUData(value uint8) {
	p.memory.Write(p.v&0x3FFF, value)
	p.incrementVRAMAddress()
}

func (p *PPU) incrementVRAMAddress() {
	if p.ppuCtrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v++
	}
}

func (p *PPU) checkNMI() {
	if p.ppuStatus&0x80 != 0 && p.ppuCtrl&0x80 != 0 {
		if p.nmiCallback != nil {
			p.nmiCallback()
		}
	}
}

// Step advances the PPU by one dot.
func (p *PPU) Step() {
	if p.scanline >= -1 && p.scanline < 240 {
		p.renderScanline()
	} else if p.scanline == 241 && p.dot == 1 {
		p.ppuStatus |= 0x80
		p.checkNMI()
		if p.frameCompleteCallback != nil {
			p.frameCompleteCallback()
		}
	}

	p.dot++
	if p.scanline == -1 && p.dot == 340 && p.renderingEnabled() && p.oddFrame {
		// Odd-frame skip: the pre-render line is one dot short.
		p.dot = 0
		p.scanline = 0
		p.frames++
		p.oddFrame = !p.oddFrame
		return
	}
	if p.dot > 340 {
		p.dot = 0
		p.scanline++
		if p.scanline > 260 {
			p.scanline = -1
			p.frames++
			p.oddFrame = !p.oddFrame
		}
	}
}

func (p *PPU) renderScanline() {
	if p.scanline == -1 && p.dot == 1 {
		p.ppuStatus &^= 0x80 | 0x40 | 0x20 // vblank, sprite-0-hit, sprite-overflow
	}

	renderingVisibleWindow := (p.dot >= 1 && p.dot <= 256) || (p.dot >= 321 && p.dot <= 336)
	if renderingVisibleWindow && p.renderingEnabled() {
		p.updateShifters()
		switch (p.dot - 1) % 8 {
		case 0:
			p.loadBackgroundShifters()
			p.bgNextTileID = p.memory.Read(0x2000 | (p.v & 0x0FFF))
		case 2:
			address := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
			attrib := p.memory.Read(address)
			if (p.v>>4)&1 != 0 {
				attrib >>= 4
			}
			if (p.v>>1)&1 != 0 {
				attrib >>= 2
			}
			p.bgNextAttrib = attrib & 0x03
		case 4:
			p.bgNextLSB = p.fetchPatternByte(p.bgNextTileID, 0)
		case 6:
			p.bgNextMSB = p.fetchPatternByte(p.bgNextTileID, 8)
		case 7:
			p.incrementCoarseX()
		}
	}

	if p.dot == 256 && p.renderingEnabled() {
		p.incrementFineY()
	}
	if p.dot == 257 {
		p.updateShifters()
		p.loadBackgroundShifters()
		if p.renderingEnabled() {
			p.transferX()
		}
		p.evaluateSprites()
	}
	if p.scanline == -1 && p.dot >= 280 && p.dot <= 304 && p.renderingEnabled() {
		p.transferY()
	}
	if p.dot >= 257 && p.dot <= 320 {
		p.oamAddr = 0
	}
	if p.dot == 260 && p.scanline >= 0 && p.scanline <= 239 && p.renderingEnabled() && p.scanlineCallback != nil {
		p.scanlineCallback(p.scanline)
	}

	if p.dot >= 1 && p.dot <= 256 && p.scanline >= 0 && p.scanline < 240 {
		p.renderPixel()
	}
}

func (p *PPU) fetchPatternByte(tile uint8, plane uint16) uint8 {
	base := uint16(0)
	if p.ppuCtrl&0x10 != 0 {
		base = 0x1000
	}
	fineY := (p.v >> 12) & 0x07
	address := base + uint16(tile)*16 + plane + fineY
	return p.memory.Read(address)
}

func (p *PPU) loadBackgroundShifters() {
	p.bgShiftPatLo = (p.bgShiftPatLo &^ 0x00FF) | uint16(p.bgNextLSB)
	p.bgShiftPatHi = (p.bgShiftPatHi &^ 0x00FF) | uint16(p.bgNextMSB)
	lo := uint16(0)
	hi := uint16(0)
	if p.bgNextAttrib&0x01 != 0 {
		lo = 0x00FF
	}
	if p.bgNextAttrib&0x02 != 0 {
		hi = 0x00FF
	}
	p.bgShiftAttrLo = (p.bgShiftAttrLo &^ 0x00FF) | lo
	p.bgShiftAttrHi = (p.bgShiftAttrHi &^ 0x00FF) | hi
}

func (p *PPU) updateShifters() {
	if p.backgroundEnabled() {
		p.bgShiftPatLo <<= 1
		p.bgShiftPatHi <<= 1
		p.bgShiftAttrLo <<= 1
		p.bgShiftAttrHi <<= 1
	}
}

// incrementCoarseX/incrementFineY/transferX/transferY implement the
// canonical "loopy" v/t scroll register manipulation.
func (p *PPU) incrementCoarseX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementFineY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch {
	case y == 29:
		y = 0
		p.v ^= 0x0800
	case y == 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v &^ 0x03E0) | (y << 5)
}

func (p *PPU) transferX() { p.v = (p.v &^ 0x041F) | (p.t & 0x041F) }
func (p *PPU) transferY() { p.v = (p.v &^ 0x7BE0) | (p.t & 0x7BE0) }

// evaluateSprites fills secondaryOAM with up to 8 sprites visible on the
// scanline that begins next (approximating the dots-65..256 scan as a
// single pass, an allowed approximation of the hardware's
// diagonal-search overflow bug).
func (p *PPU) evaluateSprites() {
	p.secondaryOAM = [32]uint8{}
	p.spriteCount = 0
	p.sprite0OnLine = false
	targetLine := p.scanline + 1
	height := 8
	if p.ppuCtrl&0x20 != 0 {
		height = 16
	}

	found := 0
	for i := 0; i < 64; i++ {
		y := int(p.oam[i*4])
		if targetLine < y || targetLine >= y+height {
			continue
		}
		if found < 8 {
			copy(p.secondaryOAM[found*4:found*4+4], p.oam[i*4:i*4+4])
			p.spriteIsZero[found] = i == 0
			if i == 0 {
				p.sprite0OnLine = true
			}
			found++
		} else {
			p.ppuStatus |= 0x20 // sprite overflow
			break
		}
	}
	p.spriteCount = uint8(found)

	height16 := p.ppuCtrl&0x20 != 0
	for i := 0; i < found; i++ {
		y := p.secondaryOAM[i*4]
		tile := p.secondaryOAM[i*4+1]
		attr := p.secondaryOAM[i*4+2]
		x := p.secondaryOAM[i*4+3]

		row := targetLine - int(y)
		flipV := attr&0x80 != 0
		flipH := attr&0x40 != 0
		if flipV {
			row = height - 1 - row
		}

		var base uint16
		var patternIndex uint8
		if height16 {
			base = uint16(tile&1) * 0x1000
			patternIndex = tile &^ 1
			if row >= 8 {
				patternIndex++
				row -= 8
			}
		} else {
			patternIndex = tile
			if p.ppuCtrl&0x08 != 0 {
				base = 0x1000
			}
		}

		lo := p.memory.Read(base + uint16(patternIndex)*16 + uint16(row))
		hi := p.memory.Read(base + uint16(patternIndex)*16 + uint16(row) + 8)
		if flipH {
			lo = reverseBits(lo)
			hi = reverseBits(hi)
		}

		p.spritePatternLo[i] = lo
		p.spritePatternHi[i] = hi
		p.spriteX[i] = x
		p.spriteAttr[i] = attr
	}
}

func reverseBits(b uint8) uint8 {
	var r uint8
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

func (p *PPU) renderPixel() {
	x := p.dot - 1
	y := p.scanline

	var bgPixel, bgPalette uint8
	if p.backgroundEnabled() {
		bit := uint16(0x8000) >> p.x
		p0 := uint8(0)
		p1 := uint8(0)
		if p.bgShiftPatLo&bit != 0 {
			p0 = 1
		}
		if p.bgShiftPatHi&bit != 0 {
			p1 = 1
		}
		bgPixel = (p1 << 1) | p0
		a0 := uint8(0)
		a1 := uint8(0)
		if p.bgShiftAttrLo&bit != 0 {
			a0 = 1
		}
		if p.bgShiftAttrHi&bit != 0 {
			a1 = 1
		}
		bgPalette = (a1 << 1) | a0
	}
	if x < 8 && p.ppuMask&0x02 == 0 {
		bgPixel, bgPalette = 0, 0
	}

	var spritePixel, spritePalette uint8
	spritePriority := false
	spriteIsZero := false
	if p.spritesEnabled() && !(x < 8 && p.ppuMask&0x04 == 0) {
		for i := 0; i < int(p.spriteCount); i++ {
			offset := x - int(p.spriteX[i])
			if offset < 0 || offset > 7 {
				continue
			}
			lo := (p.spritePatternLo[i] >> uint(7-offset)) & 1
			hi := (p.spritePatternHi[i] >> uint(7-offset)) & 1
			pixel := (hi << 1) | lo
			if pixel == 0 {
				continue
			}
			spritePixel = pixel
			spritePalette = (p.spriteAttr[i] & 0x03) + 4
			spritePriority = p.spriteAttr[i]&0x20 == 0
			spriteIsZero = p.spriteIsZero[i]
			break
		}
	}

	var finalPixel, finalPalette uint8
	switch {
	case bgPixel == 0 && spritePixel == 0:
		finalPixel, finalPalette = 0, 0
	case bgPixel == 0:
		finalPixel, finalPalette = spritePixel, spritePalette
	case spritePixel == 0:
		finalPixel, finalPalette = bgPixel, bgPalette
	case spritePriority:
		finalPixel, finalPalette = spritePixel, spritePalette
	default:
		finalPixel, finalPalette = bgPixel, bgPalette
	}

	if bgPixel != 0 && spritePixel != 0 && spriteIsZero && p.sprite0OnLine && x != 255 &&
		p.backgroundEnabled() && p.spritesEnabled() {
		p.ppuStatus |= 0x40 // sprite-0 hit
	}

	colorIndex := p.memory.Read(0x3F00 + uint16(finalPalette)*4 + uint16(finalPixel))
	p.frameBuffer[y*256+x] = NESColorToRGB(colorIndex & 0x3F)
}

// NES 2C02 NTSC color palette, 64 entries of 0xFFRRGGBB; NESColorToRGB
// masks off the top byte.
var nesColorPalette = [64]uint32{
	0xFF666666, 0xFF002A88, 0xFF1412A7, 0xFF3B00A4, 0xFF5C007E, 0xFF6E0040, 0xFF6C0600, 0xFF561D00,
	0xFF333500, 0xFF0B4800, 0xFF005200, 0xFF004F08, 0xFF00404D, 0xFF000000, 0xFF000000, 0xFF000000,
	0xFFADADAD, 0xFF155FD9, 0xFF4240FF, 0xFF7527FE, 0xFFA01ACC, 0xFFB71E7B, 0xFFB53120, 0xFF994E00,
	0xFF6B6D00, 0xFF388700, 0xFF0C9300, 0xFF008F32, 0xFF007C8D, 0xFF000000, 0xFF000000, 0xFF000000,
	0xFFFFFEFF, 0xFF64B0FF, 0xFF9290FF, 0xFFC676FF, 0xFFF36AFF, 0xFFFE6ECC, 0xFFFE8170, 0xFFEA9E22,
	0xFFBCBE00, 0xFF88D800, 0xFF5CE430, 0xFF45E082, 0xFF48CDDE, 0xFF4F4F4F, 0xFF000000, 0xFF000000,
	0xFFFFFEFF, 0xFFC0DFFF, 0xFFD3D2FF, 0xFFE8C8FF, 0xFFFBC2FF, 0xFFFEC4EA, 0xFFFECCC5, 0xFFF7D8A5,
	0xFFE4E594, 0xFFCFF29B, 0xFFBEFBB3, 0xFFB8F8D8, 0xFFB8F8F8, 0xFF000000, 0xFF000000, 0xFF000000,
}

// NESColorToRGB converts a 6-bit NES color index into 0x00RRGGBB.
func NESColorToRGB(colorIndex uint8) uint32 {
	if colorIndex >= 64 {
		return 0
	}
	return nesColorPalette[colorIndex] & 0x00FFFFFF
}

// Scanline and Dot expose the current position for diagnostics and tests.
func (p *PPU) Scanline() int { return p.scanline }
func (p *PPU) Dot() int      { return p.dot }
func (p *PPU) Frames() uint64 { return p.frames }

// VBlank reports whether the vblank flag is currently set.
func (p *PPU) VBlank() bool { return p.ppuStatus&0x80 != 0 }

// Sprite0Hit reports whether the sprite-0-hit flag is currently set.
func (p *PPU) Sprite0Hit() bool { return p.ppuStatus&0x40 != 0 }
