package cartridge

import "testing"

func newCart(prgBanks int, chrRAM bool) *Cartridge {
	cart := &Cartridge{
		prgROM:    make([]uint8, prgBanks*0x4000),
		chrROM:    make([]uint8, 0x2000),
		hasCHRRAM: chrRAM,
	}
	return cart
}

func TestNROMMirrors16KBTo32KBSpace(t *testing.T) {
	cart := newCart(1, false)
	cart.prgROM[0x0000] = 0x11
	cart.prgROM[0x3FFF] = 0x22
	cart.mapper = NewMapper000(cart)

	if got := cart.ReadPRG(0x8000); got != 0x11 {
		t.Fatalf("$8000 = %#02x, want 0x11", got)
	}
	if got := cart.ReadPRG(0xC000); got != 0x11 {
		t.Fatalf("$C000 should mirror $8000 for a 16KB ROM, got %#02x", got)
	}
	if got := cart.ReadPRG(0xFFFF); got != 0x22 {
		t.Fatalf("$FFFF = %#02x, want 0x22", got)
	}
}

func TestNROMPRGRAMWindow(t *testing.T) {
	cart := newCart(2, false)
	cart.mapper = NewMapper000(cart)
	cart.WritePRG(0x6000, 0x99)
	if got := cart.ReadPRG(0x6000); got != 0x99 {
		t.Fatalf("PRG RAM round trip = %#02x, want 0x99", got)
	}
}

func TestNROMCHRRAMWritable(t *testing.T) {
	cart := newCart(1, true)
	cart.mapper = NewMapper000(cart)
	cart.WriteCHR(0x0010, 0x55)
	if got := cart.ReadCHR(0x0010); got != 0x55 {
		t.Fatalf("CHR RAM round trip = %#02x, want 0x55", got)
	}
}

func TestNROMCHRROMReadOnly(t *testing.T) {
	cart := newCart(1, false)
	cart.chrROM[0x0010] = 0x40
	cart.mapper = NewMapper000(cart)
	cart.WriteCHR(0x0010, 0x55)
	if got := cart.ReadCHR(0x0010); got != 0x40 {
		t.Fatalf("CHR ROM write should be ignored, got %#02x want 0x40", got)
	}
}
