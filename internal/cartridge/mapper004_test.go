package cartridge

import "testing"

func TestMMC3FixedLastBank(t *testing.T) {
	cart := newCart(8, false) // 8 x 16KB = 16 x 8KB PRG banks
	for i := range cart.prgROM {
		cart.prgROM[i] = uint8(i / 0x2000)
	}
	cart.mapper = NewMapper004(cart)

	wantBank := uint8(len(cart.prgROM)/0x2000 - 1)
	if got := cart.ReadPRG(0xE000); got != wantBank {
		t.Fatalf("$E000 bank = %d, want fixed last bank %d", got, wantBank)
	}
}

func TestMMC3IRQFiresWhenCounterExpires(t *testing.T) {
	cart := newCart(4, false)
	cart.mapper = NewMapper004(cart)
	m := cart.mapper.(*Mapper004)

	cart.WritePRG(0xC000, 4) // IRQ latch = 4
	cart.WritePRG(0xC001, 0) // request reload
	cart.WritePRG(0xE001, 0) // enable IRQ

	for i := 0; i < 5; i++ {
		cart.ClockScanline()
	}
	if !cart.IRQPending() {
		t.Fatalf("IRQ should be pending once the counter reaches zero")
	}
	_ = m
}

func TestMMC3IRQDisableClearsPending(t *testing.T) {
	cart := newCart(4, false)
	cart.mapper = NewMapper004(cart)

	cart.WritePRG(0xC000, 0)
	cart.WritePRG(0xC001, 0)
	cart.WritePRG(0xE001, 0)
	cart.ClockScanline()
	if !cart.IRQPending() {
		t.Fatalf("expected IRQ pending before disable")
	}
	cart.WritePRG(0xE000, 0) // disable
	if cart.IRQPending() {
		t.Fatalf("IRQ disable should clear pending flag")
	}
}

func TestMMC3MirroringRegister(t *testing.T) {
	cart := newCart(4, false)
	cart.mapper = NewMapper004(cart)

	cart.WritePRG(0xA000, 1) // bit0=1 -> horizontal
	if cart.GetMirrorMode() != MirrorHorizontal {
		t.Fatalf("mirror mode = %v, want MirrorHorizontal", cart.GetMirrorMode())
	}
	cart.WritePRG(0xA000, 0) // bit0=0 -> vertical
	if cart.GetMirrorMode() != MirrorVertical {
		t.Fatalf("mirror mode = %v, want MirrorVertical", cart.GetMirrorMode())
	}
}
