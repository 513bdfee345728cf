package memory

import "testing"

func TestHorizontalMirroring(t *testing.T) {
	pm := NewPPUMemory(&fakeCart{mirror: MirrorHorizontal})
	pm.Write(0x2000, 0x11) // nametable 0
	pm.Write(0x2400, 0x22) // nametable 1, mirrors 0 under horizontal
	if got := pm.Read(0x2000); got != 0x22 {
		t.Fatalf("horizontal mirror: nametable 0 = %#02x, want 0x22 (shared with NT1)", got)
	}
	if got := pm.Read(0x2800); got == 0x22 {
		t.Fatalf("nametable 2 should not mirror nametable 0/1 under horizontal mirroring")
	}
}

func TestVerticalMirroring(t *testing.T) {
	pm := NewPPUMemory(&fakeCart{mirror: MirrorVertical})
	pm.Write(0x2000, 0x11) // nametable 0
	pm.Write(0x2400, 0x33) // nametable 1, mirrors 3 under vertical
	if got := pm.Read(0x2C00); got != 0x33 {
		t.Fatalf("vertical mirror: nametable 3 = %#02x, want 0x33 (shared with NT1)", got)
	}
}

func TestNametableMirrorAbove3000(t *testing.T) {
	pm := NewPPUMemory(&fakeCart{mirror: MirrorVertical})
	pm.Write(0x2000, 0x77)
	if got := pm.Read(0x3000); got != 0x77 {
		t.Fatalf("$3000 should mirror $2000, got %#02x", got)
	}
}

func TestPaletteAliasing(t *testing.T) {
	pm := NewPPUMemory(&fakeCart{mirror: MirrorHorizontal})
	pm.Write(0x3F00, 0x0A)
	if got := pm.Read(0x3F10); got != 0x0A {
		t.Fatalf("$3F10 should alias $3F00, got %#02x", got)
	}
	pm.Write(0x3F14, 0x0B)
	if got := pm.Read(0x3F04); got != 0x0B {
		t.Fatalf("$3F14 should alias $3F04, got %#02x", got)
	}
}

func TestPatternTableRoutesToCartridge(t *testing.T) {
	cart := &fakeCart{}
	cart.chr[0x0010] = 0x99
	pm := NewPPUMemory(cart)
	if got := pm.Read(0x0010); got != 0x99 {
		t.Fatalf("CHR read = %#02x, want 0x99", got)
	}
}

func TestMirrorModeIsReadLiveFromCartridge(t *testing.T) {
	cart := &fakeCart{mirror: MirrorHorizontal}
	pm := NewPPUMemory(cart)
	pm.Write(0x2000, 0x11)
	pm.Write(0x2400, 0x22)
	if got := pm.Read(0x2000); got != 0x22 {
		t.Fatalf("horizontal mirror before runtime switch: nametable 0 = %#02x, want 0x22", got)
	}

	// A mapper (MMC1/MMC3) switching mirroring at runtime, e.g. via
	// Cartridge.SetMirrorMode, must take effect on the next access without
	// recreating PPUMemory.
	cart.mirror = MirrorSingleScreen1
	pm.Write(0x2000, 0xAA)
	if got := pm.Read(0x2C00); got != 0xAA {
		t.Fatalf("single-screen-1 mirror after runtime switch: nametable 3 = %#02x, want 0xAA", got)
	}
}
