package graphics

import (
	"os"
	"path/filepath"
	"testing"
)

func solidFrame(rgb uint32) [256 * 240]uint32 {
	var buf [256 * 240]uint32
	for i := range buf {
		buf[i] = rgb
	}
	return buf
}

func TestHeadlessCRC32IsDeterministic(t *testing.T) {
	backend := NewHeadlessBackend()
	if err := backend.Initialize(Config{Headless: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	win, err := backend.CreateWindow("test", 256, 240)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	headless := win.(*HeadlessWindow)

	frame := solidFrame(0x112233)
	if err := headless.RenderFrame(frame); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	first := headless.LastFrameCRC32()

	if err := headless.RenderFrame(frame); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if headless.LastFrameCRC32() != first {
		t.Fatalf("CRC32 differed across two renders of the same pixels")
	}
}

func TestHeadlessCRC32DivergesOnDifferentFrames(t *testing.T) {
	backend := NewHeadlessBackend()
	backend.Initialize(Config{Headless: true})
	win, _ := backend.CreateWindow("test", 256, 240)
	headless := win.(*HeadlessWindow)

	headless.RenderFrame(solidFrame(0x000000))
	black := headless.LastFrameCRC32()
	headless.RenderFrame(solidFrame(0xFFFFFF))
	white := headless.LastFrameCRC32()

	if black == white {
		t.Fatalf("distinct frames produced the same CRC32")
	}
}

func TestHeadlessSnapshotWritesOnlyRequestedFrames(t *testing.T) {
	dir := t.TempDir()
	backend := NewHeadlessBackend()
	backend.Initialize(Config{Headless: true})
	win, _ := backend.CreateWindow("test", 256, 240)
	headless := win.(*HeadlessWindow)
	headless.SetOutputDir(dir)
	headless.SnapshotFrame(2)

	frame := solidFrame(0x00FF00)
	headless.RenderFrame(frame) // frame 1, not requested
	headless.RenderFrame(frame) // frame 2, requested

	if _, err := os.Stat(filepath.Join(dir, "frame_001.ppm")); !os.IsNotExist(err) {
		t.Fatalf("frame 1 should not have been snapshotted")
	}
	if _, err := os.Stat(filepath.Join(dir, "frame_002.ppm")); err != nil {
		t.Fatalf("frame 2 should have been snapshotted: %v", err)
	}
}

func TestCreateBackendSelectsByType(t *testing.T) {
	b, err := CreateBackend(BackendHeadless)
	if err != nil {
		t.Fatalf("CreateBackend(headless): %v", err)
	}
	if !b.IsHeadless() {
		t.Fatalf("BackendHeadless should report IsHeadless() == true")
	}

	b, err = CreateBackend(BackendTerminal)
	if err != nil {
		t.Fatalf("CreateBackend(terminal): %v", err)
	}
	if b.GetName() != "Terminal" {
		t.Fatalf("GetName() = %q, want Terminal", b.GetName())
	}
}
