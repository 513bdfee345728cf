package graphics

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
)

// HeadlessBackend implements the Backend interface for driving the
// emulator without a display: used by -headless CLI runs to capture a
// PPM frame snapshot and its CRC32 for regression comparison.
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow implements the Window interface for headless operation.
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount int

	outputDir      string
	snapshotFrames map[int]bool
	lastCRC32      uint32
}

// NewHeadlessBackend creates a new headless graphics backend.
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend.
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates a headless "window" (no actual window).
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	return &HeadlessWindow{
		title:          title,
		width:          width,
		height:         height,
		running:        true,
		outputDir:      ".",
		snapshotFrames: make(map[int]bool),
	}, nil
}

// Cleanup releases all headless resources.
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless always reports true.
func (b *HeadlessBackend) IsHeadless() bool { return true }

// GetName returns the backend name.
func (b *HeadlessBackend) GetName() string { return "Headless" }

// SetTitle sets the window title (for logging purposes).
func (w *HeadlessWindow) SetTitle(title string) { w.title = title }

// GetSize returns window dimensions.
func (w *HeadlessWindow) GetSize() (width, height int) { return w.width, w.height }

// ShouldClose returns true if the window should close.
func (w *HeadlessWindow) ShouldClose() bool { return !w.running }

// SwapBuffers does nothing in headless mode.
func (w *HeadlessWindow) SwapBuffers() {}

// PollEvents returns no events: there's no input device in headless mode.
func (w *HeadlessWindow) PollEvents() []InputEvent { return nil }

// SetOutputDir sets the directory PPM snapshots are written into.
func (w *HeadlessWindow) SetOutputDir(dir string) { w.outputDir = dir }

// SnapshotFrame requests that the given 1-indexed frame number be written
// to disk as a PPM image when it's rendered.
func (w *HeadlessWindow) SnapshotFrame(frameNumber int) {
	w.snapshotFrames[frameNumber] = true
}

// LastFrameCRC32 returns the RGB CRC32 of the most recently rendered
// frame, the value a title-screen regression check compares
// against a captured reference.
func (w *HeadlessWindow) LastFrameCRC32() uint32 { return w.lastCRC32 }

// FrameCount returns the number of frames rendered so far.
func (w *HeadlessWindow) FrameCount() int { return w.frameCount }

// RenderFrame computes the frame's CRC32 and, if this frame number was
// requested via SnapshotFrame, writes it to outputDir as a PPM image.
func (w *HeadlessWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	w.frameCount++
	w.lastCRC32 = crc32FrameBuffer(frameBuffer)

	if w.snapshotFrames[w.frameCount] {
		path := filepath.Join(w.outputDir, fmt.Sprintf("frame_%03d.ppm", w.frameCount))
		return savePPM(frameBuffer, path)
	}
	return nil
}

// Cleanup releases window resources.
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// crc32FrameBuffer hashes a frame's RGB bytes in row-major order, the
// same byte order savePPM writes, so a captured reference CRC32 and a
// captured reference PPM always agree.
func crc32FrameBuffer(frameBuffer [256 * 240]uint32) uint32 {
	buf := make([]byte, 0, len(frameBuffer)*3)
	for _, pixel := range frameBuffer {
		buf = append(buf, byte(pixel>>16), byte(pixel>>8), byte(pixel))
	}
	return crc32.ChecksumIEEE(buf)
}

// savePPM writes frameBuffer as a binary (P6) PPM image.
func savePPM(frameBuffer [256 * 240]uint32, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("graphics: create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "P6\n256 240\n255\n"); err != nil {
		return err
	}
	row := make([]byte, 256*3)
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			pixel := frameBuffer[y*256+x]
			row[x*3] = byte(pixel >> 16)
			row[x*3+1] = byte(pixel >> 8)
			row[x*3+2] = byte(pixel)
		}
		if _, err := file.Write(row); err != nil {
			return err
		}
	}
	return nil
}
