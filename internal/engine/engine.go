// Package engine wires the CPU, PPU, APU, cartridge and controller ports
// onto one synchronous bus and exposes the single entry point a front-end
// drives: load a ROM, reset, and run one frame at a time.
package engine

import (
	"bytes"
	"fmt"

	"github.com/xorllc/emnes/internal/apu"
	"github.com/xorllc/emnes/internal/cartridge"
	"github.com/xorllc/emnes/internal/controller"
	"github.com/xorllc/emnes/internal/cpu"
	"github.com/xorllc/emnes/internal/memory"
	"github.com/xorllc/emnes/internal/ppu"
)

// ErrInvalidROM and UnsupportedMapperError are re-exported from the
// cartridge package under the names the load contract documents.
var ErrInvalidROM = cartridge.ErrInvalidROM

// UnsupportedMapperError is returned by Load when the ROM's header names a
// mapper this module doesn't implement.
type UnsupportedMapperError = cartridge.UnsupportedMapperError

// FatalError reports an engine invariant violation — an undefined opcode
// fetch — surfaced by the CPU core. The engine is a deterministic state
// machine, so this aborts rather than attempting to continue.
type FatalError struct {
	Opcode uint8
	PC     uint16
}

func (e FatalError) Error() string {
	return fmt.Sprintf("engine: fatal CPU error: illegal opcode %#02x at PC=$%04X", e.Opcode, e.PC)
}

// Engine is a single-threaded NES core: one
// synchronous state machine, no background workers, stepped at
// instruction granularity by RunFrame.
type Engine struct {
	cpu   *cpu.CPU
	ppu   *ppu.PPU
	apu   *apu.APU
	mem   *memory.Memory
	cart  *cartridge.Cartridge
	ports *controller.Ports

	stallCycles uint64 // pending CPU stall from OAM DMA or a DMC sample fetch

	cpuCycles uint64
	frames    uint64

	frameDone bool
	fatalErr  error
}

// New creates an engine with no cartridge loaded. Call Load before
// stepping it.
func New() *Engine {
	e := &Engine{
		ppu:   ppu.New(),
		apu:   apu.New(),
		ports: controller.NewPorts(),
	}
	e.mem = memory.New(e.ppu, e.apu, nil)
	e.mem.SetInputSystem(e.ports)
	e.mem.SetDMACallback(e.triggerOAMDMA)
	e.cpu = cpu.New(e.mem)
	e.apu.SetMemory(e.mem)
	e.apu.SetStallCallback(e.stallCPU)
	e.ppu.SetNMICallback(e.raiseNMI)
	e.ppu.SetFrameCompleteCallback(e.completeFrame)
	e.ppu.SetScanlineCallback(e.clockMapperScanline)
	return e
}

// Load parses rom as an iNES 1.0 image, builds its mapper, and resets the
// machine onto it. It returns ErrInvalidROM or an UnsupportedMapperError
// on a malformed or unrecognized image; the previously loaded cartridge
// (if any) is left in place on failure.
func (e *Engine) Load(rom []byte) error {
	cart, err := cartridge.LoadFromReader(bytes.NewReader(rom))
	if err != nil {
		return err
	}

	e.cart = cart
	e.mem = memory.New(e.ppu, e.apu, cart)
	e.mem.SetInputSystem(e.ports)
	e.mem.SetDMACallback(e.triggerOAMDMA)
	e.cpu = cpu.New(e.mem)
	e.apu.SetMemory(e.mem)

	e.ppu.SetMemory(memory.NewPPUMemory(cart))

	e.Reset()
	return nil
}

// Reset asserts the CPU reset sequence and clears PPU/APU/controller state,
// matching a console power cycle with the cartridge already seated.
func (e *Engine) Reset() {
	e.cpu.Reset()
	e.ppu.Reset()
	e.apu.Reset()
	e.ports.Reset()

	e.stallCycles = 0
	e.cpuCycles = 0
	e.frames = 0
	e.frameDone = false
	e.fatalErr = nil
}

// raiseNMI is the PPU's single-shot vblank-NMI callback. SetNMI is
// edge-latched on the line's falling edge, so one call
// here both raises and immediately lowers it to deliver exactly one NMI.
func (e *Engine) raiseNMI() {
	e.cpu.SetNMI(true)
	e.cpu.SetNMI(false)
}

// completeFrame is the PPU's once-per-frame callback, fired at scanline
// 241 dot 1 when the vblank flag is set.
func (e *Engine) completeFrame() {
	e.frames++
	e.frameDone = true
}

// clockMapperScanline forwards the PPU's per-scanline A12 approximation
// to a scanline-counting mapper (MMC3); mappers without a counter ignore it.
func (e *Engine) clockMapperScanline(scanline int) {
	if e.cart != nil {
		e.cart.ClockScanline()
	}
}

// stallCPU is the APU's DMC-fetch callback: every sample byte the DMC
// channel reads off the bus costs the CPU additional stall cycles,
// accounted for on the next Step call (a documented
// same-step-boundary approximation).
func (e *Engine) stallCPU(cycles uint8) {
	e.stallCycles += uint64(cycles)
}

// triggerOAMDMA performs the $4014 OAM DMA transfer and arms the 513 or
// 514 cycle CPU stall real hardware pays for it (514 when the transfer
// starts on an odd CPU cycle, for the extra alignment wait).
func (e *Engine) triggerOAMDMA(sourcePage uint8) {
	dmaCycles := uint64(513)
	if e.cpuCycles%2 == 1 {
		dmaCycles = 514
	}
	e.stallCycles += dmaCycles

	base := uint16(sourcePage) << 8
	for i := 0; i < 256; i++ {
		e.ppu.WriteOAM(uint8(i), e.mem.Read(base+uint16(i)))
	}
}

// step runs one iteration of the scheduling loop: service a
// stall cycle or one CPU instruction, then tick the APU and PPU in lockstep
// with the CPU cycles it consumed.
func (e *Engine) step() {
	var cycles uint8
	if e.stallCycles > 0 {
		e.stallCycles--
		cycles = 1
	} else {
		cycles = e.stepCPU()
		if e.fatalErr != nil {
			return
		}
	}

	for i := uint8(0); i < cycles; i++ {
		e.apu.Step()
	}

	mapperIRQ := e.cart != nil && e.cart.IRQPending()
	e.cpu.SetIRQ(e.apu.IRQ() || mapperIRQ)
	if mapperIRQ {
		e.cart.ClearIRQ()
	}

	for i := uint8(0); i < cycles*3; i++ {
		e.ppu.Step()
	}

	e.cpuCycles += uint64(cycles)
}

// stepCPU recovers the CPU core's illegal-opcode panic into FatalError,
// per the engine's fatal-on-invariant-breach policy.
func (e *Engine) stepCPU() (cycles uint8) {
	defer func() {
		if r := recover(); r != nil {
			if ill, ok := r.(interface {
				Opcode() uint8
				PC() uint16
			}); ok {
				e.fatalErr = FatalError{Opcode: ill.Opcode(), PC: ill.PC()}
				return
			}
			panic(r)
		}
	}()
	return e.cpu.Step()
}

// RunFrame steps the engine until the PPU completes one full frame
// (vblank-to-vblank) and returns the 256x240 RGB pixel buffer. It returns
// a FatalError if the CPU hit an undefined opcode partway through; the
// frame buffer reflects whatever was rendered before the fault.
func (e *Engine) RunFrame() (*[256 * 240]uint32, error) {
	e.frameDone = false
	for !e.frameDone {
		e.step()
		if e.fatalErr != nil {
			return e.ppu.FrameBuffer(), e.fatalErr
		}
	}
	return e.ppu.FrameBuffer(), nil
}

// AudioSamples drains the APU's accumulated samples as signed 16-bit PCM.
// A new rateHz applies to samples generated from then on; samples already
// buffered are returned as they are, not resampled.
func (e *Engine) AudioSamples(rateHz int) []int16 {
	return e.apu.AudioSamples(rateHz)
}

// SetButtons sets all eight buttons of a controller port (1 or 2) at once,
// in A,B,Select,Start,Up,Down,Left,Right order packed into mask's low
// eight bits.
func (e *Engine) SetButtons(port int, mask uint8) {
	var buttons [8]bool
	for i := range buttons {
		buttons[i] = mask&(1<<uint(i)) != 0
	}
	switch port {
	case 1:
		e.ports.Port1().SetButtons(buttons)
	case 2:
		if c, ok := e.ports.Port2().(*controller.Controller); ok {
			c.SetButtons(buttons)
		}
	}
}

// SetZapper plugs a Zapper into port 2 (idempotent) and updates its
// aimed position and trigger state. The light sensor reports detection
// when the aimed pixel, within the loaded frame buffer, is bright and
// rendering is in progress near that scanline — approximated here by
// sampling the pixel's luminance from the last completed frame.
func (e *Engine) SetZapper(x, y int, trigger bool) {
	z, ok := e.ports.Port2().(*controller.Zapper)
	if !ok {
		z = controller.NewZapper()
		e.ports.SetPort2Device(z)
	}
	z.SetTrigger(trigger)
	z.SetLightSensed(e.pixelIsBright(x, y))
}

// pixelIsBright reports whether the given screen coordinate in the last
// completed frame is bright enough for the Zapper's photodiode to trip,
// the same white/light-gray detection threshold real light guns use.
func (e *Engine) pixelIsBright(x, y int) bool {
	if x < 0 || x >= 256 || y < 0 || y >= 240 {
		return false
	}
	pixel := e.ppu.FrameBuffer()[y*256+x]
	r := (pixel >> 16) & 0xFF
	g := (pixel >> 8) & 0xFF
	b := pixel & 0xFF
	luminance := (r*299 + g*587 + b*114) / 1000
	return luminance > 200
}

// StepInstruction runs exactly one iteration of the scheduling loop (one
// CPU instruction, or one stall cycle if a DMA/DMC fetch is in progress)
// and returns the CPU's architectural state as observed immediately
// before it ran — the per-instruction trace a nestest log
// comparison needs.
func (e *Engine) StepInstruction() (cpu.State, error) {
	state := e.cpu.State()
	e.step()
	return state, e.fatalErr
}

// CPUCycles returns the total CPU cycles executed since the last Reset.
func (e *Engine) CPUCycles() uint64 { return e.cpuCycles }

// Frames returns the number of frames completed since the last Reset.
func (e *Engine) Frames() uint64 { return e.frames }

// CPU exposes the CPU core for reference-log comparisons (nestest) and
// diagnostic front-ends; front-ends should otherwise drive the engine
// only through Load/Reset/RunFrame/AudioSamples/SetButtons/SetZapper.
func (e *Engine) CPU() *cpu.CPU { return e.cpu }

// PPU exposes the PPU core for timing assertions (vblank flag, sprite-0
// hit) used by timing-sensitive test assertions.
func (e *Engine) PPU() *ppu.PPU { return e.ppu }

// Cartridge returns the currently loaded cartridge, or nil if none.
func (e *Engine) Cartridge() *cartridge.Cartridge { return e.cart }
