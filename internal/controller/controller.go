// Package controller implements the NES's two controller ports: a
// standard joypad shift register on port 1, and either a second joypad
// or a Zapper light gun on port 2.
package controller

// Button represents NES controller buttons
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// Device is a port-2-capable input device: a joypad or a Zapper.
type Device interface {
	Write(value uint8)
	Read() uint8
	Reset()
}

// Controller is a standard NES joypad: an 8-bit shift register latched
// from the live button state on the strobe's falling edge.
type Controller struct {
	buttons       uint8
	shiftRegister uint8
	strobe        bool
}

// New creates a joypad with no buttons held.
func New() *Controller { return &Controller{} }

// SetButton sets or clears a single button.
func (c *Controller) SetButton(button Button, pressed bool) {
	if pressed {
		c.buttons |= uint8(button)
	} else {
		c.buttons &^= uint8(button)
	}
}

// SetButtons sets all eight buttons at once, in A,B,Select,Start,Up,
// Down,Left,Right order.
func (c *Controller) SetButtons(buttons [8]bool) {
	c.buttons = 0
	order := [8]Button{ButtonA, ButtonB, ButtonSelect, ButtonStart, ButtonUp, ButtonDown, ButtonLeft, ButtonRight}
	for i, pressed := range buttons {
		if pressed {
			c.buttons |= uint8(order[i])
		}
	}
}

// IsPressed returns true if the button is currently held.
func (c *Controller) IsPressed(button Button) bool {
	return c.buttons&uint8(button) != 0
}

// Write handles a write to $4016: while strobe is high the shift
// register continuously reloads from live button state; the falling
// edge latches it for shifting out on subsequent reads.
func (c *Controller) Write(value uint8) {
	c.strobe = value&1 != 0
	if c.strobe {
		c.shiftRegister = c.buttons
	}
}

// Read shifts out the next button bit; once exhausted, reads return 1
// (an open-bus approximation).
func (c *Controller) Read() uint8 {
	if c.strobe {
		return c.buttons & 1
	}
	bit := c.shiftRegister & 1
	c.shiftRegister = (c.shiftRegister >> 1) | 0x80
	return bit
}

// Reset clears held buttons and the shift register.
func (c *Controller) Reset() {
	c.buttons = 0
	c.shiftRegister = 0
	c.strobe = false
}

// Ports holds the two controller-port devices and routes CPU reads/
// writes at $4016/$4017.
type Ports struct {
	port1 *Controller
	port2 Device
}

// NewPorts creates the standard two-joypad configuration.
func NewPorts() *Ports {
	return &Ports{port1: New(), port2: New()}
}

// SetPort2Device swaps port 2's device, e.g. to a *Zapper.
func (p *Ports) SetPort2Device(device Device) { p.port2 = device }

// Port1 returns the port-1 joypad.
func (p *Ports) Port1() *Controller { return p.port1 }

// Port2 returns port 2's device (a *Controller unless replaced).
func (p *Ports) Port2() Device { return p.port2 }

// Reset resets both ports.
func (p *Ports) Reset() {
	p.port1.Reset()
	p.port2.Reset()
}

// Read implements memory.InputInterface for $4016/$4017.
func (p *Ports) Read(address uint16) uint8 {
	switch address {
	case 0x4016:
		return p.port1.Read()
	case 0x4017:
		return p.port2.Read()
	default:
		return 0
	}
}

// Write implements memory.InputInterface; $4016 strobes both ports.
func (p *Ports) Write(address uint16, value uint8) {
	if address == 0x4016 {
		p.port1.Write(value)
		p.port2.Write(value)
	}
}
