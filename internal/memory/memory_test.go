package memory

type fakePPU struct {
	reads  map[uint16]uint8
	writes map[uint16]uint8
}

func newFakePPU() *fakePPU {
	return &fakePPU{reads: map[uint16]uint8{}, writes: map[uint16]uint8{}}
}

func (p *fakePPU) ReadRegister(address uint16) uint8 { return p.reads[address] }
func (p *fakePPU) WriteRegister(address uint16, v uint8) { p.writes[address] = v }

type fakeAPU struct {
	status uint8
	writes map[uint16]uint8
}

func newFakeAPU() *fakeAPU {
	return &fakeAPU{writes: map[uint16]uint8{}}
}

func (a *fakeAPU) WriteRegister(address uint16, v uint8) { a.writes[address] = v }
func (a *fakeAPU) ReadStatus() uint8                     { return a.status }

type fakeCart struct {
	prg, prgRAM, chr [0x10000]uint8
	mirror           MirrorMode
}

func (c *fakeCart) ReadPRG(address uint16) uint8     { return c.prg[address] }
func (c *fakeCart) WritePRG(address uint16, v uint8) { c.prg[address] = v }
func (c *fakeCart) ReadCHR(address uint16) uint8     { return c.chr[address] }
func (c *fakeCart) WriteCHR(address uint16, v uint8) { c.chr[address] = v }
func (c *fakeCart) MirrorMode() uint8                { return uint8(c.mirror) }

type fakeInput struct {
	lastWrite uint8
	reads     map[uint16]uint8
}

func (i *fakeInput) Read(address uint16) uint8  { return i.reads[address] }
func (i *fakeInput) Write(address uint16, v uint8) { i.lastWrite = v }
