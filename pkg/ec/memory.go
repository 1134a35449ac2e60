package ec

import "sync"

// Write is one journaled register write.
type Write struct {
	Offset Offset
	Value  byte
}

// Memory is an in-process RegisterFile. It journals writes and can inject
// faults per offset, which is what the controller tests and --simulate use.
type Memory struct {
	mu        sync.Mutex
	regs      [256]byte
	journal   []Write
	readFail  map[Offset]error
	writeFail map[Offset]error
	closed    bool
}

// NewMemory returns a zeroed register space.
func NewMemory() *Memory {
	return &Memory{
		readFail:  make(map[Offset]error),
		writeFail: make(map[Offset]error),
	}
}

// Set stores a value without journaling it, as if the firmware had written it.
func (m *Memory) Set(off Offset, value byte) {
	m.mu.Lock()
	m.regs[off] = value
	m.mu.Unlock()
}

// Get returns the stored value without going through ReadRegister.
func (m *Memory) Get(off Offset) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[off]
}

// FailRead makes reads of off fail with err until cleared with a nil err.
func (m *Memory) FailRead(off Offset, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.readFail, off)
		return
	}
	m.readFail[off] = err
}

// FailWrite makes writes to off fail with err until cleared with a nil err.
func (m *Memory) FailWrite(off Offset, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.writeFail, off)
		return
	}
	m.writeFail[off] = err
}

// Journal returns a copy of all successful writes so far.
func (m *Memory) Journal() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.journal...)
}

// WritesTo returns the values written to off, oldest first.
func (m *Memory) WritesTo(off Offset) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.journal {
		if w.Offset == off {
			out = append(out, w.Value)
		}
	}
	return out
}

// ResetJournal drops the write history.
func (m *Memory) ResetJournal() {
	m.mu.Lock()
	m.journal = nil
	m.mu.Unlock()
}

func (m *Memory) ReadRegister(off Offset) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, &RegisterError{Op: "read", Path: "memory", Offset: off, Err: ErrClosed}
	}
	if err := m.readFail[off]; err != nil {
		return 0, &RegisterError{Op: "read", Path: "memory", Offset: off, Err: err}
	}
	return m.regs[off], nil
}

func (m *Memory) WriteRegister(off Offset, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &RegisterError{Op: "write", Path: "memory", Offset: off, Err: ErrClosed}
	}
	if err := m.writeFail[off]; err != nil {
		return &RegisterError{Op: "write", Path: "memory", Offset: off, Err: err}
	}
	m.regs[off] = value
	m.journal = append(m.journal, Write{Offset: off, Value: value})
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
