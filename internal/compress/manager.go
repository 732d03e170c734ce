package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	kflate "github.com/klauspost/compress/flate"
	kgzip "github.com/klauspost/compress/gzip"
)

// Status codes for CompressBlock, mirroring §6's "errors are negative
// codes" convention.
const (
	StatusOK            = 0
	ErrOverflow         = -1 // bytesOut was full; caller should write it out, refill, and retry
	ErrInvalidHandle    = -2
	ErrUnsupportedType  = -3
	ErrAllocationFailed = -4
)

// defaultBlockSize is what GetCompressorBlockSize reports absent a
// caller override.
const defaultBlockSize = 32 * 1024

// brotliDefaultLevel mirrors gzip/flate's "default compression" idea
// for brotli, whose own API has no named default between BestSpeed
// (0) and BestCompression (11).
const brotliDefaultLevel = 5

// Handle identifies one live compressor instance.
type Handle int

// BlockArgs is the block-oriented call's input/output buffer pair.
type BlockArgs struct {
	BytesIn     []byte
	BytesOut    []byte
	Flush       bool
	BytesInLen  int
	BytesOutLen int
}

// BlockResult reports how much of BytesIn was consumed and how much
// of BytesOut was filled.
type BlockResult struct {
	BytesRead    int
	BytesWritten int
	Status       int
}

// instance is one allocated compressor: a codec writer draining into
// a pending buffer that CompressBlock serves out of BytesOut-sized
// chunks.
type instance struct {
	typ       Type
	level     int
	writer    io.WriteCloser
	sink      *bytes.Buffer
	pending   bytes.Buffer // compressed bytes not yet handed to a caller
	closed    bool
	finished  bool // writer closed by a Flush call; the stream is complete
	blockSize int
}

// Manager negotiates and allocates compressors. A zero-value Manager
// supports only None — use NewManager for the codecs this build
// carries.
type Manager struct {
	mu        sync.Mutex
	supported map[Type]bool
	instances map[Handle]*instance
	nextID    Handle
}

// NewManager returns a Manager advertising gzip, deflate, and brotli.
// LZ4 is defined as a Type but not advertised: no library in this
// build's dependency set implements it (see DESIGN.md) — Negotiate
// will never select it until a real codec is wired in and added here.
func NewManager() *Manager {
	return &Manager{
		supported: map[Type]bool{Gzip: true, Deflate: true, Brotli: true},
		instances: make(map[Handle]*instance),
	}
}

// Supports reports whether t is advertised by this manager.
func (m *Manager) Supports(t Type) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supported[t]
}

// SupportedSet returns the map Negotiate should be called with.
func (m *Manager) SupportedSet() map[Type]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Type]bool, len(m.supported))
	for k, v := range m.supported {
		out[k] = v
	}
	return out
}

// AllocateCompressor creates a new compressor instance of typ at the
// given level (codec-specific; 0 means "default").
func (m *Manager) AllocateCompressor(typ Type, level int) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.supported[typ] {
		return 0, fmt.Errorf("compress: unsupported type %s", typ)
	}

	inst := &instance{typ: typ, level: level, blockSize: defaultBlockSize}
	inst.sink = &inst.pending

	var w io.WriteCloser
	var err error
	switch typ {
	case Gzip:
		lvl := level
		if lvl == 0 {
			lvl = kgzip.DefaultCompression
		}
		w, err = kgzip.NewWriterLevel(inst.sink, lvl)
	case Deflate:
		lvl := level
		if lvl == 0 {
			lvl = kflate.DefaultCompression
		}
		w, err = kflate.NewWriter(inst.sink, lvl)
	case Brotli:
		lvl := level
		if lvl == 0 {
			lvl = brotliDefaultLevel
		}
		w = brotli.NewWriterLevel(inst.sink, lvl)
	default:
		return 0, fmt.Errorf("compress: unsupported type %s", typ)
	}
	if err != nil {
		return 0, fmt.Errorf("compress: allocate %s: %w", typ, err)
	}
	inst.writer = w

	m.nextID++
	id := m.nextID
	m.instances[id] = inst
	return id, nil
}

// GetCompressorBlockSize returns the block size handle prefers for
// CompressBlock's BytesOut buffer.
func (m *Manager) GetCompressorBlockSize(h Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[h]
	if !ok {
		return defaultBlockSize
	}
	return inst.blockSize
}

// CompressBlock feeds args.BytesIn[:BytesInLen] into the compressor
// and drains up to len(args.BytesOut) compressed bytes into it. If
// more compressed data remains buffered than BytesOut can hold, it
// returns ErrOverflow along with however many bytes it did write —
// the caller is expected to flush BytesOut and call again to drain
// the rest, per §4.9. Setting args.Flush finishes the codec stream
// (its trailer is written), so the bytes drained up to and after that
// call form one complete stream; input sent after it is rejected with
// ErrAllocationFailed.
func (m *Manager) CompressBlock(h Handle, args BlockArgs) BlockResult {
	m.mu.Lock()
	inst, ok := m.instances[h]
	m.mu.Unlock()
	if !ok || inst.closed {
		return BlockResult{Status: ErrInvalidHandle}
	}

	read := 0
	if args.BytesInLen > 0 {
		n, err := inst.writer.Write(args.BytesIn[:args.BytesInLen])
		read = n
		if err != nil {
			return BlockResult{BytesRead: read, Status: ErrAllocationFailed}
		}
	}
	if args.Flush && !inst.finished {
		if err := inst.writer.Close(); err != nil {
			return BlockResult{BytesRead: read, Status: ErrAllocationFailed}
		}
		inst.finished = true
	}

	outLen := args.BytesOutLen
	if outLen == 0 {
		outLen = len(args.BytesOut)
	}
	written := 0
	if outLen > 0 && inst.pending.Len() > 0 {
		written, _ = inst.pending.Read(args.BytesOut[:outLen])
	}

	status := StatusOK
	if inst.pending.Len() > 0 {
		status = ErrOverflow
	}
	return BlockResult{BytesRead: read, BytesWritten: written, Status: status}
}

// FreeCompressor closes the underlying writer (unless a Flush already
// finished it) and releases h. Calling it more than once, or on an
// unknown handle, is a no-op.
func (m *Manager) FreeCompressor(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[h]
	if !ok {
		return
	}
	if !inst.closed {
		if !inst.finished {
			_ = inst.writer.Close()
		}
		inst.closed = true
	}
	delete(m.instances, h)
}
