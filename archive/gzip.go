package archive

import (
	"bufio"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// ErrDeflate wraps failures from the underlying flate decoder.
var ErrDeflate = errors.New("archive: deflate error")

// gzipMagic is the fixed 3-byte prefix of every gzip member: magic + the
// deflate compression method.
var gzipMagic = [3]byte{0x1f, 0x8b, 0x08}

const (
	flagText    = 1 << 0
	flagHCRC    = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

// GzipDecompressor is a from-scratch gzip member parser layered over
// compress/flate's raw deflate decoder.
//
// compress/flate is a pull decoder: it reads from whatever io.Reader it is
// given, and the moment that reader returns io.EOF mid-block, flate caches
// that as a permanent, terminal error — a later call can never resume it,
// even if more bytes become available. A plain bytes.Reader topped up
// between Decompress calls therefore cannot represent a deflate stream that
// arrives in pieces (e.g. a gzip member larger than one DecompressedStream
// read). To give flate a reader that behaves like a real incremental byte
// stream, decoding runs on a background goroutine reading through g itself
// (g.Read blocks for more bytes instead of returning io.EOF), fed by
// whatever Decompress is handed. Decompress blocks until that goroutine has
// consumed everything available and is waiting for more (or has finished),
// so every call still returns a consistent, fully-drained chunk of output.
//
// compress/flate also exposes no way to snapshot its internal Huffman/window
// state, so it cannot be cloned mid-stream directly. GzipDecompressor
// instead keeps the full history of bytes it has ever been asked to
// decompress and implements Clone by replaying that history into a fresh
// decompressor from the start: deterministic decompression guarantees the
// replayed state is identical to the original's, without disturbing the
// original (which must remain usable for further Decompress calls after a
// Clone).
//
// Concatenated gzip members are supported: once one member's deflate stream
// ends, the background goroutine loops back and parses another header from
// the same input.
type GzipDecompressor struct {
	history []byte

	mu   sync.Mutex
	cond *sync.Cond

	in       []byte // bytes handed to Decompress but not yet consumed by the decode goroutine
	inClosed bool   // true once Flush has been called: no more input is ever coming
	waiting  bool   // true while the decode goroutine is blocked inside Read, i.e. fully drained

	out  []byte // decompressed bytes produced but not yet returned to a caller
	err  error
	done bool // true once the decode goroutine has exited, cleanly or on error
}

// NewGzipDecompressor returns an unstarted gzip decompressor.
func NewGzipDecompressor() *GzipDecompressor {
	g := &GzipDecompressor{}
	g.cond = sync.NewCond(&g.mu)
	go g.run()
	// A Clone made only to be Flushed (hash.Decompressed.Finalize's usual
	// pattern) always terminates its goroutine via Flush. A Clone made for
	// further Update calls that is later discarded without ever being
	// flushed would otherwise leak its decode goroutine forever; the
	// finalizer reclaims it once g becomes unreachable.
	runtime.SetFinalizer(g, (*GzipDecompressor).closeInput)
	return g
}

// gzipFeed adapts GzipDecompressor's internal input queue to io.Reader, so
// bufio/flate have something to read from without GzipDecompressor itself
// looking like an io.Reader in its public API.
type gzipFeed struct{ g *GzipDecompressor }

func (f gzipFeed) Read(p []byte) (int, error) { return f.g.read(p) }

// read supplies the background decode goroutine with bytes handed to
// Decompress, blocking until more arrive instead of returning io.EOF, so a
// deflate block split across Decompress calls simply waits for the rest.
func (g *GzipDecompressor) read(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for len(g.in) == 0 && !g.inClosed {
		g.waiting = true
		g.cond.Broadcast()
		g.cond.Wait()
	}
	g.waiting = false
	if len(g.in) == 0 {
		return 0, io.EOF
	}
	n := copy(p, g.in)
	g.in = g.in[n:]
	return n, nil
}

// run parses gzip headers and drains each member's flate stream, appending
// decompressed bytes to g.out as they're produced, until Read reports a
// clean end (Flush was called and all pending input is exhausted) or a
// malformed header or deflate stream is found.
func (g *GzipDecompressor) run() {
	br := bufio.NewReader(gzipFeed{g})
	for {
		if err := parseGzipHeader(br); err != nil {
			if errors.Is(err, io.EOF) {
				g.finish(nil)
			} else {
				g.finish(err)
			}
			return
		}

		inflate := flate.NewReader(br)
		buf := make([]byte, 32*1024)
		for {
			n, rerr := inflate.Read(buf)
			if n > 0 {
				g.appendOut(buf[:n])
			}
			if rerr != nil {
				if errors.Is(rerr, io.EOF) {
					break
				}
				g.finish(fmt.Errorf("archive: %w: %v", ErrDeflate, rerr))
				return
			}
		}

		// Skip the member trailer (CRC-32 and input size) so the next header
		// parse starts at the following member, if any.
		if _, err := io.CopyN(io.Discard, br, 8); err != nil {
			g.finish(nil)
			return
		}
	}
}

func (g *GzipDecompressor) appendOut(p []byte) {
	g.mu.Lock()
	g.out = append(g.out, p...)
	g.mu.Unlock()
}

func (g *GzipDecompressor) finish(err error) {
	g.mu.Lock()
	g.err = err
	g.done = true
	g.cond.Broadcast()
	g.mu.Unlock()
}

// closeInput marks no further input as coming, letting a goroutine blocked
// in Read (and the run loop behind it) exit.
func (g *GzipDecompressor) closeInput() {
	g.mu.Lock()
	g.inClosed = true
	g.cond.Broadcast()
	g.mu.Unlock()
}

// Decompress feeds data through the gzip member parser and the deflate
// decoder, returning the decompressed bytes produced so far.
func (g *GzipDecompressor) Decompress(data []byte) ([]byte, error) {
	g.history = append(g.history, data...)

	g.mu.Lock()
	g.in = append(g.in, data...)
	g.waiting = false
	g.cond.Broadcast()
	for !g.waiting && !g.done {
		g.cond.Wait()
	}
	out := g.out
	g.out = nil
	err := g.err
	g.mu.Unlock()
	return out, err
}

// Flush returns any bytes the deflate decoder can still emit once no more
// input is coming. It is destructive (the underlying decode goroutine runs
// to completion and exits), so callers that need to keep using this
// decompressor should Flush a Clone instead.
func (g *GzipDecompressor) Flush() ([]byte, error) {
	g.mu.Lock()
	g.inClosed = true
	g.cond.Broadcast()
	for !g.done {
		g.cond.Wait()
	}
	out := g.out
	g.out = nil
	err := g.err
	g.mu.Unlock()
	return out, err
}

// Clone returns an independent decompressor in the same logical state as g,
// built by replaying g's input history into a fresh decoder from the start.
func (g *GzipDecompressor) Clone() *GzipDecompressor {
	clone := NewGzipDecompressor()
	if len(g.history) > 0 {
		if _, err := clone.Decompress(g.history); err != nil {
			// A history that decompressed without error the first time will
			// decompress without error on replay; if it did fail, the clone
			// keeps that error and its Flush reports it again.
			return clone
		}
	}
	return clone
}

// parseGzipHeader reads one gzip member's header (magic, flags, and any
// optional extra/name/comment/header-CRC fields) from br, leaving br
// positioned at the start of the member's deflate body.
//
// Any shortfall while reading — whether zero bytes or a partial header —
// is reported as io.EOF: once input is exhausted, a missing or partial
// header after the last member is treated as "no further member here"
// rather than an error. Only a flatly wrong magic on a fully-read fixed
// header indicates real corruption.
func parseGzipHeader(br *bufio.Reader) error {
	var fixed [10]byte
	if _, err := io.ReadFull(br, fixed[:]); err != nil {
		return io.EOF
	}
	if !bytes.Equal(fixed[:3], gzipMagic[:]) {
		return fmt.Errorf("archive: gzip magic not found: %w", ErrBadMagic)
	}

	flag := fixed[3]
	if flag&flagExtra != 0 {
		var lenBuf [2]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return io.EOF
		}
		if extraLen := binary.LittleEndian.Uint16(lenBuf[:]); extraLen > 0 {
			if _, err := io.CopyN(io.Discard, br, int64(extraLen)); err != nil {
				return io.EOF
			}
		}
	}
	for _, f := range [2]byte{flagName, flagComment} {
		if flag&f == 0 {
			continue
		}
		if _, err := br.ReadString(0); err != nil {
			return io.EOF
		}
	}
	if flag&flagHCRC != 0 {
		if _, err := io.CopyN(io.Discard, br, 2); err != nil {
			return io.EOF
		}
	}
	return nil
}
