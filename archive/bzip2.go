package archive

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// ErrBz2 wraps failures surfaced by the bzip2 decoder.
var ErrBz2 = fmt.Errorf("archive: bzip2 error")

// Bzip2Decompressor adapts dsnet/compress/bzip2's stream reader to the
// blockDecompressor contract used by DecompressedStream. data.tar.bz2
// members are only ever streamed forward once, so no Clone is needed here
// (unlike the gzip decompressor, which the hash stack also runs
// transparently over raw file content).
type Bzip2Decompressor struct {
	src io.Reader
	r   *bzip2.Reader
}

// NewBzip2Decompressor wraps src, which must yield a bzip2 bitstream
// starting at a member boundary.
func NewBzip2Decompressor(src io.Reader) (*Bzip2Decompressor, error) {
	r, err := bzip2.NewReader(src, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: opening bzip2 stream: %w", err)
	}
	return &Bzip2Decompressor{src: src, r: r}, nil
}

// Decompress ignores the data argument (the decoder already owns the
// underlying reader) and pulls the next chunk of decompressed bytes from
// its own source. It satisfies blockDecompressor, but inside a
// DecompressedStream the bytes the stream reads from its source are not
// the ones decoded.
func (b *Bzip2Decompressor) Decompress([]byte) ([]byte, error) {
	buf := make([]byte, decompressBlockSize)
	n, err := b.r.Read(buf)
	if err != nil && err != io.EOF {
		return buf[:n], fmt.Errorf("%w: %v", ErrBz2, err)
	}
	return buf[:n], nil
}

// Read implements io.Reader directly over the decompressed bzip2 content,
// which is how the tar reader consumes a data.tar.bz2 member.
func (b *Bzip2Decompressor) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %v", ErrBz2, err)
	}
	return n, err
}
