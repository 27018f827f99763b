package archive

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// ErrLzma wraps failures surfaced by the xz/lzma2 decoder.
var ErrLzma = fmt.Errorf("archive: lzma error")

// XzDecompressor wraps ulikunitz/xz's streaming reader as a plain
// io.Reader, used to feed data.tar.xz members to the tar reader. Like
// Bzip2Decompressor it is forward-only: the hash stack never needs a
// transparent xz hasher (only gzip gets that treatment, per the hash
// stack's fan-out design).
type XzDecompressor struct {
	r *xz.Reader
}

// NewXzDecompressor wraps src, which must yield an xz bitstream starting at
// the stream header.
func NewXzDecompressor(src io.Reader) (*XzDecompressor, error) {
	r, err := xz.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("archive: opening xz stream: %w", err)
	}
	return &XzDecompressor{r: r}, nil
}

func (x *XzDecompressor) Read(p []byte) (int, error) {
	n, err := x.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %v", ErrLzma, err)
	}
	return n, err
}
