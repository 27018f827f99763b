package archive

import "io"

const decompressBlockSize = 64 * 1024

// blockDecompressor is the subset of {Bzip2,Gzip}Decompressor that
// DecompressedStream needs: feed it compressed bytes, get decompressed
// bytes back, no seeking either direction.
type blockDecompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// DecompressedStream wraps any blockDecompressor and a sequential byte
// source, presenting the decompressed content as a plain io.Reader. It reads
// the underlying source in fixed 64 KiB blocks, so its own buffering is
// bounded by that block size; a GzipDecompressor underneath still keeps all
// compressed input it has been given.
type DecompressedStream struct {
	src   io.Reader
	dec   blockDecompressor
	buf   []byte
	inBuf []byte
	eof   bool
}

// NewDecompressedStream returns a Reader that decompresses src through dec
// on the fly.
func NewDecompressedStream(src io.Reader, dec blockDecompressor) *DecompressedStream {
	return &DecompressedStream{src: src, dec: dec, inBuf: make([]byte, decompressBlockSize)}
}

func (s *DecompressedStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if s.eof {
			return 0, io.EOF
		}
		n, err := s.src.Read(s.inBuf)
		if n > 0 {
			chunk, derr := s.dec.Decompress(s.inBuf[:n])
			if derr != nil {
				return 0, derr
			}
			s.buf = chunk
		}
		if err != nil {
			if err == io.EOF {
				s.eof = true
			} else {
				return 0, err
			}
		}
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}
