package hash

import "github.com/etnz/debdedup/archive"

// Decompressed feeds decompressor's output into inner. Finalize is
// non-destructive: it clones both the decompressor and inner, flushes the
// decompressor clone, feeds the flush tail into the inner clone, and
// finalizes that — so the original Decompressed hasher remains usable if
// more data arrives afterwards (matching the design note in spec.md §9:
// "clone is first-class, not optional").
type Decompressed struct {
	dec   *archive.GzipDecompressor
	inner Hasher
}

// NewDecompressedGzip builds a Decompressed hasher over a fresh gzip
// decompressor and inner.
func NewDecompressedGzip(inner Hasher) *Decompressed {
	return &Decompressed{dec: archive.NewGzipDecompressor(), inner: inner}
}

func (d *Decompressed) Update(data []byte) error {
	out, err := d.dec.Decompress(data)
	if err != nil {
		return err
	}
	d.inner.Update(out)
	return nil
}

func (d *Decompressed) Finalize() (string, bool, error) {
	decClone := d.dec.Clone()
	tail, err := decClone.Flush()
	if err != nil {
		return "", false, err
	}
	innerClone := d.inner.Clone()
	innerClone.Update(tail)
	digest, ok := innerClone.Finalize()
	return digest, ok, nil
}

func (d *Decompressed) Clone() ErrHasher {
	return &Decompressed{dec: d.dec.Clone(), inner: d.inner.Clone()}
}

func (d *Decompressed) Name() string { return d.inner.Name() }
