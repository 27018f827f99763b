package hash

import "github.com/etnz/debdedup/archive"

// MultiHasher fans a single byte stream out to a fixed set of named
// Hashers, feeding each one the same bytes and collecting one digest per
// function name at the end. Any suppressed/blacklisted member simply omits
// its entry from the result — the other members are unaffected.
type MultiHasher struct {
	members []Hasher
}

// NewMultiHasher builds a MultiHasher over members.
func NewMultiHasher(members ...Hasher) *MultiHasher {
	return &MultiHasher{members: members}
}

// NewFileHashers builds the standard per-file hash stack described in
// spec.md §4.2:
//
//   - sha512:      Blacklist(Raw(sha512))
//   - gzip_sha512: Blacklist(Suppressing(Decompressed(Gzip, Raw(sha512))))
//   - image_sha512: Suppressing(Image(Raw(sha512)))
func NewFileHashers() *MultiHasher {
	plain := NewBlacklist(NewSHA512(), BoringBlacklist)

	gzipInner := NewDecompressedGzip(NewSHA512())
	gzipInner2 := &renamed{Decompressed: gzipInner, name: FuncGzipSHA512}
	gzip := NewBlacklist(NewSuppressing(gzipInner2, archive.ErrBadMagic, archive.ErrDeflate), BoringBlacklist)

	imgInner := &imageNamed{Image: NewImage(NewSHA512()), name: FuncImageSHA512}
	img := NewSuppressing(imgInner, ErrNotAnImage, ErrTooLarge, ErrDecode)

	return NewMultiHasher(plain, gzip, img)
}

// renamed overrides Decompressed.Name so the digest is recorded under the
// function name rather than the inner hasher's name.
type renamed struct {
	*Decompressed
	name string
}

func (r *renamed) Name() string { return r.name }

func (r *renamed) Clone() ErrHasher {
	return &renamed{Decompressed: r.Decompressed.Clone().(*Decompressed), name: r.name}
}

// imageNamed overrides Image.Name the same way.
type imageNamed struct {
	*Image
	name string
}

func (i *imageNamed) Name() string { return i.name }

func (i *imageNamed) Clone() ErrHasher {
	return &imageNamed{Image: i.Image.Clone().(*Image), name: i.name}
}

func (m *MultiHasher) Update(data []byte) {
	for _, h := range m.members {
		h.Update(data)
	}
}

// Finalize returns the digests of every member that produced one, keyed by
// function name.
func (m *MultiHasher) Finalize() map[string]string {
	out := make(map[string]string, len(m.members))
	for _, h := range m.members {
		if digest, ok := h.Finalize(); ok {
			out[h.Name()] = digest
		}
	}
	return out
}

func (m *MultiHasher) Clone() *MultiHasher {
	clones := make([]Hasher, len(m.members))
	for i, h := range m.members {
		clones[i] = h.Clone()
	}
	return &MultiHasher{members: clones}
}
