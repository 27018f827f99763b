package hash

// Blacklist wraps inner and turns finalize results that appear in set into
// "no digest" — used to suppress near-universal hashes (see BoringBlacklist)
// that would otherwise dominate the sharing statistics.
type Blacklist struct {
	inner Hasher
	set   map[string]bool
}

// NewBlacklist wraps inner with the given blacklist set.
func NewBlacklist(inner Hasher, set map[string]bool) *Blacklist {
	return &Blacklist{inner: inner, set: set}
}

func (b *Blacklist) Update(data []byte) { b.inner.Update(data) }

func (b *Blacklist) Finalize() (string, bool) {
	digest, ok := b.inner.Finalize()
	if !ok || b.set[digest] {
		return "", false
	}
	return digest, true
}

func (b *Blacklist) Clone() Hasher {
	return &Blacklist{inner: b.inner.Clone(), set: b.set}
}

func (b *Blacklist) Name() string { return b.inner.Name() }
