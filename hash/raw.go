package hash

import (
	"crypto/sha512"
	"encoding/hex"
	"hash"
)

// Raw wraps a cryptographic digest (sha-512) as a Hasher.
type Raw struct {
	name string
	h    hash.Hash
}

// NewSHA512 returns a Raw hasher over sha-512, named "sha512".
func NewSHA512() *Raw {
	return &Raw{name: FuncSHA512, h: sha512.New()}
}

func (r *Raw) Update(data []byte) { r.h.Write(data) }

func (r *Raw) Finalize() (string, bool) {
	return hex.EncodeToString(r.h.Sum(nil)), true
}

func (r *Raw) Clone() Hasher {
	// crypto/hash.Hash implementations in the standard library satisfy
	// encoding.BinaryMarshaler/Unmarshaler, which is the portable way to
	// snapshot a running digest without restarting it.
	type marshalable interface {
		hash.Hash
		MarshalBinary() ([]byte, error)
	}
	type unmarshalable interface {
		hash.Hash
		UnmarshalBinary([]byte) error
	}

	clone := sha512.New()
	if m, ok := r.h.(marshalable); ok {
		if state, err := m.MarshalBinary(); err == nil {
			if u, ok2 := clone.(unmarshalable); ok2 {
				_ = u.UnmarshalBinary(state)
			}
		}
	}
	return &Raw{name: r.name, h: clone}
}

func (r *Raw) Name() string { return r.name }
