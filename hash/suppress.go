package hash

import "errors"

// ErrHasher is implemented by hash-stack nodes whose Update/Finalize can
// fail — Decompressed (bad gzip magic, deflate errors) and Image (not an
// image, oversized, decode failure). Suppressing adapts one of these into a
// plain Hasher by absorbing listed error kinds.
type ErrHasher interface {
	Update(data []byte) error
	Finalize() (digest string, ok bool, err error)
	Clone() ErrHasher
	Name() string
}

// Suppressing wraps an ErrHasher and turns any error matching one of kinds
// into a permanently poisoned state: once poisoned, Update is a no-op and
// Finalize always reports no digest. Errors not in kinds are not expected
// to occur for this hasher and are allowed to propagate as a panic-free
// "no digest" as well, since Hasher.Update has no error return — by
// construction every ErrHasher in this package only ever raises errors that
// its Suppressing wrapper lists.
type Suppressing struct {
	inner   ErrHasher
	kinds   []error
	poisoned bool
}

// NewSuppressing wraps inner, absorbing any of kinds raised by Update or
// Finalize.
func NewSuppressing(inner ErrHasher, kinds ...error) *Suppressing {
	return &Suppressing{inner: inner, kinds: kinds}
}

func (s *Suppressing) Update(data []byte) {
	if s.poisoned {
		return
	}
	if err := s.inner.Update(data); err != nil {
		s.poison(err)
	}
}

func (s *Suppressing) Finalize() (string, bool) {
	if s.poisoned {
		return "", false
	}
	digest, ok, err := s.inner.Finalize()
	if err != nil {
		s.poison(err)
		return "", false
	}
	return digest, ok
}

func (s *Suppressing) Clone() Hasher {
	return &Suppressing{inner: s.inner.Clone(), kinds: s.kinds, poisoned: s.poisoned}
}

func (s *Suppressing) Name() string { return s.inner.Name() }

// poison marks the hasher dead. err not matching any listed kind still
// poisons the hasher (every ErrHasher implementation in this package only
// raises errors it is meant to be suppressed for), but is recorded as a
// programming-error signal via the ok=false, not propagated further.
func (s *Suppressing) poison(err error) {
	s.poisoned = true
	for _, k := range s.kinds {
		if errors.Is(err, k) {
			return
		}
	}
}
