// Package hash implements the composable multi-hasher stack described in
// spec.md §4.2: a small set of hash objects that share one contract —
// Update, Finalize, Clone, Name — and compose by wrapping one another.
//
// Every hasher in this package absorbs its own class of error internally
// (Suppressing) rather than propagating it, so a broken interior hash only
// costs that one function's digest, never the sibling hashes running over
// the same byte stream.
package hash

// Hasher is the contract every hash-stack node implements.
type Hasher interface {
	// Update feeds the next chunk of the underlying byte stream.
	Update(data []byte)
	// Finalize returns the lowercase hex digest, or ok=false if this hasher
	// produced no usable digest (blacklisted, suppressed, or not yet fed
	// enough data to make a determination).
	Finalize() (digest string, ok bool)
	// Clone returns a deep, independent copy in the same state as the
	// receiver. Decompressed.Finalize relies on Clone being non-destructive.
	Clone() Hasher
	// Name is the function name recorded alongside the digest (e.g.
	// "sha512", "gzip_sha512", "image_sha512").
	Name() string
}

// BoringBlacklist is the default blacklist of near-universal sha512
// digests: the empty string and a single trailing newline. Content that
// hashes to one of these would dominate sharing statistics without telling
// us anything about real duplication, so Blacklist turns them into "no
// digest" instead.
var BoringBlacklist = map[string]bool{
	// sha512("")
	"cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e": true,
	// sha512("\n")
	"be688838ca8686e5c90689bf2ab585cef1137c999b48c70b92f67a5c34dc15697b5d11c982ed6d71be1e1e7f7b4e0733884aa97c3f7a339a8ed03577cf74be09": true,
}

// Function names, as recorded in the store's HashFunction table.
const (
	FuncSHA512      = "sha512"
	FuncGzipSHA512  = "gzip_sha512"
	FuncImageSHA512 = "image_sha512"
)

// BlockSize is the chunk size the importer feeds files through the stack
// in, per spec.md §4.3.
const BlockSize = 64 * 1024
