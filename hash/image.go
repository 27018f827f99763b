package hash

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/png"
)

// Sentinel errors for the image hasher, per the "decode" error kind.
var (
	ErrNotAnImage = errors.New("hash: not a supported image")
	ErrTooLarge   = errors.New("hash: image exceeds size bounds")
	ErrDecode     = errors.New("hash: image decode failed")
)

const (
	imageMaxBytes  = 32 * 1024 * 1024
	imageMaxPixels = 32 * 1024 * 1024
)

var pngSignature = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
}

// Image accumulates raw file bytes, sniffing for a PNG or GIF signature,
// and at Finalize time decodes the image and hashes its normalized pixel
// content — so bit-different encodings of the same picture (different PNG
// filters, interlacing, palette order, ancillary chunks, or a PNG vs. a GIF
// of the same pixels) produce the same digest.
type Image struct {
	inner    Hasher
	content  bytes.Buffer
	detected bool
	width    uint32
	height   uint32
}

// NewImage builds an Image hasher feeding normalized pixel bytes into inner.
func NewImage(inner Hasher) *Image {
	return &Image{inner: inner}
}

func (img *Image) Update(data []byte) error {
	img.content.Write(data)
	if img.content.Len() > imageMaxBytes {
		return ErrTooLarge
	}
	if img.detected {
		return nil
	}
	return img.sniff()
}

// sniff inspects the buffered prefix for a supported signature once enough
// bytes have arrived, recording the declared width/height and rejecting
// the file early if either bound is exceeded.
func (img *Image) sniff() error {
	buf := img.content.Bytes()

	if bytes.HasPrefix(buf, pngSignature) {
		if len(buf) < 24 {
			return nil
		}
		w := be32(buf[16:20])
		h := be32(buf[20:24])
		return img.recordDimensions(w, h)
	}
	if bytes.HasPrefix(buf, []byte("GIF87a")) || bytes.HasPrefix(buf, []byte("GIF89a")) {
		if len(buf) < 10 {
			return nil
		}
		// GIF logical screen descriptor dimensions are little-endian.
		w := le16(buf[6:8])
		h := le16(buf[8:10])
		return img.recordDimensions(uint32(w), uint32(h))
	}

	if len(buf) >= 16 {
		return ErrNotAnImage
	}
	return nil
}

func (img *Image) recordDimensions(w, h uint32) error {
	if uint64(w)*uint64(h) > imageMaxPixels {
		return ErrTooLarge
	}
	img.width, img.height = w, h
	img.detected = true
	return nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func (img *Image) Finalize() (string, bool, error) {
	if !img.detected {
		return "", false, ErrNotAnImage
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.content.Bytes()))
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	hashObj := img.inner.Clone()
	bounds := decoded.Bounds()
	forceOpaque := isOpaqueModel(decoded.ColorModel())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
			a := c.A
			if forceOpaque {
				a = 255
			}
			hashObj.Update([]byte{c.R, c.G, c.B, a})
		}
	}

	digest, ok := hashObj.Finalize()
	if !ok {
		return "", false, nil
	}
	return fmt.Sprintf("%s%08x%08x", digest, img.width, img.height), true, nil
}

// isOpaqueModel reports whether m is a color model with no meaningful
// alpha channel (grayscale, or any other non-alpha-carrying model such as
// a GIF palette or YCbCr); these force alpha=255 rather than contributing
// whatever NRGBA conversion happens to produce.
func isOpaqueModel(m color.Model) bool {
	switch m {
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return false
	default:
		return true
	}
}

func (img *Image) Clone() ErrHasher {
	clone := &Image{
		inner:    img.inner.Clone(),
		detected: img.detected,
		width:    img.width,
		height:   img.height,
	}
	clone.content.Write(img.content.Bytes())
	return clone
}

func (img *Image) Name() string { return img.inner.Name() }
