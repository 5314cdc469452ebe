package compress

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// MB is the unit used by the size tiers (binary megabyte).
	MB = 1024 * 1024

	// DefaultMaxBytes is the byte budget compressed images aim for.
	DefaultMaxBytes = 2 * MB

	// Quality is handled in integer percent so the retry loop never drifts.
	floorQualityPct = 60
	stepQualityPct  = 5
)

// Options controls one compression run.
type Options struct {
	// MaxBytes is the target encoded size. It is a goal, not a guarantee.
	MaxBytes int64
	// Quality is the initial JPEG quality as a fraction in (0, 1].
	Quality float64
	// MaxDimension bounds the longest side; 0 disables resizing.
	MaxDimension int
}

// Result is a freshly encoded JPEG plus bookkeeping about how it was produced.
type Result struct {
	Data         []byte
	Width        int
	Height       int
	Quality      float64
	Attempts     int
	OriginalSize int64
}

func (r Result) Size() int64 { return int64(len(r.Data)) }

// Compressor re-encodes oversized images.
type Compressor struct{}

func New() *Compressor { return &Compressor{} }

// Compress decodes data, downscales it to opts.MaxDimension and re-encodes it as JPEG,
// lowering quality in fixed steps until the output fits opts.MaxBytes or the quality floor
// is reached.
func (c *Compressor) Compress(ctx context.Context, data []byte, opts Options) (Result, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, &DecodeError{Err: err}
	}

	img = fitWithin(img, opts.MaxDimension)
	b := img.Bounds()

	q := qualityPct(opts.Quality)
	res := Result{
		Width:        b.Dx(),
		Height:       b.Dy(),
		OriginalSize: int64(len(data)),
	}

	// Invariant: floorQualityPct <= q and every iteration either returns or lowers q, so the
	// loop runs at most (initial-floor)/step + 1 times.
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return Result{}, &EncodeError{Quality: float64(q) / 100, Err: err}
		}
		res.Attempts++
		res.Data = buf.Bytes()
		res.Quality = float64(q) / 100

		if opts.MaxBytes <= 0 || int64(buf.Len()) <= opts.MaxBytes || q <= floorQualityPct {
			return res, nil
		}
		q -= stepQualityPct
		if q < floorQualityPct {
			q = floorQualityPct
		}
	}
}

// fitWithin shrinks img so its longest side is at most maxDim. Images that already fit are
// returned as-is (never upscaled).
func fitWithin(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

func qualityPct(q float64) int {
	p := int(q*100 + 0.5)
	switch {
	case p > 100:
		return 100
	case p < floorQualityPct:
		// Starting below the floor still encodes once at the floor.
		return floorQualityPct
	}
	return p
}

// DecodeError means the source bytes are not a readable raster image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError means the JPEG encoder refused the image.
type EncodeError struct {
	Quality float64
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode image at quality %.2f: %v", e.Quality, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
