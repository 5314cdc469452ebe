package intake

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"photomaker/internal/compress"
	"photomaker/internal/preview"

	"github.com/dustin/go-humanize"
)

// RawFile is an intake candidate from the file picker, a dropped path or the camera.
type RawFile struct {
	Name      string
	MediaType string // declared type; sniffed when empty
	Data      []byte
}

// Compressor is the part of compress.Compressor intake depends on.
type Compressor interface {
	Compress(ctx context.Context, data []byte, opts compress.Options) (compress.Result, error)
}

// Report counts what happened to a batch; it only feeds user feedback.
type Report struct {
	Accepted     int
	Compressed   int
	Duplicates   int
	TypeRejected int
	CapRejected  int
	Failures     []Failure
	AddedIDs     []int
}

// Failure records one file that could not be compressed.
type Failure struct {
	Name string
	Err  error
}

// Summary is a one-line description suitable for a notification.
func (r Report) Summary() string {
	parts := []string{fmt.Sprintf("%d added", r.Accepted)}
	if r.Compressed > 0 {
		parts = append(parts, fmt.Sprintf("%d compressed", r.Compressed))
	}
	if r.Duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate", r.Duplicates))
	}
	if r.TypeRejected > 0 {
		parts = append(parts, fmt.Sprintf("%d not an image", r.TypeRejected))
	}
	if n := len(r.Failures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	return strings.Join(parts, ", ")
}

// Batch is a validated, compressed set of files waiting to be committed to a List. thumbs is
// index-aligned with files.
type Batch struct {
	files  []File
	thumbs []image.Image
	report Report
}

func (b Batch) Len() int { return len(b.files) }

func (b Batch) thumb(i int) image.Image {
	if i < len(b.thumbs) {
		return b.thumbs[i]
	}
	return nil
}

// Report is what Prepare found so far, including rejections that caused an error.
func (b Batch) Report() Report { return b.report }

// Intake validates candidates, compresses oversized ones and feeds them to a List.
type Intake struct {
	List       *List
	Compressor Compressor
	// MaxBytes is the compression byte budget.
	MaxBytes int64
}

func New(list *List, c Compressor) *Intake {
	if c == nil {
		c = compress.New()
	}
	return &Intake{List: list, Compressor: c, MaxBytes: compress.DefaultMaxBytes}
}

// AddFiles is Prepare followed by Commit against the current list.
func (in *Intake) AddFiles(ctx context.Context, candidates []RawFile) (Report, error) {
	b, err := in.Prepare(ctx, in.List.Keys(), candidates)
	if err != nil {
		return b.report, err
	}
	return in.List.Commit(b)
}

// Prepare filters out non-images, drops files already in existing or repeated within the batch,
// enforces the item cap on what is left, compresses files above the smallest tier threshold and
// builds their thumbnails. It does not touch the list, so it can run off the UI loop.
func (in *Intake) Prepare(ctx context.Context, existing Keys, candidates []RawFile) (Batch, error) {
	var b Batch
	images := make([]RawFile, 0, len(candidates))
	seen := map[dedupKey]bool{}
	for _, c := range candidates {
		mt := DetectMediaType(c.Name, c.Data, c.MediaType)
		if !IsImage(mt) {
			b.report.TypeRejected++
			slog.Debug("Rejected non-image file", "name", c.Name, "type", mt)
			continue
		}
		k := dedupKey{name: c.Name, size: int64(len(c.Data))}
		if seen[k] || existing.has(k) {
			b.report.Duplicates++
			continue
		}
		seen[k] = true
		c.MediaType = mt
		images = append(images, c)
	}

	if len(images) == 0 {
		if b.report.TypeRejected > 0 && b.report.Duplicates == 0 {
			return b, &ValidationError{Reason: "only image files can be added"}
		}
		return b, nil
	}
	if current := existing.Len(); current+len(images) > MaxItems {
		b.report.CapRejected = len(images)
		return b, capError(current, len(images))
	}

	var previews *preview.Registry
	if in.List != nil {
		previews = in.List.Previews()
	}
	for _, c := range images {
		f, compressed, err := in.prepareOne(ctx, c)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return b, ctxErr
			}
			b.report.Failures = append(b.report.Failures, Failure{Name: c.Name, Err: err})
			slog.Warn("Compression failed", "name", c.Name, "err", err)
			continue
		}
		if compressed {
			b.report.Compressed++
		}
		var thumb image.Image
		if previews != nil {
			thumb = previews.Thumbnail(f.Data)
		}
		b.files = append(b.files, f)
		b.thumbs = append(b.thumbs, thumb)
	}
	return b, nil
}

func (in *Intake) prepareOne(ctx context.Context, c RawFile) (File, bool, error) {
	size := int64(len(c.Data))
	f := File{
		Name:         c.Name,
		OriginalName: c.Name,
		MediaType:    c.MediaType,
		Size:         size,
		OriginalSize: size,
		Data:         c.Data,
	}
	tier, ok := compress.TierFor(size)
	if !ok {
		return f, false, nil
	}

	res, err := in.Compressor.Compress(ctx, c.Data, tier.Options(in.MaxBytes))
	if err != nil {
		return File{}, false, &CompressionError{Name: c.Name, Err: err}
	}
	slog.Info("Compressed image",
		"name", c.Name,
		"tier", tier.Name,
		"from", humanize.IBytes(uint64(size)),
		"to", humanize.IBytes(uint64(res.Size())),
		"quality", res.Quality,
		"attempts", res.Attempts,
	)
	f.Name = jpegName(c.Name)
	f.MediaType = "image/jpeg"
	f.Data = res.Data
	f.Size = res.Size()
	f.Compressed = true
	return f, true, nil
}

func jpegName(name string) string {
	ext := filepath.Ext(name)
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return name
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}

// ValidationError is a refused user action; the list is left unchanged.
type ValidationError struct {
	Reason    string
	Current   int
	Requested int
}

func (e *ValidationError) Error() string { return e.Reason }

func capError(current, requested int) error {
	return &ValidationError{
		Reason:    fmt.Sprintf("you can add at most %d images (currently %d, tried to add %d)", MaxItems, current, requested),
		Current:   current,
		Requested: requested,
	}
}

// CompressionError wraps a per-file compress.DecodeError or compress.EncodeError.
type CompressionError struct {
	Name string
	Err  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("could not compress %s: %v", e.Name, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
