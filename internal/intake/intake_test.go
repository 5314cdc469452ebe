package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"photomaker/internal/compress"
	"photomaker/internal/preview"
)

type fakeCompressor struct {
	calls []compress.Options
	fail  map[int]error // keyed by input length
}

func (f *fakeCompressor) Compress(_ context.Context, data []byte, opts compress.Options) (compress.Result, error) {
	f.calls = append(f.calls, opts)
	if err := f.fail[len(data)]; err != nil {
		return compress.Result{}, err
	}
	return compress.Result{
		Data:         make([]byte, len(data)/10),
		Quality:      opts.Quality,
		Attempts:     1,
		OriginalSize: int64(len(data)),
	}, nil
}

func jpeg(name string, size int) RawFile {
	return RawFile{Name: name, MediaType: "image/jpeg", Data: make([]byte, size)}
}

func pngFile(t *testing.T, name string) RawFile {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 12, 12))
	for x := 0; x < 12; x++ {
		for y := 0; y < 12; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x * 20), B: uint8(y * 20), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return RawFile{Name: name, MediaType: "image/png", Data: buf.Bytes()}
}

func newIntake(fc *fakeCompressor) *Intake {
	return New(NewList(preview.NewRegistry()), fc)
}

func TestAddFiles_TieredCompression(t *testing.T) {
	t.Parallel()

	fc := &fakeCompressor{}
	in := newIntake(fc)
	rep, err := in.AddFiles(context.Background(), []RawFile{
		jpeg("small.jpg", 1*compress.MB),
		jpeg("medium.jpg", 4*compress.MB),
		jpeg("large.png", 11*compress.MB),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rep.Accepted != 3 || rep.Compressed != 2 {
		t.Fatalf("expected 3 accepted / 2 compressed, got %+v", rep)
	}
	want := []compress.Options{
		{MaxBytes: compress.DefaultMaxBytes, Quality: 0.85, MaxDimension: 2400},
		{MaxBytes: compress.DefaultMaxBytes, Quality: 0.70, MaxDimension: 1600},
	}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("compress calls:\n got %+v\nwant %+v", fc.calls, want)
	}

	items := in.List.Snapshot()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].File.Compressed || items[0].File.Size != int64(compress.MB) {
		t.Fatalf("small file should pass through unmodified: %+v", items[0].File)
	}
	if !items[2].File.Compressed || items[2].File.Name != "large.jpg" || items[2].File.MediaType != "image/jpeg" {
		t.Fatalf("large file should be re-encoded as jpeg: %+v", items[2].File)
	}
	if items[2].File.OriginalName != "large.png" || items[2].File.OriginalSize != int64(11*compress.MB) {
		t.Fatalf("original identity lost: %+v", items[2].File)
	}
	for i := 1; i < len(items); i++ {
		if items[i].ID <= items[i-1].ID {
			t.Fatalf("ids not increasing: %d then %d", items[i-1].ID, items[i].ID)
		}
	}
}

func TestAddFiles_CapRejectsWholeBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing int
		adding   int
		wantErr  bool
	}{
		{name: "fills exactly", existing: 7, adding: 3},
		{name: "one over", existing: 8, adding: 3, wantErr: true},
		{name: "empty list too many", existing: 0, adding: 11, wantErr: true},
		{name: "full list", existing: 10, adding: 1, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := newIntake(&fakeCompressor{})
			var seed []RawFile
			for i := 0; i < tt.existing; i++ {
				seed = append(seed, jpeg(fmt.Sprintf("seed-%d.jpg", i), 10+i))
			}
			if _, err := in.AddFiles(context.Background(), seed); err != nil {
				t.Fatalf("seed: %v", err)
			}
			before := in.List.Snapshot()

			var batch []RawFile
			for i := 0; i < tt.adding; i++ {
				batch = append(batch, jpeg(fmt.Sprintf("new-%d.jpg", i), 100+i))
			}
			rep, err := in.AddFiles(context.Background(), batch)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if in.List.Len() != tt.existing+tt.adding {
					t.Fatalf("expected %d items, got %d", tt.existing+tt.adding, in.List.Len())
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Current != tt.existing || ve.Requested != tt.adding {
				t.Fatalf("expected counts %d/%d, got %d/%d", tt.existing, tt.adding, ve.Current, ve.Requested)
			}
			if rep.CapRejected != tt.adding || rep.Accepted != 0 {
				t.Fatalf("unexpected report: %+v", rep)
			}
			if !reflect.DeepEqual(in.List.Snapshot(), before) {
				t.Fatalf("list changed after rejection")
			}
		})
	}
}

func TestAddFiles_Dedup(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	if _, err := in.AddFiles(context.Background(), []RawFile{jpeg("a.jpg", 100)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rep, err := in.AddFiles(context.Background(), []RawFile{
		jpeg("a.jpg", 100), // already in list
		jpeg("a.jpg", 101), // same name, different size
		jpeg("b.jpg", 100),
		jpeg("b.jpg", 100), // within batch
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rep.Accepted != 2 || rep.Duplicates != 2 {
		t.Fatalf("expected 2 accepted / 2 duplicates, got %+v", rep)
	}
	if in.List.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", in.List.Len())
	}
}

func TestAddFiles_DedupUsesOriginalIdentity(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	big := jpeg("big.png", 6*compress.MB)
	if _, err := in.AddFiles(context.Background(), []RawFile{big}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	rep, err := in.AddFiles(context.Background(), []RawFile{big})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if rep.Duplicates != 1 || in.List.Len() != 1 {
		t.Fatalf("re-adding a compressed file should dedup: %+v len=%d", rep, in.List.Len())
	}
}

func TestAddFiles_DuplicatesDoNotCountTowardCap(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	var seed []RawFile
	for i := 0; i < MaxItems; i++ {
		seed = append(seed, jpeg(fmt.Sprintf("%d.jpg", i), 10+i))
	}
	if _, err := in.AddFiles(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rep, err := in.AddFiles(context.Background(), []RawFile{seed[3]})
	if err != nil {
		t.Fatalf("re-adding an existing photo to a full list: %v", err)
	}
	if rep.Duplicates != 1 || rep.CapRejected != 0 || in.List.Len() != MaxItems {
		t.Fatalf("unexpected report: %+v len=%d", rep, in.List.Len())
	}

	in.List.Remove(in.List.Snapshot()[0].ID)
	rep, err = in.AddFiles(context.Background(), []RawFile{seed[5], seed[5], jpeg("new.jpg", 500)})
	if err != nil {
		t.Fatalf("one new photo plus duplicates into a single free slot: %v", err)
	}
	if rep.Accepted != 1 || rep.Duplicates != 2 || in.List.Len() != MaxItems {
		t.Fatalf("unexpected report: %+v len=%d", rep, in.List.Len())
	}

	_, err = in.AddFiles(context.Background(), []RawFile{seed[5], jpeg("extra.jpg", 600)})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Requested != 1 {
		t.Fatalf("expected cap error counting only the new photo, got %v", err)
	}
}

func TestCommit_UsesThumbnailsBuiltByPrepare(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	reg := in.List.Previews()
	b, err := in.Prepare(context.Background(), in.List.Keys(), []RawFile{
		pngFile(t, "a.png"),
		jpeg("b.jpg", 20),
		jpeg("c.jpg", 30),
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	decoded := reg.Decodes()
	if decoded != 3 {
		t.Fatalf("prepare decoded %d images, want 3", decoded)
	}

	rep, err := in.List.Commit(b)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := reg.Decodes(); got != decoded {
		t.Fatalf("commit decoded %d images", got-decoded)
	}
	if rep.Accepted != 3 || reg.LiveCount() != 3 {
		t.Fatalf("unexpected commit: %+v live=%d", rep, reg.LiveCount())
	}
	if out := in.List.Snapshot()[0].Preview.Render(4, 2); strings.Contains(out, "░") {
		t.Fatalf("decodable image rendered as placeholder: %q", out)
	}
}

func TestCommit_DropsItemsAddedSincePrepare(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	b, err := in.Prepare(context.Background(), in.List.Keys(), []RawFile{jpeg("a.jpg", 1), jpeg("b.jpg", 2)})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := in.AddFiles(context.Background(), []RawFile{jpeg("a.jpg", 1)}); err != nil {
		t.Fatalf("add: %v", err)
	}

	rep, err := in.List.Commit(b)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if rep.Accepted != 1 || rep.Duplicates != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if in.List.Len() != 2 || in.List.Previews().LiveCount() != 2 {
		t.Fatalf("len=%d live=%d", in.List.Len(), in.List.Previews().LiveCount())
	}
}

func TestAddFiles_RejectsNonImages(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	rep, err := in.AddFiles(context.Background(), []RawFile{
		{Name: "notes.txt", Data: []byte("hello world")},
		jpeg("ok.jpg", 50),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rep.TypeRejected != 1 || rep.Accepted != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	_, err = in.AddFiles(context.Background(), []RawFile{{Name: "a.pdf", MediaType: "application/pdf", Data: []byte("%PDF")}})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for a batch with no images, got %v", err)
	}
}

func TestAddFiles_NonImagesDoNotCountTowardCap(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	var batch []RawFile
	for i := 0; i < 10; i++ {
		batch = append(batch, jpeg(fmt.Sprintf("%d.jpg", i), 10+i))
	}
	batch = append(batch, RawFile{Name: "readme.txt", MediaType: "text/plain", Data: []byte("x")})
	if _, err := in.AddFiles(context.Background(), batch); err != nil {
		t.Fatalf("add: %v", err)
	}
	if in.List.Len() != MaxItems {
		t.Fatalf("expected %d items, got %d", MaxItems, in.List.Len())
	}
}

func TestAddFiles_PerFileCompressionFailure(t *testing.T) {
	t.Parallel()

	boom := &compress.DecodeError{Err: errors.New("bad header")}
	fc := &fakeCompressor{fail: map[int]error{3 * compress.MB: boom}}
	in := newIntake(fc)
	rep, err := in.AddFiles(context.Background(), []RawFile{
		jpeg("broken.jpg", 3*compress.MB),
		jpeg("fine.jpg", 4*compress.MB),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rep.Accepted != 1 || len(rep.Failures) != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	var ce *CompressionError
	if !errors.As(rep.Failures[0].Err, &ce) || ce.Name != "broken.jpg" {
		t.Fatalf("expected CompressionError for broken.jpg, got %v", rep.Failures[0].Err)
	}
	var de *compress.DecodeError
	if !errors.As(rep.Failures[0].Err, &de) {
		t.Fatalf("expected wrapped DecodeError, got %v", rep.Failures[0].Err)
	}
}

func TestList_PreviewHandlesTrackItems(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	if _, err := in.AddFiles(context.Background(), []RawFile{jpeg("a.jpg", 1), jpeg("b.jpg", 2), jpeg("c.jpg", 3)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	reg := in.List.Previews()
	if reg.LiveCount() != 3 {
		t.Fatalf("expected 3 live previews, got %d", reg.LiveCount())
	}

	items := in.List.Snapshot()
	if !in.List.Remove(items[1].ID) {
		t.Fatalf("remove returned false")
	}
	if items[1].Preview.Live() {
		t.Fatalf("removed item's preview still live")
	}
	if reg.LiveCount() != 2 {
		t.Fatalf("expected 2 live previews, got %d", reg.LiveCount())
	}
	if in.List.Remove(items[1].ID) {
		t.Fatalf("removing twice should report false")
	}

	if n := in.List.Clear(); n != 2 {
		t.Fatalf("clear removed %d, want 2", n)
	}
	if reg.LiveCount() != 0 {
		t.Fatalf("expected no live previews, got %d", reg.LiveCount())
	}

	// ids are never reused
	if _, err := in.AddFiles(context.Background(), []RawFile{jpeg("d.jpg", 4)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := in.List.Snapshot()[0].ID; got <= items[2].ID {
		t.Fatalf("id %d reused or decreased (last was %d)", got, items[2].ID)
	}
}

func TestList_SetDesign(t *testing.T) {
	t.Parallel()

	in := newIntake(&fakeCompressor{})
	if _, err := in.AddFiles(context.Background(), []RawFile{jpeg("a.jpg", 1)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	id := in.List.Snapshot()[0].ID
	if !in.List.SetDesign(id, "101") {
		t.Fatalf("set design failed")
	}
	if it, _ := in.List.Get(id); it.Design != "101" {
		t.Fatalf("design = %q", it.Design)
	}
	if in.List.SetDesign(id+100, "x") {
		t.Fatalf("set design on unknown id should fail")
	}
}

func TestDetectMediaType(t *testing.T) {
	t.Parallel()

	pngMagic := []byte("\x89PNG\r\n\x1a\n0000000000")
	tests := []struct {
		name     string
		file     string
		data     []byte
		declared string
		want     string
	}{
		{name: "declared wins", file: "x.bin", declared: "image/png; charset=binary", want: "image/png"},
		{name: "sniffed", file: "x.bin", data: pngMagic, want: "image/png"},
		{name: "extension fallback", file: "photo.WEBP", data: []byte{0, 1, 2}, want: "image/webp"},
		{name: "text", file: "notes.txt", data: []byte("plain text"), want: "text/plain"},
		{name: "unknown", file: "blob", data: nil, want: "application/octet-stream"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectMediaType(tt.file, tt.data, tt.declared); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "saree one.jpg")
	if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := FromPaths([]string{p, " "})
	if err != nil {
		t.Fatalf("from paths: %v", err)
	}
	if len(got) != 1 || got[0].Name != "saree one.jpg" || string(got[0].Data) != "data" {
		t.Fatalf("unexpected: %+v", got)
	}
	if _, err := FromPaths([]string{dir}); err == nil {
		t.Fatalf("expected error for directory")
	}
	if _, err := FromPaths([]string{filepath.Join(dir, "missing.jpg")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSplitPaths(t *testing.T) {
	t.Parallel()

	got := SplitPaths(`/tmp/a.jpg '/tmp/b c.jpg' /tmp/d\ e.png "/tmp/f.jpg"`)
	want := []string{"/tmp/a.jpg", "/tmp/b c.jpg", "/tmp/d e.png", "/tmp/f.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}
