package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: 60, B: uint8(y * 30), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestRegistry_ReleaseAccounting(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	a := reg.Create(testPNG(t))
	b := reg.Create([]byte("not an image"))
	if reg.LiveCount() != 2 || !a.Live() || !b.Live() || a.ID() == b.ID() {
		t.Fatalf("unexpected state: live=%d a=%v b=%v", reg.LiveCount(), a.Live(), b.Live())
	}

	if err := reg.Release(a); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := reg.Release(a); err == nil {
		t.Fatalf("expected double release to fail")
	}
	if err := NewRegistry().Release(b); err == nil {
		t.Fatalf("expected foreign release to fail")
	}
	if a.Live() || reg.LiveCount() != 1 {
		t.Fatalf("a should be released; live=%d", reg.LiveCount())
	}
}

func TestHandle_RenderSize(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	h := reg.Create(testPNG(t))
	out := h.Render(10, 4)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	for i, l := range lines {
		if w := xansi.StringWidth(l); w != 10 {
			t.Fatalf("line %d width = %d, want 10", i, w)
		}
	}

	_ = reg.Release(h)
	if got := h.Render(3, 2); got != "░░░\n░░░" {
		t.Fatalf("released handle should render a placeholder, got %q", got)
	}
	if got := h.Render(0, 2); got != "" {
		t.Fatalf("zero width should render nothing, got %q", got)
	}
}

func TestRegistry_AdoptDoesNotDecode(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	thumb := reg.Thumbnail(testPNG(t))
	if thumb == nil || reg.Decodes() != 1 {
		t.Fatalf("thumbnail: img=%v decodes=%d", thumb, reg.Decodes())
	}
	if b := thumb.Bounds(); b.Dx() > reg.Side || b.Dy() > reg.Side {
		t.Fatalf("thumbnail %v larger than %d", b, reg.Side)
	}
	h := reg.Adopt(thumb)
	if reg.Decodes() != 1 || !h.Live() || reg.LiveCount() != 1 {
		t.Fatalf("adopt: decodes=%d live=%d", reg.Decodes(), reg.LiveCount())
	}
	if reg.Thumbnail([]byte("not an image")) != nil {
		t.Fatalf("expected nil thumbnail for undecodable data")
	}
}

func TestHandle_RenderCachedPerSize(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	h := reg.Create(testPNG(t))
	first := h.Render(10, 4)
	if again := h.Render(10, 4); again != first {
		t.Fatalf("cached render differs")
	}
	if h.renders != 1 {
		t.Fatalf("renders = %d after two draws at one size, want 1", h.renders)
	}
	h.Render(6, 3)
	if h.renders != 2 {
		t.Fatalf("renders = %d after resize, want 2", h.renders)
	}

	_ = reg.Release(h)
	if got := h.Render(6, 3); got != strings.Repeat("░", 6)+"\n"+strings.Repeat("░", 6)+"\n"+strings.Repeat("░", 6) {
		t.Fatalf("released handle served a stale render: %q", got)
	}
}
