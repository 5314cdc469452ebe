// Package preview owns the small displayable thumbnails shown on item cards.
//
// Every handle is created for exactly one item and must be released when that item leaves the
// list. The registry counts live handles so callers can assert the one-handle-per-item rule.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Handle references one thumbnail. The zero value is not usable.
type Handle struct {
	id  uint64
	reg *Registry

	mu      sync.Mutex
	thumb   image.Image
	cache   rendered
	renders int
}

// rendered is the last drawn thumbnail and the cell size it was drawn at.
type rendered struct {
	width, height int
	out           string
}

func (h *Handle) ID() uint64 {
	if h == nil {
		return 0
	}
	return h.id
}

// Live reports whether the handle has not been released yet.
func (h *Handle) Live() bool {
	if h == nil || h.reg == nil {
		return false
	}
	return h.reg.isLive(h.id)
}

// Render draws the thumbnail as width x height terminal cells using upper half blocks, so each
// cell shows two vertical pixels. Released or undecodable handles render a placeholder. The
// last result is kept, so redrawing at an unchanged size is free.
func (h *Handle) Render(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if h == nil || !h.Live() {
		return placeholder(width, height)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.thumb == nil {
		return placeholder(width, height)
	}
	if h.cache.out != "" && h.cache.width == width && h.cache.height == height {
		return h.cache.out
	}
	h.renders++
	h.cache = rendered{width: width, height: height, out: draw(h.thumb, width, height)}
	return h.cache.out
}

func draw(thumb image.Image, width, height int) string {
	img := imaging.Fit(thumb, width, height*2, imaging.Box)
	b := img.Bounds()
	padX := (width - b.Dx()) / 2

	var sb strings.Builder
	for row := 0; row < height; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat(" ", padX))
		drawn := 0
		for x := 0; x < b.Dx(); x++ {
			yTop := row * 2
			yBot := yTop + 1
			if yTop >= b.Dy() {
				break
			}
			top := hexAt(img, b.Min.X+x, b.Min.Y+yTop)
			st := lipgloss.NewStyle().Foreground(lipgloss.Color(top))
			if yBot < b.Dy() {
				st = st.Background(lipgloss.Color(hexAt(img, b.Min.X+x, b.Min.Y+yBot)))
			}
			sb.WriteString(st.Render("▀"))
			drawn++
		}
		if rest := width - padX - drawn; rest > 0 {
			sb.WriteString(strings.Repeat(" ", rest))
		}
	}
	return sb.String()
}

func hexAt(img image.Image, x, y int) string {
	c, ok := colorful.MakeColor(img.At(x, y))
	if !ok {
		return "#000000"
	}
	return c.Hex()
}

func placeholder(width, height int) string {
	lines := make([]string, height)
	for i := range lines {
		lines[i] = strings.Repeat("░", width)
	}
	return strings.Join(lines, "\n")
}

// Registry issues and releases handles.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	live    map[uint64]bool
	decodes atomic.Int64
	// Side is the longest side of stored thumbnails in pixels.
	Side int
}

func NewRegistry() *Registry {
	return &Registry{live: map[uint64]bool{}, Side: 48}
}

// Thumbnail decodes data and shrinks it to the registry's thumbnail size. It touches no
// registry state beyond a counter, so it is safe to call off the UI loop. Undecodable data
// yields nil.
func (r *Registry) Thumbnail(data []byte) image.Image {
	r.decodes.Add(1)
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil
	}
	side := r.Side
	if side <= 0 {
		side = 48
	}
	return imaging.Fit(img, side, side, imaging.Box)
}

// Adopt registers an already built thumbnail and returns a fresh handle. A nil thumb still
// yields a live handle (rendered as a placeholder) so ownership accounting stays uniform.
func (r *Registry) Adopt(thumb image.Image) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.live[id] = true
	return &Handle{id: id, reg: r, thumb: thumb}
}

// Create is Thumbnail followed by Adopt.
func (r *Registry) Create(data []byte) *Handle {
	return r.Adopt(r.Thumbnail(data))
}

// Decodes is the number of images Thumbnail has decoded.
func (r *Registry) Decodes() int64 { return r.decodes.Load() }

// Release drops a handle. Releasing twice is an error so double-frees surface in tests.
func (r *Registry) Release(h *Handle) error {
	if h == nil {
		return nil
	}
	if h.reg != r {
		return fmt.Errorf("preview: handle %d not owned by this registry", h.id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live[h.id] {
		return fmt.Errorf("preview: handle %d already released", h.id)
	}
	delete(r.live, h.id)
	h.mu.Lock()
	h.thumb = nil
	h.cache = rendered{}
	h.mu.Unlock()
	return nil
}

// LiveCount is the number of handles created and not yet released.
func (r *Registry) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Registry) isLive(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[id]
}
