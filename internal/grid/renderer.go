package grid

import (
	"log/slog"
	"strings"

	"photomaker/internal/intake"
)

// DefaultBatchSize is how many cards one frame tick places.
const DefaultBatchSize = 4

// Renderer keeps a Container consistent with snapshots of the item list.
type Renderer struct {
	Metrics   Metrics
	BatchSize int

	list      DesignWriter
	container *Container
	snapshot  []intake.Item
	layout    Layout
	columns   int
	watermark int

	relayouts int
}

func NewRenderer(list DesignWriter, m Metrics) *Renderer {
	return &Renderer{
		Metrics:   m,
		BatchSize: DefaultBatchSize,
		list:      list,
		container: NewContainer(),
	}
}

func (r *Renderer) Container() *Container { return r.container }
func (r *Renderer) Layout() Layout        { return r.layout }
func (r *Renderer) Watermark() int        { return r.watermark }

// Relayouts counts structural relayouts since construction.
func (r *Renderer) Relayouts() int { return r.relayouts }

// Pending reports whether items past the watermark still need cards.
func (r *Renderer) Pending() bool { return r.watermark < len(r.snapshot) }

// Sync adopts a new snapshot and viewport width. It clears the container and resets the
// watermark when the column count changed, the list shrank, or an item below the watermark is
// no longer the one its card was built for. It returns Pending().
func (r *Renderer) Sync(snapshot []intake.Item, viewportWidth int) bool {
	cols := r.Metrics.Columns(viewportWidth)
	if r.needsRelayout(snapshot, cols) {
		slog.Debug("Grid relayout", "columns", cols, "items", len(snapshot), "watermark", r.watermark)
		r.container.Clear()
		r.watermark = 0
		r.relayouts++
	}
	r.columns = cols
	r.snapshot = snapshot
	r.layout = ComputeLayout(viewportWidth, len(snapshot), r.Metrics)

	// Cards below the watermark keep their identity; refresh what they display.
	for i := 0; i < r.watermark; i++ {
		if c, ok := r.container.Card(snapshot[i].ID); ok {
			c.Item = snapshot[i]
		}
	}
	return r.Pending()
}

func (r *Renderer) needsRelayout(snapshot []intake.Item, cols int) bool {
	if cols != r.columns {
		return true
	}
	if len(snapshot) < len(r.snapshot) {
		return true
	}
	for i := 0; i < r.watermark && i < len(snapshot); i++ {
		if snapshot[i].ID != r.snapshot[i].ID {
			return true
		}
	}
	return false
}

// Step places cards for items [watermark, min(watermark+BatchSize, len)) and returns how many
// it placed. The watermark never passes the snapshot length.
func (r *Renderer) Step() int {
	n := r.BatchSize
	if n <= 0 {
		n = DefaultBatchSize
	}
	end := min(r.watermark+n, len(r.snapshot))
	placed := 0
	for i := r.watermark; i < end; i++ {
		it := r.snapshot[i]
		card := &Card{ID: it.ID, Item: it, Pos: r.layout.Positions[i], list: r.list}
		if err := r.container.Place(card); err != nil {
			slog.Warn("Grid placement skipped", "item", it.ID, "err", err)
			continue
		}
		placed++
	}
	r.watermark = end
	return placed
}

// Flush steps until nothing is pending.
func (r *Renderer) Flush() {
	for r.Pending() {
		r.Step()
	}
}

// View draws the height lines starting at content line top. Only rows intersecting that window
// are drawn, and only cards already placed appear. draw renders one card's content; it is fitted
// to the card size.
func (r *Renderer) View(top, height int, draw func(index int, c *Card) string) string {
	if height <= 0 {
		return ""
	}
	m := r.Metrics
	width := r.layout.Width()
	blank := strings.Repeat(" ", width)
	rowLines := map[int][]string{}

	lines := make([]string, height)
	for j := range lines {
		y := top + j
		lines[j] = blank
		if y < m.Gap || r.layout.Rows == 0 {
			continue
		}
		row := (y - m.Gap) / (m.CardHeight + m.Gap)
		within := (y - m.Gap) % (m.CardHeight + m.Gap)
		if row >= r.layout.Rows || within >= m.CardHeight {
			continue
		}
		rl, ok := rowLines[row]
		if !ok {
			rl = r.drawRow(row, draw)
			rowLines[row] = rl
		}
		lines[j] = rl[within]
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) drawRow(row int, draw func(int, *Card) string) []string {
	m := r.Metrics
	gap := strings.Repeat(" ", m.Gap)
	empty := strings.Split(Fit("", m.CardWidth, m.CardHeight), "\n")

	b := make([]strings.Builder, m.CardHeight)
	for k := range b {
		b[k].WriteString(gap)
	}
	for col := 0; col < r.layout.Columns; col++ {
		i := row*r.layout.Columns + col
		cell := empty
		if i < r.watermark {
			if c, ok := r.container.Card(r.snapshot[i].ID); ok {
				cell = strings.Split(Fit(draw(i, c), m.CardWidth, m.CardHeight), "\n")
			}
		}
		for k := range b {
			b[k].WriteString(cell[k])
			b[k].WriteString(gap)
		}
	}
	out := make([]string, m.CardHeight)
	for k := range b {
		out[k] = b[k].String()
	}
	return out
}
