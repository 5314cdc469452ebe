// Package grid keeps a virtualized card grid consistent with the intake item list.
//
// Units are terminal cells. Cards are placed incrementally: a Renderer tracks a watermark of how
// many list items already have a card, appends cards for new items in bounded batches (one batch
// per frame tick) and falls back to a structural relayout when earlier positions became invalid.
package grid

// Metrics are the fixed card dimensions in cells.
type Metrics struct {
	CardWidth  int
	CardHeight int
	Gap        int
}

// DefaultMetrics fits a 24x12 half-block thumbnail plus a title and the design field.
var DefaultMetrics = Metrics{CardWidth: 30, CardHeight: 16, Gap: 1}

// Point is a cell offset from the top-left of the grid content.
type Point struct {
	X, Y int
}

// Layout is derived state and is never persisted.
type Layout struct {
	Metrics   Metrics
	Columns   int
	Rows      int
	Height    int
	Positions []Point
}

// Columns returns max(1, floor((width+gap)/(cardWidth+gap))).
func (m Metrics) Columns(viewportWidth int) int {
	step := m.CardWidth + m.Gap
	if step <= 0 {
		return 1
	}
	cols := (viewportWidth + m.Gap) / step
	if cols < 1 {
		return 1
	}
	return cols
}

// Position is the offset of the item at sequence index i.
func (m Metrics) Position(i, columns int) Point {
	if columns < 1 {
		columns = 1
	}
	col := i % columns
	row := i / columns
	return Point{
		X: m.Gap + col*(m.CardWidth+m.Gap),
		Y: m.Gap + row*(m.CardHeight+m.Gap),
	}
}

// ComputeLayout lays out n items for the given viewport width. Zero items have zero height.
func ComputeLayout(viewportWidth, n int, m Metrics) Layout {
	l := Layout{Metrics: m, Columns: m.Columns(viewportWidth)}
	if n <= 0 {
		return l
	}
	l.Rows = (n + l.Columns - 1) / l.Columns
	l.Height = l.Rows*(m.CardHeight+m.Gap) + m.Gap
	l.Positions = make([]Point, n)
	for i := range l.Positions {
		l.Positions[i] = m.Position(i, l.Columns)
	}
	return l
}

// Width is the content width actually used by the columns.
func (l Layout) Width() int {
	if l.Columns == 0 {
		return 0
	}
	return l.Columns*(l.Metrics.CardWidth+l.Metrics.Gap) + l.Metrics.Gap
}

// RowOf is the row holding sequence index i.
func (l Layout) RowOf(i int) int {
	if l.Columns < 1 {
		return 0
	}
	return i / l.Columns
}
