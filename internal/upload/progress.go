package upload

import "time"

// Stage is one named step of the cosmetic progress animation.
type Stage struct {
	Name string
	From int
	To   int
}

// Stages advance in order with increasing percent bounds. They say nothing about real progress.
var Stages = []Stage{
	{Name: "Preparing images", From: 0, To: 15},
	{Name: "Uploading", From: 15, To: 40},
	{Name: "Removing backgrounds", From: 40, To: 70},
	{Name: "Applying branding", From: 70, To: 85},
	{Name: "Saving to Drive", From: 85, To: 95},
}

// ProgressInterval is the animation tick.
const ProgressInterval = 250 * time.Millisecond

// Progress simulates a progress bar. Tick advances within the current stage and moves to the
// next stage at its upper bound; it never passes the last stage's bound until Complete.
type Progress struct {
	stage   int
	percent int
	done    bool
}

func NewProgress() *Progress {
	return &Progress{percent: Stages[0].From}
}

// Tick advances one step and reports whether anything changed.
func (p *Progress) Tick() bool {
	if p.done {
		return false
	}
	s := Stages[p.stage]
	if p.percent >= s.To {
		if p.stage == len(Stages)-1 {
			return false
		}
		p.stage++
		s = Stages[p.stage]
	}
	step := max(1, (s.To-s.From)/6)
	p.percent = min(s.To, p.percent+step)
	return true
}

// Complete jumps to 100%.
func (p *Progress) Complete() {
	p.done = true
	p.stage = len(Stages) - 1
	p.percent = 100
}

func (p *Progress) Done() bool { return p.done }

func (p *Progress) Percent() int { return p.percent }

// Fraction is Percent as 0..1 for progress bars.
func (p *Progress) Fraction() float64 { return float64(p.percent) / 100 }

func (p *Progress) Label() string {
	if p.done {
		return "Done"
	}
	return Stages[p.stage].Name
}
