package upload

import (
	"context"
	"time"

	"photomaker/internal/intake"
)

// Observer is told about every finished submission.
type Observer func(p Payload, out Outcome, took time.Duration)

// Submitter runs Begin, Send and Finish in one call for non-interactive use.
type Submitter struct {
	Machine *Machine
	Sender  Sender
	Observe Observer
}

func NewSubmitter(s Sender) *Submitter {
	return &Submitter{Machine: &Machine{}, Sender: s}
}

// Submit sends the list's current snapshot. Validation and in-flight refusals come back as the
// error; everything after the request was issued is described by the Outcome.
func (s *Submitter) Submit(ctx context.Context, catalog string, list *intake.List) (Outcome, error) {
	p, err := s.Machine.Begin(catalog, list.Snapshot())
	if err != nil {
		return Outcome{}, err
	}
	start := time.Now()
	reply, sendErr := s.Sender.Send(ctx, p)
	out := s.Machine.Finish(reply, sendErr)
	if s.Observe != nil {
		s.Observe(p, out, time.Since(start))
	}
	s.Machine.Reset()
	return out, nil
}
