package upload

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"photomaker/internal/store"
)

// Chain calls each non-nil observer in order.
func Chain(obs ...Observer) Observer {
	return func(p Payload, out Outcome, took time.Duration) {
		for _, o := range obs {
			if o != nil {
				o(p, out, took)
			}
		}
	}
}

// Submission converts a finished attempt into a history row.
func Submission(server string, p Payload, out Outcome) *store.Submission {
	sub := &store.Submission{
		Server:  server,
		Catalog: p.Catalog,
		State:   out.State.String(),
		Files:   len(p.Files),
	}
	if out.Err != nil {
		sub.Error = out.Err.Error()
	}
	if out.Results != nil {
		sub.Succeeded, sub.Failed = out.Results.Counts()
		if b, err := json.Marshal(out.Results.Items); err == nil {
			sub.Results = b
		}
	}
	return sub
}

// HistoryObserver records every finished submission in st. Write failures are logged only.
func HistoryObserver(st store.Store, server string) Observer {
	return func(p Payload, out Outcome, _ time.Duration) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.AppendSubmission(ctx, Submission(server, p, out)); err != nil {
			slog.Warn("Could not record submission", "err", err)
		}
	}
}
