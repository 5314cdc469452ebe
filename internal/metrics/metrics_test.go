package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photomaker/internal/intake"
	"photomaker/internal/upload"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIntake(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveIntake(intake.Report{
		Accepted:     3,
		Compressed:   2,
		Duplicates:   1,
		TypeRejected: 4,
		Failures:     []intake.Failure{{Name: "x.jpg", Err: errors.New("bad")}},
	})
	if got := testutil.ToFloat64(m.ImagesAdded); got != 3 {
		t.Fatalf("added = %v", got)
	}
	if got := testutil.ToFloat64(m.ImagesCompressed); got != 2 {
		t.Fatalf("compressed = %v", got)
	}
	for reason, want := range map[string]float64{"duplicate": 1, "type": 4, "cap": 0, "compression": 1} {
		if got := testutil.ToFloat64(m.ImagesRejected.WithLabelValues(reason)); got != want {
			t.Fatalf("rejected[%s] = %v, want %v", reason, got, want)
		}
	}
}

func TestObserveSubmission(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveSubmission(upload.Payload{}, upload.Outcome{
		State: upload.Succeeded,
		Results: &upload.Results{Items: []upload.ItemResult{
			{Status: "success"}, {Status: "success"}, {Status: "error"},
		}},
	}, 2*time.Second)
	m.ObserveSubmission(upload.Payload{}, upload.Outcome{State: upload.Failed, Err: &upload.AuthError{}}, time.Second)

	if got := testutil.ToFloat64(m.Submissions.WithLabelValues("succeeded", "")); got != 1 {
		t.Fatalf("succeeded = %v", got)
	}
	if got := testutil.ToFloat64(m.Submissions.WithLabelValues("failed", "auth")); got != 1 {
		t.Fatalf("failed/auth = %v", got)
	}
	if got := testutil.ToFloat64(m.ResultItems.WithLabelValues("success")); got != 2 {
		t.Fatalf("result success = %v", got)
	}
	if n := testutil.CollectAndCount(m.SubmissionDuration); n != 1 {
		t.Fatalf("duration series = %d", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := New()
	m.ImagesAdded.Add(5)
	path := filepath.Join(t.TempDir(), "photomaker.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "photomaker_images_added_total 5") {
		t.Fatalf("textfile missing counter:\n%s", b)
	}
}
