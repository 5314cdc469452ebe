// Package metrics holds the Prometheus collectors for intake, compression, submissions and the
// development server. The CLI writes them to a node-exporter textfile on exit; the dev server
// serves them on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"photomaker/internal/intake"
	"photomaker/internal/upload"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	ImagesAdded        prometheus.Counter
	ImagesRejected     *prometheus.CounterVec
	ImagesCompressed   prometheus.Counter
	Submissions        *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
	ResultItems        *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ImagesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photomaker_images_added_total",
			Help: "Images added to the pending list",
		}),
		ImagesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photomaker_images_rejected_total",
			Help: "Images refused during intake",
		}, []string{"reason"}), // duplicate|type|cap|compression
		ImagesCompressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photomaker_images_compressed_total",
			Help: "Images re-encoded before upload",
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photomaker_submissions_total",
			Help: "Finished submissions by outcome",
		}, []string{"state", "error"}),
		SubmissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "photomaker_submission_duration_seconds",
			Help:    "Time from request to response",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		ResultItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photomaker_result_items_total",
			Help: "Per-image results reported by the backend",
		}, []string{"status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photomaker_devserver_http_requests_total",
			Help: "Requests served by the development server",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photomaker_devserver_http_request_duration_seconds",
			Help:    "Development server request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.Registry.MustRegister(
		m.ImagesAdded,
		m.ImagesRejected,
		m.ImagesCompressed,
		m.Submissions,
		m.SubmissionDuration,
		m.ResultItems,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// ObserveIntake records one AddFiles report.
func (m *Metrics) ObserveIntake(rep intake.Report) {
	m.ImagesAdded.Add(float64(rep.Accepted))
	m.ImagesCompressed.Add(float64(rep.Compressed))
	m.ImagesRejected.WithLabelValues("duplicate").Add(float64(rep.Duplicates))
	m.ImagesRejected.WithLabelValues("type").Add(float64(rep.TypeRejected))
	m.ImagesRejected.WithLabelValues("cap").Add(float64(rep.CapRejected))
	m.ImagesRejected.WithLabelValues("compression").Add(float64(len(rep.Failures)))
}

// ObserveSubmission records a finished submission. It matches upload.Observer.
func (m *Metrics) ObserveSubmission(_ upload.Payload, out upload.Outcome, took time.Duration) {
	m.Submissions.WithLabelValues(out.State.String(), errorKind(out.Err)).Inc()
	m.SubmissionDuration.Observe(took.Seconds())
	if out.Results != nil {
		for _, it := range out.Results.Items {
			m.ResultItems.WithLabelValues(it.Status).Inc()
		}
	}
}

func errorKind(err error) string {
	switch err.(type) {
	case nil:
		return ""
	case *upload.AuthError:
		return "auth"
	case *upload.NetworkError:
		return "network"
	case *upload.ServerError:
		return "server"
	}
	return "other"
}

// WriteTextfile writes every collector in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
