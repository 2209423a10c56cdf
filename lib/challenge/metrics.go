package challenge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RenderTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glyphgate_render_time",
		Help:    "The time taken to render and encode a captcha image (milliseconds)",
		Buckets: prometheus.ExponentialBucketsRange(0.125, 1024, 14),
	}, []string{"noise"})

	challengesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glyphgate_challenges_issued",
		Help: "The total number of challenges issued",
	})

	challengesValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyphgate_challenges_validated",
		Help: "The total number of verification attempts by verdict",
	}, []string{"verdict"})

	creationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyphgate_creation_failures",
		Help: "The total number of challenges that could not be created",
	}, []string{"reason"})
)

// millis converts d to fractional milliseconds, keeping sub-millisecond
// precision.
func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
