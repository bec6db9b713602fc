package instrumentation

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cristalhq/hedgedhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "colscan",
		Name:      "backend_request_duration_seconds",
		Help:      "Time spent doing backend requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
	}, []string{"operation", "status_code"})

	hedgedMtx   sync.Mutex
	hedgedStats []*hedgedhttp.Stats

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "backend_hedged_roundtrips_total",
		Help:      "Total number of hedged backend requests.",
	}, hedgedRoundTrips)
)

type instrumentedTransport struct {
	observer prometheus.ObserverVec
	next     http.RoundTripper
}

// NewTransport records the duration of every request made through next.
func NewTransport(next http.RoundTripper) http.RoundTripper {
	return instrumentedTransport{
		observer: requestDuration,
		next:     next,
	}
}

func (i instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := i.next.RoundTrip(req)
	status := "500"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	i.observer.WithLabelValues(req.Method, status).Observe(time.Since(start).Seconds())
	return resp, err
}

// Hedge wraps next so that a request still pending after at is sent again, up
// to upTo times. An at of 0 disables hedging.
func Hedge(next http.RoundTripper, at time.Duration, upTo int) (http.RoundTripper, error) {
	if at == 0 {
		return next, nil
	}
	rt, stats, err := hedgedhttp.NewRoundTripperAndStats(at, upTo, next)
	if err != nil {
		return nil, err
	}
	publishHedgedMetrics(stats)
	return rt, nil
}

func publishHedgedMetrics(s *hedgedhttp.Stats) {
	hedgedMtx.Lock()
	defer hedgedMtx.Unlock()
	hedgedStats = append(hedgedStats, s)
}

func hedgedRoundTrips() float64 {
	hedgedMtx.Lock()
	defer hedgedMtx.Unlock()

	var total int64
	for _, s := range hedgedStats {
		snap := s.Snapshot()
		if n := int64(snap.ActualRoundTrips) - int64(snap.RequestedRoundTrips); n > 0 {
			total += n
		}
	}
	return float64(total)
}
