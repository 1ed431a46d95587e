package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPClientMetrics times requests to external APIs
type HTTPClientMetrics struct {
	requestDuration *prometheus.HistogramVec
}

func newHTTPClientMetrics(reg prometheus.Registerer) *HTTPClientMetrics {
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_api_request_duration_seconds",
			Help:      "Duration of external API requests in seconds.",
			Buckets:   []float64{0.005, 0.010, 0.050, 0.100, 0.200, 0.500, 1, 2, 5, 10, 30},
		},
		[]string{"service", "method", "endpoint", "response_code"},
	)

	reg.MustRegister(requestDuration)

	return &HTTPClientMetrics{requestDuration: requestDuration}
}

// Record observes one request. statusCode 0 means no response was received.
func (m *HTTPClientMetrics) Record(duration time.Duration, service, method, endpoint string, statusCode int) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(service, method, endpoint, strconv.Itoa(statusCode)).
		Observe(duration.Seconds())
}
