package store

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"easel/internal/artifact"
)

// Observer captures telemetry for store operations.
type Observer interface {
	RecordCreate(kind artifact.Kind)
	RecordApply(part artifact.PartType, duration time.Duration, err error)
	RecordDelete()
}

// PrometheusObserver exports store metrics to Prometheus.
type PrometheusObserver struct {
	applyDuration *prometheus.HistogramVec
	applyRejected *prometheus.CounterVec
	creates       *prometheus.CounterVec
	liveDocuments prometheus.Gauge
}

// NewPrometheusObserver registers create/apply/delete metrics.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "artifact_store"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_duration_seconds",
			Help:      "Latency for applying one stream part.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"part"}),
		applyRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_rejected_total",
			Help:      "Count of stream parts rejected by the interpreter.",
		}, []string{"part"}),
		creates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_created_total",
			Help:      "Count of documents created, by kind.",
		}, []string{"kind"}),
		liveDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents_live",
			Help:      "Number of documents currently held in memory.",
		}),
	}
	register := func(c prometheus.Collector) (prometheus.Collector, error) {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				// Reuse the collector from an earlier construction instead of
				// recording into an unregistered duplicate.
				return are.ExistingCollector, nil
			}
			return nil, fmt.Errorf("register store metric: %w", err)
		}
		return c, nil
	}

	c, err := register(observer.applyDuration)
	if err != nil {
		return nil, err
	}
	observer.applyDuration = c.(*prometheus.HistogramVec)

	c, err = register(observer.applyRejected)
	if err != nil {
		return nil, err
	}
	observer.applyRejected = c.(*prometheus.CounterVec)

	c, err = register(observer.creates)
	if err != nil {
		return nil, err
	}
	observer.creates = c.(*prometheus.CounterVec)

	c, err = register(observer.liveDocuments)
	if err != nil {
		return nil, err
	}
	observer.liveDocuments = c.(prometheus.Gauge)

	return observer, nil
}

// RecordCreate tracks document creation by kind.
func (o *PrometheusObserver) RecordCreate(kind artifact.Kind) {
	if o == nil {
		return
	}
	o.creates.WithLabelValues(string(kind)).Inc()
	o.liveDocuments.Inc()
}

// RecordApply tracks apply latency and rejections.
func (o *PrometheusObserver) RecordApply(part artifact.PartType, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.applyDuration.WithLabelValues(string(part)).Observe(duration.Seconds())
	if err != nil {
		o.applyRejected.WithLabelValues(string(part)).Inc()
	}
}

func (o *PrometheusObserver) RecordDelete() {
	if o == nil {
		return
	}
	o.liveDocuments.Dec()
}

type nopObserver struct{}

func (nopObserver) RecordCreate(artifact.Kind) {}

func (nopObserver) RecordApply(artifact.PartType, time.Duration, error) {}

func (nopObserver) RecordDelete() {}
