package host

import (
	"github.com/gofmu/gofmu/fmi"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts host activity per instance. A nil *Metrics records nothing.
type Metrics struct {
	Steps    *prometheus.CounterVec
	Retries  *prometheus.CounterVec
	SimTime  *prometheus.GaugeVec
	Failures *prometheus.CounterVec
}

// NewMetrics creates the host collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gofmu",
			Name:      "steps_total",
			Help:      "Communication steps completed, by instance and step status.",
		}, []string{"instance", "status"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gofmu",
			Name:      "step_retries_total",
			Help:      "Discarded steps retried with a smaller step size.",
		}, []string{"instance"}),
		SimTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gofmu",
			Name:      "simulation_time_seconds",
			Help:      "Communication point reached by the instance.",
		}, []string{"instance"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gofmu",
			Name:      "instance_failures_total",
			Help:      "Runs that ended without terminating cleanly, by final status.",
		}, []string{"instance", "status"}),
	}
	for _, c := range []prometheus.Collector{m.Steps, m.Retries, m.SimTime, m.Failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) step(instance string, status fmi.Status, t float64) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(instance, status.String()).Inc()
	m.SimTime.WithLabelValues(instance).Set(t)
}

func (m *Metrics) retry(instance string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(instance).Inc()
}

func (m *Metrics) finish(res *Result) {
	if m == nil || res.State == fmi.StateTerminated {
		return
	}
	m.Failures.WithLabelValues(res.Instance, res.Status.String()).Inc()
}
