package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoginFailuresRecorded prometheus.Counter
	LockoutDenials        prometheus.Counter
	OriginDenials         prometheus.Counter
	AttemptsSweptTotal    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		LoginFailuresRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_ratelimit_login_failures_recorded_total",
			Help: "Total number of failed login attempts recorded in the ledger",
		}),
		LockoutDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_ratelimit_lockout_denials_total",
			Help: "Total number of login attempts denied by identity lockout",
		}),
		OriginDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_ratelimit_origin_denials_total",
			Help: "Total number of requests denied by the per-origin budget",
		}),
		AttemptsSweptTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_ratelimit_attempts_swept_total",
			Help: "Total number of attempt ledger rows removed by retention sweeps",
		}),
	}
}

func (m *Metrics) IncrementLoginFailures() {
	if m == nil {
		return
	}
	m.LoginFailuresRecorded.Inc()
}

func (m *Metrics) IncrementLockoutDenials() {
	if m == nil {
		return
	}
	m.LockoutDenials.Inc()
}

func (m *Metrics) IncrementOriginDenials() {
	if m == nil {
		return
	}
	m.OriginDenials.Inc()
}

func (m *Metrics) AddAttemptsSwept(count int) {
	if m == nil {
		return
	}
	m.AttemptsSweptTotal.Add(float64(count))
}
