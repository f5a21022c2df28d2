package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for auth operations.
type Metrics struct {
	UsersRegistered prometheus.Counter
	LoginSuccesses  prometheus.Counter
	LoginFailures   prometheus.Counter
	CaptchaRejected prometheus.Counter
	TokensRevoked   prometheus.Counter
}

// New registers and returns auth metrics collectors.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_users_registered_total",
			Help: "Total number of accounts created",
		}),
		LoginSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_login_successes_total",
			Help: "Total number of successful logins",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_login_failures_total",
			Help: "Total number of failed login attempts",
		}),
		CaptchaRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_captcha_rejected_total",
			Help: "Total number of requests rejected by captcha verification",
		}),
		TokensRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "famledger_tokens_revoked_total",
			Help: "Total number of tokens added to the revocation blacklist",
		}),
	}
}

// IncUsersRegistered increments safely when metrics are optional.
func (m *Metrics) IncUsersRegistered() {
	if m != nil && m.UsersRegistered != nil {
		m.UsersRegistered.Inc()
	}
}

func (m *Metrics) IncLoginSuccesses() {
	if m != nil && m.LoginSuccesses != nil {
		m.LoginSuccesses.Inc()
	}
}

func (m *Metrics) IncLoginFailures() {
	if m != nil && m.LoginFailures != nil {
		m.LoginFailures.Inc()
	}
}

func (m *Metrics) IncCaptchaRejected() {
	if m != nil && m.CaptchaRejected != nil {
		m.CaptchaRejected.Inc()
	}
}

func (m *Metrics) IncTokensRevoked() {
	if m != nil && m.TokensRevoked != nil {
		m.TokensRevoked.Inc()
	}
}
