package metrics

import "github.com/prometheus/client_golang/prometheus"

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// AuthMetrics counts authentication events.
type AuthMetrics struct {
	logins       *prometheus.CounterVec
	resetTokens  prometheus.Counter
	mailFailures prometheus.Counter
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	if reg == nil {
		return &AuthMetrics{}
	}
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
	resetTokens := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_password_reset_tokens_total",
		Help: "Password reset tokens issued.",
	})
	mailFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_mail_failures_total",
		Help: "Auth emails that could not be handed off.",
	})
	reg.MustRegister(logins, resetTokens, mailFailures)
	return &AuthMetrics{logins: logins, resetTokens: resetTokens, mailFailures: mailFailures}
}

func (m *AuthMetrics) IncLogin(outcome string) {
	if m == nil || m.logins == nil {
		return
	}
	m.logins.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *AuthMetrics) IncResetToken() {
	if m == nil || m.resetTokens == nil {
		return
	}
	m.resetTokens.Inc()
}

func (m *AuthMetrics) IncMailFailure() {
	if m == nil || m.mailFailures == nil {
		return
	}
	m.mailFailures.Inc()
}
