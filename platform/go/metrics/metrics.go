package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcome label values.
const (
	LoginSuccess           = "success"
	LoginIncorrectPassword = "incorrect_password"
	LoginAccountLocked     = "account_locked"
	LoginUnknownUser       = "unknown_user"
	LoginError             = "error"
)

var (
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_logins_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"result"},
	)

	Lockouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "identity_account_lockouts_total",
			Help: "Total number of accounts locked by the lockout policy",
		},
	)

	PasswordResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "identity_password_resets_total",
			Help: "Total number of temporary credentials issued",
		},
	)
)

// Init registers metrics with Prometheus.
func Init() {
	prometheus.MustRegister(Logins)
	prometheus.MustRegister(Lockouts)
	prometheus.MustRegister(PasswordResets)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
