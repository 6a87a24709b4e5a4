package metrics

import "github.com/prometheus/client_golang/prometheus"

// Resultados de login.
const (
	LoginSuccess       = "success"
	LoginNotRegistered = "not_registered"
	LoginNotVerified   = "not_verified"
	LoginInvalid       = "invalid_credentials"
	LoginAlreadyOnline = "already_logged_in"
	LoginError         = "error"
)

// Motivos de logout.
const (
	LogoutUser  = "user"
	LogoutIdle  = "idle"
	LogoutAdmin = "admin"
)

// ActiveSessions refleja el tamaño del registro de sesiones.
var ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "chat_auth_active_sessions",
	Help: "Number of nicknames with an active session token",
})

var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_auth_logins_total",
		Help: "Total number of login attempts by result",
	},
	[]string{"result"},
)

var Logouts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_auth_logouts_total",
		Help: "Total number of logouts by reason",
	},
	[]string{"reason"},
)

var GuestsAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "chat_auth_guests_admitted_total",
	Help: "Total number of guests admitted to the chat",
})

var Sweeps = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "chat_auth_sweeps_total",
	Help: "Total number of idle-session sweeps executed",
})

// RegisterMetrics registra los colectores en el registry dado.
// Entra en panico si alguno ya estaba registrado.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ActiveSessions)
	reg.MustRegister(Logins)
	reg.MustRegister(Logouts)
	reg.MustRegister(GuestsAdmitted)
	reg.MustRegister(Sweeps)
}
