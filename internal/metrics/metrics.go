package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks live per-game session processes
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "keyclue_active_sessions",
		Help: "Number of active game session processes.",
	})

	// SessionTicks counts processed round timer ticks
	SessionTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyclue_session_ticks_total",
		Help: "Total round timer ticks processed.",
	})

	// KeywordReveals counts keyword clues revealed to players
	KeywordReveals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyclue_keyword_reveals_total",
		Help: "Total keyword clues revealed.",
	})

	// RoundTimeouts counts rounds that ran out their reveal timeline
	RoundTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyclue_round_timeouts_total",
		Help: "Total rounds finished by timeout.",
	})

	// HostCleanups counts games torn down after a genuine host disconnect
	HostCleanups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyclue_host_cleanups_total",
		Help: "Total games cleaned up after host disconnect.",
	})

	// PresenceFlickers counts host absences absorbed by the debounce window
	PresenceFlickers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyclue_presence_flickers_total",
		Help: "Total host presence drops that recovered within the debounce window.",
	})
)
