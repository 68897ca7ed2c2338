package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(sendsTotal, floodWaitsTotal, herderActionsTotal, factoryAccountsTotal, aiCallsTotal)
}

var sendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleet_sends_total",
		Help: "Campaign send attempts, labeled by outcome kind.",
	},
	[]string{"outcome"}, // 'success', 'flood_wait', 'privacy_restricted', ...
)

var floodWaitsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "fleet_flood_waits_total",
		Help: "Total flood_wait responses across all accounts.",
	},
)

var herderActionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleet_herder_actions_total",
		Help: "Herder action-chain steps executed, labeled by kind.",
	},
	[]string{"kind"}, // 'read', 'react', 'comment', 'save'
)

var factoryAccountsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleet_factory_accounts_total",
		Help: "Accounts the factory attempted to create, by result.",
	},
	[]string{"result"}, // 'created', 'failed'
)

var aiCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleet_ai_calls_total",
		Help: "LLM calls, labeled by task and success.",
	},
	[]string{"task", "success"},
)

func IncSend(outcome string) { sendsTotal.WithLabelValues(norm(outcome)).Inc() }

func IncFloodWait() { floodWaitsTotal.Inc() }

func IncHerderAction(kind string) { herderActionsTotal.WithLabelValues(norm(kind)).Inc() }

func IncFactoryAccount(result string) { factoryAccountsTotal.WithLabelValues(norm(result)).Inc() }

func IncAICall(task string, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	aiCallsTotal.WithLabelValues(norm(task), s).Inc()
}
