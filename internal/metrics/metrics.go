package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinkLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slcreator_link_loads_total",
		Help: "Social link lookups, labelled by result (hit, miss, error).",
	}, []string{"result"})

	LinkSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slcreator_link_saves_total",
		Help: "Social link writes to the store, labelled by status.",
	}, []string{"status"})

	LinkSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slcreator_link_save_duration_ms",
		Help:    "Time to encode and write a whole social link, in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	CachedLinks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slcreator_cached_links",
		Help: "Social links currently held in the workspace cache.",
	})

	Edits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slcreator_edits_total",
		Help: "Editing operations applied, labelled by operation and status.",
	}, []string{"op", "status"})

	NodesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slcreator_nodes_deleted_total",
		Help: "Cutscene nodes removed by deletes and relation cascades.",
	})

	SimulationSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slcreator_simulation_steps_total",
		Help: "Cutscene nodes visited by the simulator.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slcreator_http_requests_total",
		Help: "HTTP requests served, labelled by method and status code.",
	}, []string{"method", "code"})
)
