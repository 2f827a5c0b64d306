// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlscap_process_runs_total",
		Help: "External tool runs by tool and result",
	}, []string{"tool", "result"})

	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlscap_proc_terminate_total",
		Help: "Signals sent while tearing down process groups",
	}, []string{"tool", "signal", "result"})
)

// IncProcessRun records an external tool run.
func IncProcessRun(tool, result string) {
	processRuns.WithLabelValues(tool, result).Inc()
}

// IncProcTerminate records a termination signal and whether it was delivered.
func IncProcTerminate(tool, signal, result string) {
	procTerminate.WithLabelValues(tool, signal, result).Inc()
}
