package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_sweep_runs_total",
		Help: "Overdue sweeps attempted.",
	})
	sweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_sweep_failures_total",
		Help: "Overdue sweeps that returned an error.",
	})
	sweepMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_sweep_marked_total",
		Help: "Reservations moved to OVERDUE by the sweeper.",
	})
	reservationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_transitions_total",
		Help: "Committed reservation transitions by target status.",
	}, []string{"status"})
)
