/*
Package monitoring provides Prometheus metrics for the worker tree.

# Overview

Each run owns a private registry. Nothing is served over the network; when a
metrics file is configured the registry is written once at the end of the
run in the text exposition format.

# Metrics

  - forktree_workers_spawned_total
  - forktree_workers{state}
  - forktree_worker_exits_total{outcome}
  - forktree_scan_duration_seconds
  - forktree_elements_scanned_total
  - forktree_dispositions_total{rule}
  - forktree_anomalies_total{expected,got}
  - forktree_interrupts_total
  - forktree_hidden_total, forktree_global_max, forktree_run_duration_seconds

# Usage

	metrics := monitoring.NewMetrics()
	metrics.RecordDisposition("continue")
	_ = metrics.WriteTextfile("forktree.prom")
*/
package monitoring
