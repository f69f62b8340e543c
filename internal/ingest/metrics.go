package ingest

import "github.com/ethereum/go-ethereum/metrics"

// Metric names follow the teacher's core/blockchain.go convention
// (component/action, optionally nested) rather than a dotted or
// underscored style (SPEC_FULL.md §D.5).
var (
	batchesAppliedCounter = metrics.NewRegisteredCounter("ingest/batches", nil)
	runsAppliedCounter    = metrics.NewRegisteredCounter("ingest/runs", nil)
	squashCounter         = metrics.NewRegisteredCounter("ingest/squash", nil)
	rollbackCounter       = metrics.NewRegisteredCounter("ingest/rollback", nil)

	appendTimer   = metrics.NewRegisteredTimer("ingest/appends", nil)
	rollbackTimer = metrics.NewRegisteredTimer("ingest/rollback/latency", nil)
)
