// Package ingest is the Consumer Orchestrator (spec §4.2): folds the
// update-source stream into runs, applies each run's appends to the
// projection store with the supersession algorithm, keeps both cache
// tiers coherent, and handles squash and rollback.
package ingest

import "github.com/wavesplatform/asset-catalog/internal/updatestream"

// runKind discriminates the three run shapes of spec §4.2.2 step 2.
type runKind int

const (
	runBlocks runKind = iota
	runMicroblock
	runRollback
)

// run is one unit of work within a batch; every run in a batch is applied
// inside the same transaction (spec §4.2.2 steps 3/4, §5).
type run struct {
	kind       runKind
	blocks     []updatestream.Block // runBlocks: one or more consecutive Block items
	microblock updatestream.Microblock
	rollback   updatestream.Rollback
}

// foldRuns groups a batch's updates into runs (spec §4.2.2 step 2):
// consecutive Block items merge into one Blocks(run); any Microblock or
// Rollback breaks the run and stands alone.
func foldRuns(updates []updatestream.BlockchainUpdate) []run {
	var runs []run
	for _, u := range updates {
		switch v := u.(type) {
		case updatestream.Block:
			if n := len(runs); n > 0 && runs[n-1].kind == runBlocks {
				runs[n-1].blocks = append(runs[n-1].blocks, v)
				continue
			}
			runs = append(runs, run{kind: runBlocks, blocks: []updatestream.Block{v}})
		case updatestream.Microblock:
			runs = append(runs, run{kind: runMicroblock, microblock: v})
		case updatestream.Rollback:
			runs = append(runs, run{kind: runRollback, rollback: v})
		}
	}
	return runs
}
