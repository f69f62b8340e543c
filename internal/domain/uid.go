// Package domain holds the entities shared by the projection store, the
// caches and the consumer: the temporal row shapes, the derived catalog
// records, and the pure functions (address derivation, label extraction,
// string escaping) that turn raw update-stream data into them.
package domain

// UID is a per-table monotonically increasing identifier drawn from a
// Postgres sequence. It is the projection's write-order clock (spec §3.1).
type UID int64

// MaxUID is the sentinel superseded_by value meaning "currently live".
// Chosen one below the int64 max so a genuine uid can never collide with it.
const MaxUID UID = 9_223_372_036_854_775_806

// pendingUID marks a freshly allocated row whose final superseded_by value
// hasn't been resolved yet (§4.3 step 2: "temporarily unknown").
const pendingUID UID = -1
