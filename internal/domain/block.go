package domain

import "time"

// BlockMicroblock is a row of the blocks_microblocks table (spec §3.2).
// TimeStamp.IsZero designates a microblock: a provisional append to the
// last key block. Height is shared between a key block and the
// microblocks appended to it.
type BlockMicroblock struct {
	UID       UID
	ID        string
	Height    int32
	TimeStamp time.Time // zero value means microblock
}

// IsMicroblock reports whether this row is a provisional microblock append
// rather than a confirmed key block.
func (b BlockMicroblock) IsMicroblock() bool {
	return b.TimeStamp.IsZero()
}
