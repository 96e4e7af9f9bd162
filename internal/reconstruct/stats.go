package reconstruct

// Stats are the observability counters of a Reconstructor.
type Stats struct {
	FrameCount            uint64
	ErrorCount            uint64
	SequenceGaps          uint64
	UnexpectedFrames      uint64
	NCQAborts             uint64
	TagCollisions         uint64
	LegacyOverlaps        uint64
	OrphanData            uint64
	OperationsEmitted     uint64
	BytesEmitted          uint64
	DiscardedTransactions uint64
}
