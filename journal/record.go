package journal

// Record is one entry of a stream log. Records are handled by value: the
// store never hands out references to its own state.
type Record struct {
	StreamID   string
	SequenceNr uint64
	Payload    interface{}
	Deleted    bool
}

func (r Record) markDeleted() Record {
	r.Deleted = true
	return r
}

// Batch is a group of records sharing one stream id, as returned by
// Validator.Validate. The store only keeps records whose StreamID matches the
// batch StreamID.
type Batch struct {
	StreamID string
	Records  []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int { return len(b.Records) }

// AtomicWrite is one entry of a grouped append.
type AtomicWrite struct {
	StreamID string
	Records  []Record
}
