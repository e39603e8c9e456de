package journal

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrStoreClosed      = errors.New("store closed")
	ErrTimeout          = errors.New("journal call timed out")
	ErrEmptyBatch       = errors.New("empty batch")
	ErrEmptyStreamID    = errors.New("empty stream id")
	ErrStreamIDMismatch = errors.New("record stream id does not match batch")
	ErrNoSerializer     = errors.New("no serializer bound for payload type")
)

// ValidationRejection is returned when a candidate record fails the
// configured marshaling policy. It aborts the whole batch.
type ValidationRejection struct {
	StreamID   string
	SequenceNr uint64
	cause      error
}

func reject(streamID string, sequenceNr uint64, cause error) *ValidationRejection {
	return &ValidationRejection{StreamID: streamID, SequenceNr: sequenceNr, cause: cause}
}

func (r *ValidationRejection) Error() string {
	return fmt.Sprintf("record %s/%d rejected: %v", r.StreamID, r.SequenceNr, r.cause)
}
func (r *ValidationRejection) Cause() error  { return r.cause }
func (r *ValidationRejection) Unwrap() error { return r.cause }

// IsRejection reports whether err is, or wraps, a ValidationRejection.
func IsRejection(err error) bool {
	var rejection *ValidationRejection
	return errors.As(err, &rejection)
}
