package journal

import "time"

const DefaultCallTimeout = 100 * time.Millisecond

// Config holds the journal settings.
type Config struct {
	// FullSerialization makes the validator marshal every payload instead of
	// only checking that a serializer is bound for its type.
	FullSerialization bool
	// CallTimeout bounds each call made through a Journal.
	CallTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		FullSerialization: false,
		CallTimeout:       DefaultCallTimeout,
	}
}
