package journal

// Validator checks candidate records against the configured marshaling
// policy before they reach the store. It holds no mutable state.
type Validator struct {
	fullSerialization bool
	registry          *Registry
}

func NewValidator(config Config, registry *Registry) *Validator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Validator{fullSerialization: config.FullSerialization, registry: registry}
}

// Validate returns a Batch holding exactly records, in order, or the first
// failure as a *ValidationRejection.
func (v *Validator) Validate(streamID string, records []Record) (Batch, error) {
	if streamID == "" {
		return Batch{}, reject(streamID, 0, ErrEmptyStreamID)
	}
	if len(records) == 0 {
		return Batch{}, reject(streamID, 0, ErrEmptyBatch)
	}
	out := make([]Record, len(records))
	for idx, record := range records {
		if err := v.check(streamID, record); err != nil {
			return Batch{}, reject(streamID, record.SequenceNr, err)
		}
		out[idx] = record
	}
	return Batch{StreamID: streamID, Records: out}, nil
}

func (v *Validator) check(streamID string, record Record) error {
	if record.StreamID != streamID {
		return ErrStreamIDMismatch
	}
	serializer, err := v.registry.Find(record.Payload)
	if err != nil {
		return err
	}
	if v.fullSerialization {
		_, err = serializer.Marshal(record.Payload)
	}
	return err
}
