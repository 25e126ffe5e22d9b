package storage

import (
	"time"

	"swapforge/internal/model"
)

// RetrySink wraps an event sink with bounded exponential-backoff retries.
// Intended for sinks backed by a network service.
type RetrySink struct {
	next       EventSink
	maxRetries int
	baseDelay  time.Duration
}

func NewRetrySink(next EventSink, maxRetries int, baseDelay time.Duration) *RetrySink {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	return &RetrySink{next: next, maxRetries: maxRetries, baseDelay: baseDelay}
}

// PutEventBatch forwards the batch, retrying on failure.
func (s *RetrySink) PutEventBatch(events []model.EventRecord) error {
	delay := s.baseDelay
	var err error
	for attempt := 0; ; attempt++ {
		err = s.next.PutEventBatch(events)
		if err == nil {
			return nil
		}
		if attempt >= s.maxRetries {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
}
