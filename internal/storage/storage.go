package storage

import "swapforge/internal/model"

// EventSink defines a destination for event records.
type EventSink interface {
	PutEventBatch(events []model.EventRecord) error
}
