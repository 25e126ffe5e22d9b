package model

import (
	"encoding/json"
)

// EventRecord is the envelope written to event sinks. Seq is assigned by
// the recorder and is strictly increasing per engine run.
type EventRecord struct {
	Seq        uint64      `json:"seq"`
	Name       string      `json:"name"`
	Emitter    string      `json:"emitter"`
	Timestamp  uint64      `json:"timestamp"`
	RecordedAt string      `json:"recorded_at"`
	Decoded    interface{} `json:"decoded"`
}

// MarshalJSON ensures EventRecord is encoded with stable field names.
func (er EventRecord) MarshalJSON() ([]byte, error) {
	type Alias EventRecord
	return json.Marshal(Alias(er))
}

// UnmarshalJSON decodes an EventRecord from JSON.
func (er *EventRecord) UnmarshalJSON(data []byte) error {
	type Alias EventRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*er = EventRecord(a)
	return nil
}

// RawEventRecord is the read-side envelope: the payload stays undecoded
// until the consumer knows the event name.
type RawEventRecord struct {
	Seq        uint64          `json:"seq"`
	Name       string          `json:"name"`
	Emitter    string          `json:"emitter"`
	Timestamp  uint64          `json:"timestamp"`
	RecordedAt string          `json:"recorded_at"`
	Decoded    json.RawMessage `json:"decoded"`
}
