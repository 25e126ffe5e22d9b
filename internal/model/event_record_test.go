package model

import (
	"encoding/json"
	"testing"
)

func TestEventRecordJSONRoundTrip(t *testing.T) {
	original := EventRecord{
		Seq:        7,
		Name:       EventSwapExecuted,
		Emitter:    "0x1111111111111111111111111111111111111111",
		Timestamp:  1700000000,
		RecordedAt: "2024-01-01T00:00:00Z",
		Decoded: map[string]interface{}{
			"pool":      "0x2222222222222222222222222222222222222222",
			"amount_in": "1000",
		},
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded EventRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Seq != original.Seq || decoded.Name != original.Name ||
		decoded.Emitter != original.Emitter || decoded.Timestamp != original.Timestamp {
		t.Fatalf("round-trip mismatch: %+v != %+v", decoded, original)
	}

	payload, ok := decoded.Decoded.(map[string]interface{})
	if !ok {
		t.Fatalf("decoded payload type mismatch: %T", decoded.Decoded)
	}
	if payload["amount_in"] != "1000" {
		t.Fatalf("payload mismatch: %+v", payload)
	}
}
