// Package events fans structured engine notifications out to sinks.
// Events are observability output, not control flow: a failing sink is
// logged and never fails the operation that emitted the event.
package events

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapforge/internal/model"
)

// Sink receives recorded events.
type Sink interface {
	PutEventBatch(events []model.EventRecord) error
}

// Recorder assigns sequence numbers and timestamps to event payloads and
// forwards them to every configured sink. Safe for concurrent use.
type Recorder struct {
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	seq   uint64
	sinks []Sink
}

// NewRecorder builds a recorder over the given sinks.
func NewRecorder(logger *zap.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger, now: time.Now, sinks: sinks}
}

// WithClock overrides the recorder's clock.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// AddSink attaches another sink.
func (r *Recorder) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Emit records one event from emitter with the given payload.
func (r *Recorder) Emit(name string, emitter common.Address, decoded interface{}) {
	now := r.now().UTC()

	r.mu.Lock()
	r.seq++
	record := model.EventRecord{
		Seq:        r.seq,
		Name:       name,
		Emitter:    emitter.Hex(),
		Timestamp:  uint64(now.Unix()),
		RecordedAt: now.Format(time.RFC3339Nano),
		Decoded:    decoded,
	}
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.PutEventBatch([]model.EventRecord{record}); err != nil {
			r.logger.Warn("event sink write failed",
				zap.String("event", name),
				zap.String("emitter", record.Emitter),
				zap.Error(err),
			)
		}
	}
}
