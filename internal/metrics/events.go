package metrics

import (
	"sync/atomic"

	"go.uber.org/zap"

	"datasetprep/internal/pipeline"
)

// EventType is the outcome of one input file.
type EventType string

const (
	EventProcessed EventType = "processed"
	EventFailed    EventType = "failed"
	EventSkipped   EventType = "skipped"
)

// Summary is a point-in-time view of a run.
type Summary struct {
	Processed int64
	Failed    int64
	Skipped   int64

	InvalidDimension int64
	DecodeFailure    int64
	EncodeFailure    int64
	IOFailure        int64
}

// Total is the number of files seen.
func (s Summary) Total() int64 {
	return s.Processed + s.Failed + s.Skipped
}

// Fields renders the summary for structured logging.
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("processed", s.Processed),
		zap.Int64("failed", s.Failed),
		zap.Int64("skipped", s.Skipped),
		zap.Int64("invalid_dimension", s.InvalidDimension),
		zap.Int64("decode_failure", s.DecodeFailure),
		zap.Int64("encode_failure", s.EncodeFailure),
		zap.Int64("io_failure", s.IOFailure),
	}
}

// Recorder counts file outcomes. It is safe for concurrent use.
type Recorder struct {
	processed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64

	invalidDimension atomic.Int64
	decodeFailure    atomic.Int64
	encodeFailure    atomic.Int64
	ioFailure        atomic.Int64
}

// New creates a new Recorder.
func New() *Recorder {
	return &Recorder{}
}

// LogEvent records one outcome. err classifies failures.
func (r *Recorder) LogEvent(event EventType, err error) {
	switch event {
	case EventProcessed:
		r.processed.Add(1)
	case EventSkipped:
		r.skipped.Add(1)
	case EventFailed:
		r.failed.Add(1)
		r.logFailureKind(pipeline.KindOf(err))
	}
}

// LogProcessed records a successfully written file.
func (r *Recorder) LogProcessed() {
	r.LogEvent(EventProcessed, nil)
}

// LogSkipped records a file left untouched because its output is current.
func (r *Recorder) LogSkipped() {
	r.LogEvent(EventSkipped, nil)
}

// LogFailed records a failed file.
func (r *Recorder) LogFailed(err error) {
	r.LogEvent(EventFailed, err)
}

func (r *Recorder) logFailureKind(kind pipeline.ErrorKind) {
	switch kind {
	case pipeline.KindInvalidDimension:
		r.invalidDimension.Add(1)
	case pipeline.KindDecodeFailure:
		r.decodeFailure.Add(1)
	case pipeline.KindEncodeFailure:
		r.encodeFailure.Add(1)
	default:
		r.ioFailure.Add(1)
	}
}

// Summary returns the current counts.
func (r *Recorder) Summary() Summary {
	return Summary{
		Processed:        r.processed.Load(),
		Failed:           r.failed.Load(),
		Skipped:          r.skipped.Load(),
		InvalidDimension: r.invalidDimension.Load(),
		DecodeFailure:    r.decodeFailure.Load(),
		EncodeFailure:    r.encodeFailure.Load(),
		IOFailure:        r.ioFailure.Load(),
	}
}
