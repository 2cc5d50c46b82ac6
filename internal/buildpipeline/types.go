// Package buildpipeline ties the stages together: it discovers the module
// graph from the entry file, layers it into waves, and drives parse,
// type-check and codegen workers over a shared artifact cache. The contract
// of the whole package: the produced units and diagnostics are identical to a
// sequential build, whatever the job count and whatever the cache contains.
package buildpipeline

import (
	"time"
)

// Stage names one compilation stage. The string value doubles as the cache
// namespace, so renaming a stage invalidates its artifacts.
type Stage string

const (
	StageParse   Stage = "parse"
	StageCheck   Stage = "check"
	StageCodegen Stage = "codegen"
	StageLink    Stage = "link"
)

// Status is the lifecycle of one (module, stage) pair.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusCached // завершён артефактом из кеша, стадия не выполнялась
	StatusFailed
	StatusBlocked // не запускался: упала зависимость
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusWorking:
		return "working"
	case StatusDone:
		return "done"
	case StatusCached:
		return "cached"
	case StatusFailed:
		return "failed"
	case StatusBlocked:
		return "blocked"
	}
	return "?"
}

// Event is one progress notification. Events are emitted from worker
// goroutines; sinks must be safe for concurrent use.
type Event struct {
	Module  string
	Stage   Stage
	Status  Status
	Elapsed time.Duration
}

// ProgressSink receives build progress events.
type ProgressSink interface {
	Publish(Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// ChannelSink forwards events into a channel, dropping events rather than
// blocking a worker when the receiver lags.
type ChannelSink struct {
	C chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan Event, buffer)}
}

func (s *ChannelSink) Publish(ev Event) {
	select {
	case s.C <- ev:
	default:
	}
}

func (s *ChannelSink) Close() {
	close(s.C)
}
