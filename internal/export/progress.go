package export

// LoadingIndex marks progress events emitted while the engine is still
// initializing, before any annotation has started.
const LoadingIndex = -1

// Progress is one batch progress event. Percent runs 0 to 100 over the whole
// batch; Index identifies the annotation being worked on.
type Progress struct {
	Percent float64
	Index   int
}

// ProgressSink receives progress events during a batch run. Implementations
// must be cheap; events are published synchronously between pipeline steps.
type ProgressSink interface {
	Publish(Progress)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(Progress)

func (f ProgressFunc) Publish(p Progress) { f(p) }

type nopSink struct{}

func (nopSink) Publish(Progress) {}
