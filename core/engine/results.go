package engine

import (
	"github.com/elimucloud/dawati/core/resource"
)

// Result is the thin notification contract consumed by the presentation
// layer: one entry per completed mutation, success or failure. Reacting to
// it (toast, redirect) is the consumer's business, not the engine's.
type Result struct {
	RequestID  string
	Kind       resource.Kind
	ID         string
	Transition resource.Transition
	Record     *resource.Record
	Err        error
	Message    string
}

// Results exposes the result channel. The channel is buffered and
// publishing never blocks: if nobody is listening, results are dropped.
func (e *Engine) Results() <-chan Result {
	return e.results
}

func (e *Engine) publish(res Result) {
	select {
	case e.results <- res:
	default:
	}
}
