// Package metrics defines the minimal metrics surface the ingestion
// pipeline emits to. Backends live in subpackages; the core code
// depends only on the Backend interface and never on a vendor SDK.
package metrics

import "sync/atomic"

// Labels are metric dimensions. Backends decide which keys they honor.
type Labels map[string]string

// Backend receives counter increments and histogram samples.
//
// Implementations must be safe for concurrent use; the engine calls
// them from worker goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer and need a final
// submit on shutdown.
type Flusher interface {
	Flush() error
	Close() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var current atomic.Value

func init() {
	current.Store(Backend(nopBackend{}))
}

// SetBackend installs the process-wide backend. Passing nil restores
// the no-op backend. Safe to call concurrently with emission.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	current.Store(b)
}

// IncCounter adds delta to a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current.Load().(Backend).IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current.Load().(Backend).ObserveHistogram(name, value, labels)
}
