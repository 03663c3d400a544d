package log

import (
	"sync"
	"sync/atomic"

	"rpflavor/internal/sim/runtime"
)

// AsyncDecisions moves decision writes off the engine loop. When the queue is
// full the record is dropped and counted; the loop never waits on disk.
type AsyncDecisions struct {
	next runtime.DecisionLogger
	ch   chan runtime.DecisionRecord
	wg   sync.WaitGroup
	once sync.Once

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewAsyncDecisions(next runtime.DecisionLogger, size int) *AsyncDecisions {
	if size <= 0 {
		size = 4096
	}
	a := &AsyncDecisions{next: next, ch: make(chan runtime.DecisionRecord, size)}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncDecisions) loop() {
	defer a.wg.Done()
	for r := range a.ch {
		if err := a.next.WriteDecision(r); err != nil {
			a.failed.Add(1)
		}
	}
}

func (a *AsyncDecisions) WriteDecision(r runtime.DecisionRecord) error {
	select {
	case a.ch <- r:
	default:
		a.dropped.Add(1)
	}
	return nil
}

// Close drains queued records. Writes after Close panic.
func (a *AsyncDecisions) Close() error {
	a.once.Do(func() {
		close(a.ch)
		a.wg.Wait()
	})
	return nil
}

func (a *AsyncDecisions) Dropped() uint64 { return a.dropped.Load() }
func (a *AsyncDecisions) Failed() uint64  { return a.failed.Load() }
func (a *AsyncDecisions) QueueDepth() int { return len(a.ch) }
