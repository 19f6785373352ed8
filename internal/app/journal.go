package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/pinchpad/internal/log"
	"github.com/ayusman/pinchpad/internal/surface"
)

// journalQueueSize is the number of frames the journal can fall behind
// before batches are dropped.
const journalQueueSize = 256

// eventAppender is the part of the event repository the journal writes to.
type eventAppender interface {
	Append(sessionID string, at time.Time, events []surface.Event) error
}

type journalBatch struct {
	at     time.Time
	events []surface.Event
}

// journal writes sent events to the store on its own goroutine so a slow
// disk never holds up a frame.
type journal struct {
	dst       eventAppender
	sessionID string

	mu     sync.Mutex
	queue  chan journalBatch
	closed bool

	dropped atomic.Int64
	done    chan struct{}
}

func newJournal(dst eventAppender, sessionID string, size int) *journal {
	j := &journal{
		dst:       dst,
		sessionID: sessionID,
		queue:     make(chan journalBatch, size),
		done:      make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *journal) run() {
	defer close(j.done)
	for b := range j.queue {
		if err := j.dst.Append(j.sessionID, b.at, b.events); err != nil {
			log.Warn("journal append failed", "session", j.sessionID, "err", err)
		}
	}
}

// write queues one frame's events. It never blocks; when the queue is full
// or the journal is closed the batch is dropped and false is returned.
func (j *journal) write(at time.Time, events []surface.Event) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return false
	}
	select {
	case j.queue <- journalBatch{at: at, events: events}:
		return true
	default:
		n := j.dropped.Add(1)
		log.Warn("journal queue full, dropping events", "session", j.sessionID, "events", len(events), "dropped", n)
		return false
	}
}

// close waits for queued batches to be written and returns how many were
// dropped. It is safe to call more than once.
func (j *journal) close() int64 {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	<-j.done
	return j.dropped.Load()
}
