package client

import (
	"context"
	"fmt"
	"sync"
)

// callQueue is the ordered mapping from caller-chosen identifiers to pending
// calls. Insertion order defines execution order; an identifier may be
// pending at most once.
type callQueue struct {
	mu      sync.Mutex
	entries []queueEntry
	pending map[string]struct{}

	// drainMu serializes ExecuteQueued; drains are never concurrent.
	drainMu sync.Mutex
}

type queueEntry struct {
	qid  string
	call Call
}

func (q *callQueue) init() {
	q.pending = make(map[string]struct{})
}

func (q *callQueue) add(qid string, call Call) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.pending[qid]; dup {
		return &DuplicateIDError{ID: qid}
	}
	q.entries = append(q.entries, queueEntry{qid: qid, call: call})
	q.pending[qid] = struct{}{}
	cgQueueDepth.Set(float64(len(q.entries)))
	return nil
}

func (q *callQueue) snapshot() []queueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]queueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// clear removes the first n entries (the executed snapshot) and releases
// their identifiers. Entries enqueued during the drain stay pending.
func (q *callQueue) clear(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries[:n] {
		delete(q.pending, e.qid)
	}
	remaining := make([]queueEntry, len(q.entries)-n)
	copy(remaining, q.entries[n:])
	q.entries = remaining
	cgQueueDepth.Set(float64(len(q.entries)))
}

func (q *callQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Enqueue records a call under qid for deferred execution. The call shape is
// validated against the registry immediately; no request is issued until
// ExecuteQueued. Returns a DuplicateIDError if qid is already pending.
func (c *Client) Enqueue(qid string, call Call) error {
	if qid == "" {
		return fmt.Errorf("queue identifier must not be empty")
	}
	if _, err := c.resolve(call); err != nil {
		return err
	}
	if err := c.queue.add(qid, call); err != nil {
		return err
	}
	c.logger.Debug().
		Str("qid", qid).
		Str("endpoint", call.Endpoint).
		Bool("paginated", call.Pages != nil).
		Msg("Call queued")
	return nil
}

// QueuedCalls returns the number of calls currently pending.
func (c *Client) QueuedCalls() int {
	return c.queue.len()
}

// ExecuteQueued drains the queue in insertion order and returns the results
// keyed by identifier. The first failure aborts the drain: no further queued
// calls are dispatched, collected results are discarded, and the failing
// call's error is returned. The executed entries are removed from the queue
// whether the drain succeeds or fails. Drains are serialized; concurrent
// callers block until the active drain finishes.
func (c *Client) ExecuteQueued(ctx context.Context) (map[string]Result, error) {
	c.queue.drainMu.Lock()
	defer c.queue.drainMu.Unlock()

	entries := c.queue.snapshot()
	defer c.queue.clear(len(entries))

	c.logger.Debug().Int("queued", len(entries)).Msg("Draining call queue")

	results := make(map[string]Result, len(entries))
	for _, e := range entries {
		res, err := c.Do(ctx, e.call)
		if err != nil {
			cgBatchExecutionsTotal.WithLabelValues("failure").Inc()
			c.logger.Warn().
				Err(err).
				Str("qid", e.qid).
				Str("endpoint", e.call.Endpoint).
				Msg("Queued call failed, aborting drain")
			return nil, fmt.Errorf("queued call %q: %w", e.qid, err)
		}
		results[e.qid] = res
	}

	cgBatchExecutionsTotal.WithLabelValues("success").Inc()
	return results, nil
}
