// Package pqueue implements the pending-jobs priority queue: jobs are
// dispatched in ascending priority-energy order, with insertion order
// breaking ties deterministically (spec.md §3, §4.C).
package pqueue

import (
	"container/heap"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

// item is one entry in the queue.
type item struct {
	job    job.Job
	energy float64
	seq    int64
	index  int
}

// heapImpl is the container/heap.Interface implementation, ordered by
// ascending energy and, on ties, ascending insertion sequence.
type heapImpl []*item

func (h heapImpl) Len() int { return len(h) }

func (h heapImpl) Less(i, j int) bool {
	if h[i].energy != h[j].energy {
		return h[i].energy < h[j].energy
	}
	return h[i].seq < h[j].seq
}

func (h heapImpl) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *heapImpl) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *heapImpl) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Queue is a min-priority queue of pending Jobs, keyed by (priority
// energy, insertion sequence). It is not safe for concurrent use; callers
// serialize access the way the scanner state machine does for the rest of
// ScanState.
type Queue struct {
	h       heapImpl
	nextSeq int64
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Push inserts j with the given priority energy. Among pushes with equal
// energy, earlier Push calls are popped first (FIFO tiebreak).
func (q *Queue) Push(j job.Job, energy float64) {
	heap.Push(&q.h, &item{job: j, energy: energy, seq: q.nextSeq})
	q.nextSeq++
}

// Pop removes and returns the job with the lowest (energy, seq), and
// reports whether the queue was non-empty.
func (q *Queue) Pop() (job.Job, float64, bool) {
	if q.h.Len() == 0 {
		return job.Job{}, 0, false
	}
	it := heap.Pop(&q.h).(*item)
	return it.job, it.energy, true
}

// Len reports the number of pending entries.
func (q *Queue) Len() int {
	return q.h.Len()
}

// Peek returns the entry Pop would return next (lowest energy, then
// lowest sequence) without removing it.
func (q *Queue) Peek() (job.Job, float64, bool) {
	if q.h.Len() == 0 {
		return job.Job{}, 0, false
	}
	it := q.h[0]
	return it.job, it.energy, true
}

// Entry is one serializable queue entry, in insertion order, for the
// server-API payload's "priority_queue snapshot" (spec.md §6).
type Entry struct {
	Job    job.Job
	Energy float64
	Seq    int64
}

// Snapshot returns every pending entry in insertion order (not heap pop
// order), so a serialized snapshot is stable regardless of heap internals.
func (q *Queue) Snapshot() []Entry {
	out := make([]Entry, len(q.h))
	for i, it := range q.h {
		out[i] = Entry{Job: it.job, Energy: it.energy, Seq: it.seq}
	}
	sortEntriesBySeq(out)
	return out
}

func sortEntriesBySeq(entries []Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Seq < entries[j-1].Seq; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// Restore rebuilds a Queue from a snapshot produced by Snapshot, preserving
// each entry's original insertion sequence so tie-breaking after a restore
// is identical to tie-breaking before it.
func Restore(entries []Entry) *Queue {
	q := New()
	var maxSeq int64 = -1
	for _, e := range entries {
		heap.Push(&q.h, &item{job: e.Job, energy: e.Energy, seq: e.Seq})
		if e.Seq > maxSeq {
			maxSeq = e.Seq
		}
	}
	q.nextSeq = maxSeq + 1
	return q
}
