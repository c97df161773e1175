package anim

import "time"

// QueueCapacity bounds the number of pending motions per state.
const QueueCapacity = 16

// pendingQueue holds requests ordered by start time. Equal start times keep
// insertion order.
type pendingQueue struct {
	items [QueueCapacity]QueuedMotion
	n     int
}

func (q *pendingQueue) len() int { return q.n }

func (q *pendingQueue) full() bool { return q.n == QueueCapacity }

// insert places m after every entry starting at or before it. It returns
// false when the queue is full.
func (q *pendingQueue) insert(m QueuedMotion) bool {
	if q.full() {
		return false
	}
	i := q.n
	for i > 0 && q.items[i-1].StartTime > m.StartTime {
		q.items[i] = q.items[i-1]
		i--
	}
	q.items[i] = m
	q.n++
	return true
}

// removeAt deletes the entry at i, keeping order.
func (q *pendingQueue) removeAt(i int) {
	copy(q.items[i:q.n-1], q.items[i+1:q.n])
	q.n--
	q.items[q.n] = QueuedMotion{}
}

// cancel removes the first entry for the same trigger slot as m.
func (q *pendingQueue) cancel(m *QueuedMotion) bool {
	for i := 0; i < q.n; i++ {
		if q.items[i].sameTrigger(m) {
			q.removeAt(i)
			return true
		}
	}
	return false
}

// popDue removes and returns the head if it is due at now.
func (q *pendingQueue) popDue(now time.Duration) (QueuedMotion, bool) {
	if q.n == 0 || q.items[0].StartTime > now {
		return QueuedMotion{}, false
	}
	m := q.items[0]
	q.removeAt(0)
	return m, true
}

func (q *pendingQueue) snapshot() []QueuedMotion {
	out := make([]QueuedMotion, q.n)
	copy(out, q.items[:q.n])
	return out
}

func (q *pendingQueue) clear() {
	*q = pendingQueue{}
}
