// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// task is a single-shot deadline waiting in the scheduler queue.
type task struct {
	id       int64
	deadline time.Time
	fn       func()
	index    int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].deadline.Before(q[j].deadline)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	t := x.(*task)
	t.index = n
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	t.index = -1
	*q = old[0 : n-1]
	return t
}

// Scheduler arms single-shot deadlines and fires each at most once. A
// task leaves the queue either by firing or by Cancel, never both; a
// Cancel that races an in-flight firing is a no-op, which is why every
// callback must revalidate the state it fires against.
type Scheduler struct {
	queue  taskQueue
	mutex  sync.Mutex
	nextID int64
	stop   chan struct{}
	once   sync.Once
}

// NewScheduler starts the drain goroutine with the given tick interval.
// A zero interval defaults to 50ms.
func NewScheduler(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	s := &Scheduler{
		queue:  make(taskQueue, 0),
		nextID: 1,
		stop:   make(chan struct{}),
	}
	heap.Init(&s.queue)
	go s.process(tick)
	return s
}

// Schedule arms fn to run once after delay and returns a handle for Cancel.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t := &task{
		id:       s.nextID,
		deadline: time.Now().Add(delay),
		fn:       fn,
	}
	s.nextID++

	heap.Push(&s.queue, t)
	return t.id
}

// Cancel removes a pending task. Unknown and already-fired ids are ignored,
// so cancelling twice is safe.
func (s *Scheduler) Cancel(id int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, t := range s.queue {
		if t.id == id {
			heap.Remove(&s.queue, i)
			break
		}
	}
}

// Stop shuts down the drain goroutine. Pending tasks never fire.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
}

func (s *Scheduler) process(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, t := range s.drainDue(time.Now()) {
				go t.fn()
			}
		case <-s.stop:
			return
		}
	}
}

// drainDue pops every task whose deadline has passed while holding the
// queue lock. Callbacks run outside the lock so they may call Schedule
// or Cancel freely.
func (s *Scheduler) drainDue(now time.Time) []*task {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var due []*task
	for s.queue.Len() > 0 {
		t := s.queue[0]
		if t.deadline.After(now) {
			break
		}
		heap.Pop(&s.queue)
		due = append(due, t)
	}
	return due
}
