package scheduler

import (
	"container/list"

	"github.com/chazu/ember/process"
)

// lowSkipLimit is how many times a low priority process at the head of the
// normal queue may be passed over in favour of a normal one.
const lowSkipLimit = 8

// runQueue holds runnable processes, one FIFO per priority. Low priority
// processes share the normal FIFO. It is not synchronized; the scheduler
// guards it.
type runQueue struct {
	lists    [process.Max + 1]*list.List
	elems    map[*process.Process]*list.Element
	counts   [process.Max + 1]int
	lowSkips int
}

func newRunQueue() *runQueue {
	q := &runQueue{elems: make(map[*process.Process]*list.Element)}
	for i := range q.lists {
		q.lists[i] = list.New()
	}
	return q
}

func listFor(p process.Priority) process.Priority {
	if p == process.Low {
		return process.Normal
	}
	return p
}

func (q *runQueue) push(p *process.Process) {
	q.elems[p] = q.lists[listFor(p.Priority())].PushBack(p)
	q.counts[p.Priority()]++
}

func (q *runQueue) remove(p *process.Process) bool {
	e, ok := q.elems[p]
	if !ok {
		return false
	}
	q.take(e)
	return true
}

func (q *runQueue) take(e *list.Element) *process.Process {
	p := e.Value.(*process.Process)
	q.lists[listFor(p.Priority())].Remove(e)
	delete(q.elems, p)
	q.counts[p.Priority()]--
	return p
}

// pop returns the next process to run: max before high before normal.
func (q *runQueue) pop() *process.Process {
	for _, prio := range []process.Priority{process.Max, process.High} {
		if e := q.lists[prio].Front(); e != nil {
			return q.take(e)
		}
	}
	front := q.lists[process.Normal].Front()
	if front == nil {
		return nil
	}
	if front.Value.(*process.Process).Priority() == process.Low && q.lowSkips < lowSkipLimit {
		for e := front.Next(); e != nil; e = e.Next() {
			if e.Value.(*process.Process).Priority() != process.Low {
				q.lowSkips++
				return q.take(e)
			}
		}
	}
	if front.Value.(*process.Process).Priority() == process.Low {
		q.lowSkips = 0
	}
	return q.take(front)
}

func (q *runQueue) len() int { return len(q.elems) }
