// Package scheduler runs processes cooperatively. Each Scheduler owns a set
// of processes and a run queue, and is driven by exactly one worker
// goroutine.
package scheduler

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/ember/process"
	"github.com/chazu/ember/term"
)

var log = commonlog.GetLogger("ember.scheduler")

// DefaultReductions is the reduction budget of one quantum.
const DefaultReductions = 2000

// ExitObserver is told about every process that exits, exactly once,
// before the process heap is freed. reason lives until the process is
// disposed.
type ExitObserver interface {
	ProcessExited(p *process.Process, reason term.Term)
}

// ExitObserverFunc adapts a function to ExitObserver.
type ExitObserverFunc func(p *process.Process, reason term.Term)

func (f ExitObserverFunc) ProcessExited(p *process.Process, reason term.Term) { f(p, reason) }

// PidCounter hands out local pid numbers. Schedulers of one node share one.
type PidCounter struct {
	n atomic.Uint64
}

// Next returns a fresh local pid.
func (c *PidCounter) Next() (term.Term, error) {
	return term.FromLocalPid(c.n.Add(1))
}

// Options configure a Scheduler.
type Options struct {
	// Reductions is the per-quantum budget.
	Reductions int
	// Pids is shared between the schedulers of a node. A private counter
	// is used when nil.
	Pids *PidCounter
	// HeapWords is the default first heap segment of spawned processes.
	HeapWords int
}

// Stats is a snapshot of scheduler activity.
type Stats struct {
	ID        string
	Quanta    uint64
	Spawned   uint64
	Exited    uint64
	Processes int
	Queued    [process.Max + 1]int
}

// Scheduler owns processes and runs them one quantum at a time.
type Scheduler struct {
	id      uuid.UUID
	refBase uint64
	refs    atomic.Uint64

	shared    *process.Shared
	budget    int
	heapWords int
	pids      *PidCounter

	mu        sync.Mutex
	queue     *runQueue
	reap      []*process.Process
	procs     map[term.Term]*process.Process
	observers []ExitObserver

	wake chan struct{}

	quanta  atomic.Uint64
	spawned atomic.Uint64
	exited  atomic.Uint64
}

// New creates an idle scheduler.
func New(shared *process.Shared, opts Options) *Scheduler {
	if opts.Reductions <= 0 {
		opts.Reductions = DefaultReductions
	}
	if opts.Pids == nil {
		opts.Pids = &PidCounter{}
	}
	id := uuid.New()
	return &Scheduler{
		id:        id,
		refBase:   binary.BigEndian.Uint64(id[:8]),
		shared:    shared,
		budget:    opts.Reductions,
		heapWords: opts.HeapWords,
		pids:      opts.Pids,
		queue:     newRunQueue(),
		procs:     make(map[term.Term]*process.Process),
		wake:      make(chan struct{}, 1),
	}
}

// ID returns the scheduler's unique id.
func (s *Scheduler) ID() uuid.UUID { return s.id }

func (s *Scheduler) String() string { return "scheduler " + s.id.String() }

// AddExitObserver registers o for every later exit.
func (s *Scheduler) AddExitObserver(o ExitObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// NextReference implements process.Owner.
func (s *Scheduler) NextReference() (uint64, uint64) {
	return s.refBase, s.refs.Add(1)
}

// Spawn creates a process that starts in frame and queues it.
func (s *Scheduler) Spawn(frame process.Frame, opts process.Options) (*process.Process, error) {
	pid, err := s.pids.Next()
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}
	if opts.HeapWords == 0 {
		opts.HeapWords = s.heapWords
	}
	p := process.New(pid, s.shared, frame, opts)
	p.SetOwner(s)

	s.mu.Lock()
	s.procs[pid] = p
	s.mu.Unlock()
	s.spawned.Add(1)
	s.Enqueue(p)
	log.Debugf("%s spawned %s", s, p)
	return p, nil
}

// Lookup returns the live process with the given pid.
func (s *Scheduler) Lookup(pid term.Term) (*process.Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	return p, ok
}

// Enqueue puts p at the back of its run queue. It is a no-op for processes
// that are already queued or are exiting; it reports whether p was added.
func (s *Scheduler) Enqueue(p *process.Process) bool {
	if !p.IsAlive() {
		return false
	}
	s.mu.Lock()
	// p may have been adopted by another scheduler since the caller
	// looked.
	if o, ok := p.Owner().(*Scheduler); ok && o != s {
		s.mu.Unlock()
		return o.Enqueue(p)
	}
	if !p.MarkQueued() {
		s.mu.Unlock()
		return false
	}
	s.queue.push(p)
	s.mu.Unlock()
	s.signal()
	return true
}

// IsRunQueued reports whether p waits in a run queue.
func (s *Scheduler) IsRunQueued(p *process.Process) bool {
	return p.IsQueued()
}

// Notify implements process.Owner: a parked process was woken or told to
// exit.
func (s *Scheduler) Notify(p *process.Process) {
	if !p.ExitPending() && s.Enqueue(p) {
		return
	}
	// An exit may land between the check and Enqueue; reap either way.
	if p.ExitPending() {
		s.reapLater(p)
	}
}

func (s *Scheduler) reapLater(p *process.Process) {
	s.mu.Lock()
	if o, ok := p.Owner().(*Scheduler); ok && o != s {
		s.mu.Unlock()
		o.reapLater(p)
		return
	}
	s.reap = append(s.reap, p)
	s.mu.Unlock()
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) dequeue(p *process.Process) {
	s.mu.Lock()
	if p.ClearQueued() {
		s.queue.remove(p)
	}
	s.mu.Unlock()
}

// RunThrough gives p one quantum and reports whether it is still runnable.
// A process that exits during the quantum is torn down before RunThrough
// returns. Running an exited process is a no-op returning false.
func (s *Scheduler) RunThrough(p *process.Process) bool {
	s.dequeue(p)
	if p.ExitPending() {
		s.exit(p)
		return false
	}
	if !p.Acquire(s.budget) {
		return false
	}
	s.quanta.Add(1)

	step := s.runQuantum(p)
	if p.ExitPending() {
		s.exit(p)
		return false
	}
	if step == process.Wait && p.Park() {
		return false
	}
	p.Suspend()
	if !s.Enqueue(p) && p.ExitPending() {
		s.exit(p)
		return false
	}
	return true
}

// runQuantum calls the current frame until it yields, waits, exits or runs
// out of reductions. A panic in a step becomes the exit reason.
func (s *Scheduler) runQuantum(p *process.Process) (step process.Step) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s: process %s crashed: %v", s, p, r)
			p.ExitWithError(fmt.Errorf("panic: %v", r))
			step = process.Yield
		}
	}()
	for {
		frame, ok := p.CurrentFrame()
		if !ok {
			p.ExitNormal()
			return process.Yield
		}
		before := p.QuantumReductions()
		step = frame.Code(p)
		if p.QuantumReductions() == before {
			p.Reduce()
		}
		if step != process.Continue || p.ShouldYield() {
			return step
		}
	}
}

// exit tears p down once: out of the run queue, observers told, heap freed.
func (s *Scheduler) exit(p *process.Process) {
	if !p.BeginExit() {
		return
	}
	s.dequeue(p)
	reason, _ := p.ExitReason()

	s.mu.Lock()
	observers := append([]ExitObserver(nil), s.observers...)
	delete(s.procs, p.Pid())
	s.mu.Unlock()

	for _, o := range observers {
		o.ProcessExited(p, reason)
	}
	if reason != s.shared.Env.MustAtom("normal") {
		log.Warningf("%s: process %s exited: %s", s, p, s.shared.Env.Format(reason))
	}
	p.FinishExit()
	s.exited.Add(1)
}

// RunOnce tears down processes that exited while parked, or else runs the
// next queued process for one quantum. It returns false when there was
// nothing to do.
func (s *Scheduler) RunOnce() bool {
	s.mu.Lock()
	reap := s.reap
	s.reap = nil
	var next *process.Process
	if len(reap) == 0 {
		if next = s.queue.pop(); next != nil {
			next.ClearQueued()
		}
	}
	s.mu.Unlock()

	for _, p := range reap {
		s.exit(p)
	}
	if next != nil {
		s.RunThrough(next)
	}
	return len(reap) > 0 || next != nil
}

// Run drives the scheduler until ctx is cancelled. The worker keeps its OS
// thread for its whole life and sleeps while there is nothing to run.
func (s *Scheduler) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log.Infof("%s started", s)
	defer log.Infof("%s stopped", s)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.RunOnce() {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}
	}
}

// Adopt moves a process from its current scheduler to s. Only processes
// that wait in the old run queue or are parked can move; one that the old
// worker has already taken is refused.
func (s *Scheduler) Adopt(p *process.Process) error {
	if !p.IsAlive() {
		return fmt.Errorf("adopt %s: process is exiting", p)
	}
	old, ok := p.Owner().(*Scheduler)
	if !ok || old == s {
		p.SetOwner(s)
		s.mu.Lock()
		s.procs[p.Pid()] = p
		s.mu.Unlock()
		s.Enqueue(p)
		return nil
	}

	old.mu.Lock()
	wasQueued := p.IsQueued()
	switch {
	case p.ExitPending():
		old.mu.Unlock()
		return fmt.Errorf("adopt %s: process is exiting", p)
	case wasQueued:
		p.ClearQueued()
		old.queue.remove(p)
	case p.Status() != process.Waiting:
		old.mu.Unlock()
		return fmt.Errorf("adopt %s: process is %s on %s", p, p.Status(), old)
	}
	// Enqueue and reapLater on old check the owner under old.mu, so
	// nothing reaches old's queue after this.
	p.SetOwner(s)
	delete(old.procs, p.Pid())
	old.mu.Unlock()

	s.mu.Lock()
	s.procs[p.Pid()] = p
	s.mu.Unlock()
	if wasQueued {
		s.Enqueue(p)
	}
	return nil
}

// Len returns the number of live processes owned by s.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// Stats returns counters and queue lengths.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		ID:        s.id.String(),
		Quanta:    s.quanta.Load(),
		Spawned:   s.spawned.Load(),
		Exited:    s.exited.Load(),
		Processes: len(s.procs),
		Queued:    s.queue.counts,
	}
}
