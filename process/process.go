package process

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/chazu/ember/alloc"
	"github.com/chazu/ember/term"
)

var log = commonlog.GetLogger("ember.process")

// NumRegisters is the number of X registers per process.
const NumRegisters = 256

// ---------------------------------------------------------------------------
// Status and priority
// ---------------------------------------------------------------------------

// Status is the lifecycle state of a process.
type Status int32

const (
	Runnable Status = iota
	Running
	Waiting
	Exiting
	Exited
)

func (s Status) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Exiting:
		return "exiting"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Priority selects the run queue a process waits in.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Max
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// ParsePriority is the inverse of Priority.String.
func ParsePriority(s string) (Priority, error) {
	for p := Low; p <= Max; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// ---------------------------------------------------------------------------
// Process
// ---------------------------------------------------------------------------

// Shared is the node-wide state every process draws on.
type Shared struct {
	Env      *term.Env
	Alloc    *alloc.SysAlloc
	Binaries *term.BinaryStore
}

// Owner is the scheduler a process belongs to.
type Owner interface {
	// Notify is called when a parked process needs attention: a message
	// arrived or an exit was requested.
	Notify(p *Process)
	// NextReference returns a fresh reference identity.
	NextReference() (scheduler, number uint64)
}

// Options tune a new process.
type Options struct {
	Priority  Priority
	HeapWords int
}

// Process is a lightweight process: a private heap, a call stack of step
// functions and a mailbox. Only the owning scheduler runs it; Send, Exit and
// the read-only accessors are safe from any goroutine.
type Process struct {
	pid      term.Term
	shared   *Shared
	priority Priority

	heap   *Heap
	frames []Frame
	stack  []term.Term

	// X holds the argument and scratch registers.
	X [NumRegisters]term.Term

	reductions uint64
	quantum    int
	budget     int

	status   atomic.Int32
	queued   atomic.Bool
	tornDown atomic.Bool
	owner    atomic.Pointer[ownerRef]

	exitPending atomic.Bool
	exitMu      sync.Mutex
	exitSet     bool
	exitReason  term.Term
	exitHeap    *Heap

	mbox mailbox
}

type ownerRef struct{ Owner }

// New creates a Runnable process that will start by running frame.
func New(pid term.Term, shared *Shared, frame Frame, opts Options) *Process {
	p := &Process{
		pid:      pid,
		shared:   shared,
		priority: opts.Priority,
		heap:     NewHeap(shared.Alloc, shared.Binaries, opts.HeapWords),
	}
	p.frames = append(p.frames, frame)
	p.status.Store(int32(Runnable))
	return p
}

// Pid returns the process identifier.
func (p *Process) Pid() term.Term { return p.pid }

// Env returns the node's term environment.
func (p *Process) Env() *term.Env { return p.shared.Env }

// Priority returns the scheduling priority.
func (p *Process) Priority() Priority { return p.priority }

// Status returns the current lifecycle state.
func (p *Process) Status() Status { return Status(p.status.Load()) }

// IsAlive returns true until the process starts exiting.
func (p *Process) IsAlive() bool {
	s := p.Status()
	return s != Exiting && s != Exited && !p.exitPending.Load()
}

// Heap returns the process heap.
func (p *Process) Heap() *Heap { return p.heap }

// AllocWords allocates on the process heap, so a process is a term.Heap.
func (p *Process) AllocWords(n int) ([]uint64, error) { return p.heap.AllocWords(n) }

// Binaries returns the node's binary store.
func (p *Process) Binaries() *term.BinaryStore { return p.heap.Binaries() }

// Hold records an off-heap binary owned by the process heap.
func (p *Process) Hold(addr uintptr) { p.heap.Hold(addr) }

// MakeRef creates a new reference on the process heap.
func (p *Process) MakeRef() (term.Term, error) {
	o := p.owner.Load()
	if o == nil {
		return 0, fmt.Errorf("process %s has no scheduler", p)
	}
	sid, n := o.NextReference()
	return term.Reference(p, sid, n)
}

func (p *Process) String() string {
	return p.shared.Env.Format(p.pid)
}

// ---------------------------------------------------------------------------
// Reductions
// ---------------------------------------------------------------------------

// Reduce charges one reduction.
func (p *Process) Reduce() { p.ReduceBy(1) }

// ReduceBy charges n reductions.
func (p *Process) ReduceBy(n int) {
	p.reductions += uint64(n)
	p.quantum += n
}

// Reductions returns the total charged over the process lifetime.
func (p *Process) Reductions() uint64 { return p.reductions }

// QuantumReductions returns the reductions charged in the current quantum.
func (p *Process) QuantumReductions() int { return p.quantum }

// ShouldYield tells a step to return: its budget is spent or an exit is
// pending.
func (p *Process) ShouldYield() bool {
	return p.quantum >= p.budget || p.exitPending.Load()
}

// ---------------------------------------------------------------------------
// Scheduler interface
// ---------------------------------------------------------------------------

// SetOwner assigns the scheduler responsible for p.
func (p *Process) SetOwner(o Owner) { p.owner.Store(&ownerRef{o}) }

// Owner returns the scheduler responsible for p, or nil.
func (p *Process) Owner() Owner {
	if o := p.owner.Load(); o != nil {
		return o.Owner
	}
	return nil
}

// IsQueued reports the run queue membership flag.
func (p *Process) IsQueued() bool { return p.queued.Load() }

// MarkQueued sets the run queue flag. It returns false if the flag was
// already set.
func (p *Process) MarkQueued() bool { return p.queued.CompareAndSwap(false, true) }

// ClearQueued clears the run queue flag. It returns false if the flag was
// already clear.
func (p *Process) ClearQueued() bool { return p.queued.CompareAndSwap(true, false) }

// Acquire moves a Runnable process to Running and opens a quantum of
// budget reductions.
func (p *Process) Acquire(budget int) bool {
	if !p.status.CompareAndSwap(int32(Runnable), int32(Running)) {
		return false
	}
	p.quantum = 0
	p.budget = budget
	return true
}

// Suspend moves a Running process back to Runnable.
func (p *Process) Suspend() bool {
	return p.status.CompareAndSwap(int32(Running), int32(Runnable))
}

// Park moves a Running process to Waiting. It returns false, leaving the
// process Running, when a message is already queued.
func (p *Process) Park() bool {
	p.mbox.mu.Lock()
	if len(p.mbox.msgs) > 0 {
		p.mbox.mu.Unlock()
		return false
	}
	parked := p.status.CompareAndSwap(int32(Running), int32(Waiting))
	p.mbox.mu.Unlock()

	// An exit requested while we were parking must not be lost.
	if parked && p.exitPending.Load() && p.status.CompareAndSwap(int32(Waiting), int32(Exiting)) {
		p.notify()
	}
	return parked
}

// ExitPending reports whether an exit has been requested.
func (p *Process) ExitPending() bool { return p.exitPending.Load() }

// BeginExit claims the teardown of a process with a pending exit. It
// returns true exactly once per process; the caller must then call
// FinishExit.
func (p *Process) BeginExit() bool {
	if !p.exitPending.Load() || !p.tornDown.CompareAndSwap(false, true) {
		return false
	}
	p.status.Store(int32(Exiting))
	return true
}

// FinishExit frees the heap, the stacks and any undelivered messages. The
// exit reason survives in its own fragment until Dispose.
func (p *Process) FinishExit() {
	p.heap.Free()
	p.frames = nil
	p.stack = nil
	p.X = [NumRegisters]term.Term{}
	p.mbox.drain()
	p.status.Store(int32(Exited))
	log.Debugf("process %s exited: %s", p, p.shared.Env.Format(p.exitReason))
}

// Dispose releases the retained exit reason. The process must have exited.
func (p *Process) Dispose() {
	p.exitMu.Lock()
	defer p.exitMu.Unlock()
	if p.exitHeap != nil {
		p.exitHeap.Free()
		p.exitHeap = nil
		p.exitReason = 0
	}
}

func (p *Process) notify() {
	if o := p.owner.Load(); o != nil {
		o.Notify(p)
	}
}
