// Package node assembles a runtime: allocator, atom table, schedulers and
// the name registry.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/ember/alloc"
	"github.com/chazu/ember/atom"
	"github.com/chazu/ember/config"
	"github.com/chazu/ember/process"
	"github.com/chazu/ember/registry"
	"github.com/chazu/ember/scheduler"
	"github.com/chazu/ember/term"
)

var log = commonlog.GetLogger("ember.node")

// ErrNoProcess is returned for sends to a name nobody is registered under.
var ErrNoProcess = errors.New("no such process")

// Node is one runtime instance.
//
// The node keeps every exited process, and the memory holding its exit
// reason, until Release or Shutdown. Long-running embedders that do not
// read exit reasons should Release pids from an exit observer.
type Node struct {
	cfg      *config.Config
	env      *term.Env
	sys      *alloc.SysAlloc
	shared   *process.Shared
	registry *registry.Registry
	pids     scheduler.PidCounter

	schedulers []*scheduler.Scheduler
	next       atomic.Uint64

	mu     sync.Mutex
	live   map[term.Term]*process.Process
	exited map[term.Term]*process.Process
}

// New builds a node from cfg.
func New(cfg *config.Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	platform, err := alloc.PlatformByName(cfg.Allocator.Backend)
	if err != nil {
		return nil, err
	}
	sys := alloc.New(platform)
	env, err := term.NewEnv(atom.NewLimitedTable(uint64(cfg.Node.MaxAtoms)), cfg.Node.Name)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		env:      env,
		sys:      sys,
		shared:   &process.Shared{Env: env, Alloc: sys, Binaries: term.NewBinaryStore(sys)},
		registry: registry.New(env),
		live:     make(map[term.Term]*process.Process),
		exited:   make(map[term.Term]*process.Process),
	}
	for i := 0; i < cfg.Scheduler.Count; i++ {
		s := scheduler.New(n.shared, scheduler.Options{
			Reductions: cfg.Scheduler.Reductions,
			Pids:       &n.pids,
			HeapWords:  cfg.Heap.InitialWords,
		})
		s.AddExitObserver(n.registry)
		s.AddExitObserver(scheduler.ExitObserverFunc(n.processExited))
		n.schedulers = append(n.schedulers, s)
	}
	log.Infof("node %s: %d schedulers, %s allocator", cfg.Node.Name, len(n.schedulers), platform.Name())
	return n, nil
}

// Env returns the node's term environment.
func (n *Node) Env() *term.Env { return n.env }

// Registry returns the name registry.
func (n *Node) Registry() *registry.Registry { return n.registry }

// Schedulers returns the scheduler pool.
func (n *Node) Schedulers() []*scheduler.Scheduler { return n.schedulers }

// Alloc returns the node's system allocator.
func (n *Node) Alloc() *alloc.SysAlloc { return n.sys }

// AddExitObserver registers o with every scheduler.
func (n *Node) AddExitObserver(o scheduler.ExitObserver) {
	for _, s := range n.schedulers {
		s.AddExitObserver(o)
	}
}

// Spawn starts a process on the next scheduler in turn.
func (n *Node) Spawn(frame process.Frame, opts process.Options) (*process.Process, error) {
	s := n.schedulers[(n.next.Add(1)-1)%uint64(len(n.schedulers))]
	n.mu.Lock()
	defer n.mu.Unlock()
	p, err := s.Spawn(frame, opts)
	if err != nil {
		return nil, err
	}
	if _, gone := n.exited[p.Pid()]; !gone {
		n.live[p.Pid()] = p
	}
	return p, nil
}

func (n *Node) processExited(p *process.Process, _ term.Term) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.live, p.Pid())
	n.exited[p.Pid()] = p
}

// Lookup returns the live process with the given pid.
func (n *Node) Lookup(pid term.Term) (*process.Process, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.live[pid]
	return p, ok
}

// Send delivers msg to a pid or a registered name. Sending to a pid that
// has exited does nothing; sending to an unknown name is an error.
func (n *Node) Send(to, msg term.Term) error {
	pid := to
	if to.IsAtom() {
		var ok bool
		if pid, ok = n.registry.Whereis(to); !ok {
			return fmt.Errorf("send to %s: %w", n.env.Format(to), ErrNoProcess)
		}
	}
	p, ok := n.Lookup(pid)
	if !ok {
		return nil
	}
	return p.Send(msg)
}

// Register names a live process.
func (n *Node) Register(name, pid term.Term) error {
	p, ok := n.Lookup(pid)
	if !ok || !p.IsAlive() {
		return fmt.Errorf("register %s: %w", n.env.Format(name), ErrNoProcess)
	}
	if err := n.registry.Register(name, pid); err != nil {
		return err
	}
	// The registry drops names when the exit is torn down. An exit that
	// began after the check above may already be past that point.
	if !p.IsAlive() {
		n.registry.ProcessExited(p, 0)
		return fmt.Errorf("register %s: %w", n.env.Format(name), ErrNoProcess)
	}
	return nil
}

// Whereis returns the pid registered under name.
func (n *Node) Whereis(name term.Term) (term.Term, bool) {
	return n.registry.Whereis(name)
}

// ExitReason returns the reason an exited, not yet released process gave.
func (n *Node) ExitReason(pid term.Term) (term.Term, bool) {
	n.mu.Lock()
	p, ok := n.exited[pid]
	n.mu.Unlock()
	if !ok {
		return 0, false
	}
	return p.ExitReason()
}

// Release frees the retained exit reason of an exited process and forgets
// the pid. ExitReason reports nothing for it afterwards.
func (n *Node) Release(pid term.Term) {
	n.mu.Lock()
	p, ok := n.exited[pid]
	delete(n.exited, pid)
	n.mu.Unlock()
	if ok {
		p.Dispose()
	}
}

// Run drives every scheduler on its own worker until ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range n.schedulers {
		g.Go(func() error {
			return s.Run(scheduler.WithScheduler(ctx, s))
		})
	}
	return g.Wait()
}

// Shutdown kills every live process and releases all exit reasons. Run
// must have returned.
func (n *Node) Shutdown() {
	n.mu.Lock()
	live := make([]*process.Process, 0, len(n.live))
	for _, p := range n.live {
		live = append(live, p)
	}
	n.mu.Unlock()

	kill := n.env.MustAtom("shutdown")
	for _, p := range live {
		p.Exit(kill)
	}
	for _, s := range n.schedulers {
		for s.RunOnce() {
		}
	}

	n.mu.Lock()
	exited := n.exited
	n.exited = make(map[term.Term]*process.Process)
	n.mu.Unlock()
	for _, p := range exited {
		p.Dispose()
	}
	log.Infof("node %s shut down", n.cfg.Node.Name)
}

// Stats returns per-scheduler counters.
func (n *Node) Stats() []scheduler.Stats {
	stats := make([]scheduler.Stats, len(n.schedulers))
	for i, s := range n.schedulers {
		stats[i] = s.Stats()
	}
	return stats
}
