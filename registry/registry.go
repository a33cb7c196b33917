// Package registry maps atom names to local pids.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/ember/process"
	"github.com/chazu/ember/term"
)

var log = commonlog.GetLogger("ember.registry")

var (
	ErrNotAtom           = errors.New("name is not an atom")
	ErrReservedName      = errors.New("name is reserved")
	ErrNotPid            = errors.New("not a local pid")
	ErrNameTaken         = errors.New("name already registered")
	ErrAlreadyRegistered = errors.New("process already has a name")
)

// Registry is the name table of one node. Each name maps to one pid and
// each pid has at most one name. It forgets processes as they exit, so it
// should be added as an exit observer to every scheduler.
type Registry struct {
	env *term.Env

	mu     sync.RWMutex
	byName map[term.Term]term.Term
	byPid  map[term.Term]term.Term
}

// New creates an empty registry.
func New(env *term.Env) *Registry {
	return &Registry{
		env:    env,
		byName: make(map[term.Term]term.Term),
		byPid:  make(map[term.Term]term.Term),
	}
}

// Register binds name to pid.
func (r *Registry) Register(name, pid term.Term) error {
	if !name.IsAtom() {
		return fmt.Errorf("register %s: %w", r.env.Format(name), ErrNotAtom)
	}
	if name == r.env.MustAtom("undefined") {
		return fmt.Errorf("register %s: %w", r.env.Format(name), ErrReservedName)
	}
	if !pid.IsLocalPid() {
		return fmt.Errorf("register %s: %s: %w", r.env.Format(name), r.env.Format(pid), ErrNotPid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("register %s: %w", r.env.Format(name), ErrNameTaken)
	}
	if old, ok := r.byPid[pid]; ok {
		return fmt.Errorf("register %s: %s is %s: %w",
			r.env.Format(name), r.env.Format(pid), r.env.Format(old), ErrAlreadyRegistered)
	}
	r.byName[name] = pid
	r.byPid[pid] = name
	log.Debugf("registered %s as %s", r.env.Format(pid), r.env.Format(name))
	return nil
}

// Unregister removes name. It returns false if name was not registered.
func (r *Registry) Unregister(name term.Term) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid, ok := r.byName[name]
	if !ok {
		return false
	}
	delete(r.byName, name)
	delete(r.byPid, pid)
	return true
}

// Whereis returns the pid registered under name.
func (r *Registry) Whereis(name term.Term) (term.Term, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pid, ok := r.byName[name]
	return pid, ok
}

// NameOf returns the name pid is registered under.
func (r *Registry) NameOf(pid term.Term) (term.Term, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byPid[pid]
	return name, ok
}

// Registered returns all names in term order.
func (r *Registry) Registered() []term.Term {
	r.mu.RLock()
	names := make([]term.Term, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()
	r.env.Sort(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// ProcessExited drops the name of an exiting process.
func (r *Registry) ProcessExited(p *process.Process, _ term.Term) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := r.byPid[p.Pid()]; ok {
		delete(r.byPid, p.Pid())
		delete(r.byName, name)
		log.Debugf("unregistered exiting %s", r.env.Format(name))
	}
}
