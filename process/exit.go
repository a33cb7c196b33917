package process

import (
	"github.com/chazu/ember/term"
)

// Exit asks p to exit with reason. It may be called by p's own step or by
// any other goroutine. Only the first call has any effect; it reports
// whether this call set the reason.
//
// A running process notices at its next reduction check. A waiting process
// is handed back to its scheduler for teardown.
func (p *Process) Exit(reason term.Term) bool {
	return p.exit(func(h *Heap) (term.Term, error) {
		return term.CopyTo(h, reason)
	})
}

// ExitNormal exits with reason normal.
func (p *Process) ExitNormal() bool {
	return p.Exit(p.shared.Env.MustAtom("normal"))
}

// ExitWithError turns a Go error raised inside a step into the exit reason
// {error, <<"message">>}.
func (p *Process) ExitWithError(err error) bool {
	env := p.shared.Env
	return p.exit(func(h *Heap) (term.Term, error) {
		msg, berr := term.Binary(h, []byte(err.Error()))
		if berr != nil {
			return 0, berr
		}
		return term.Tuple(h, env.MustAtom("error"), msg)
	})
}

func (p *Process) exit(build func(*Heap) (term.Term, error)) bool {
	p.exitMu.Lock()
	if p.exitSet {
		p.exitMu.Unlock()
		return false
	}
	h := NewHeap(p.shared.Alloc, p.shared.Binaries, 8)
	reason, err := build(h)
	if err != nil {
		// The reason could not be kept; an atom needs no memory.
		h.Free()
		log.Warningf("process %s: keeping exit reason: %s", p, err)
		reason = p.shared.Env.MustAtom("system_limit")
	}
	p.exitReason = reason
	p.exitHeap = h
	p.exitSet = true
	p.exitPending.Store(true)
	p.exitMu.Unlock()

	// Runnable processes are in a run queue and are torn down when next
	// dequeued. Waiting ones are not, so their scheduler is told.
	if p.status.CompareAndSwap(int32(Waiting), int32(Exiting)) {
		p.notify()
	}
	return true
}

// ExitReason returns the reason p exited with, once an exit has been
// requested.
func (p *Process) ExitReason() (term.Term, bool) {
	p.exitMu.Lock()
	defer p.exitMu.Unlock()
	if !p.exitSet || p.exitReason == 0 {
		return 0, false
	}
	return p.exitReason, true
}
