package process

import (
	"sync"

	"github.com/chazu/ember/term"
)

type message struct {
	term term.Term
	frag *Heap
}

type mailbox struct {
	mu   sync.Mutex
	msgs []message
}

func (m *mailbox) drain() {
	m.mu.Lock()
	msgs := m.msgs
	m.msgs = nil
	m.mu.Unlock()
	for _, msg := range msgs {
		if msg.frag != nil {
			msg.frag.Free()
		}
	}
}

// Send delivers a copy of msg to p. The copy lives in a fragment owned by
// the mailbox until received, so the receiver's heap is never touched by
// the sender. Messages to a process that is exiting are dropped.
func (p *Process) Send(msg term.Term) error {
	if !p.IsAlive() {
		return nil
	}
	frag, copied, err := newFragment(p.shared.Alloc, p.shared.Binaries, msg)
	if err != nil {
		return err
	}

	p.mbox.mu.Lock()
	if p.Status() == Exited || p.tornDown.Load() {
		p.mbox.mu.Unlock()
		if frag != nil {
			frag.Free()
		}
		return nil
	}
	p.mbox.msgs = append(p.mbox.msgs, message{term: copied, frag: frag})
	woke := p.status.CompareAndSwap(int32(Waiting), int32(Runnable))
	p.mbox.mu.Unlock()

	if woke {
		p.notify()
	}
	return nil
}

// Receive takes the oldest message. Its fragment joins the process heap.
func (p *Process) Receive() (term.Term, bool) {
	p.mbox.mu.Lock()
	if len(p.mbox.msgs) == 0 {
		p.mbox.mu.Unlock()
		return 0, false
	}
	msg := p.mbox.msgs[0]
	p.mbox.msgs[0] = message{}
	p.mbox.msgs = p.mbox.msgs[1:]
	p.mbox.mu.Unlock()

	p.heap.adopt(msg.frag)
	return msg.term, true
}

// MailboxLen returns the number of undelivered messages.
func (p *Process) MailboxLen() int {
	p.mbox.mu.Lock()
	defer p.mbox.mu.Unlock()
	return len(p.mbox.msgs)
}
