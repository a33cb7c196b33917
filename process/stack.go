package process

import (
	"github.com/chazu/ember/term"
)

// Step is what a Code function reports back to the scheduler.
type Step int

const (
	// Continue runs the current frame again if the quantum allows.
	Continue Step = iota
	// Yield ends the quantum; the process goes to the back of its queue.
	Yield
	// Wait parks the process until a message arrives.
	Wait
)

func (s Step) String() string {
	switch s {
	case Continue:
		return "continue"
	case Yield:
		return "yield"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

// Code is the native body of a frame. It runs on the scheduler goroutine,
// must not block, and should charge reductions for the work it does. To
// exit, it calls Exit and returns.
type Code func(p *Process) Step

// Frame is one entry on the call stack.
type Frame struct {
	Module   term.Term
	Function term.Term
	Arity    int
	Code     Code
}

// Placement says whether PlaceFrame adds a frame or replaces the top one.
type Placement int

const (
	// Push adds a frame, as for a body call.
	Push Placement = iota
	// Replace swaps the top frame, as for a tail call.
	Replace
)

// PlaceFrame installs frame as the frame to run next.
func (p *Process) PlaceFrame(frame Frame, placement Placement) {
	if placement == Replace && len(p.frames) > 0 {
		p.frames[len(p.frames)-1] = frame
		return
	}
	p.frames = append(p.frames, frame)
}

// ReturnFromCall pops the current frame. It returns false when that was
// the last one; the process then has nothing left to run and exits
// normally.
func (p *Process) ReturnFromCall() bool {
	if len(p.frames) > 0 {
		p.frames[len(p.frames)-1] = Frame{}
		p.frames = p.frames[:len(p.frames)-1]
	}
	if len(p.frames) == 0 {
		p.ExitNormal()
		return false
	}
	return true
}

// CurrentFrame returns the frame that runs next.
func (p *Process) CurrentFrame() (Frame, bool) {
	if len(p.frames) == 0 {
		return Frame{}, false
	}
	return p.frames[len(p.frames)-1], true
}

// Depth returns the number of frames.
func (p *Process) Depth() int { return len(p.frames) }

// StackPush pushes t on the term stack.
func (p *Process) StackPush(t term.Term) {
	p.stack = append(p.stack, t)
}

// StackPeek returns the term n slots below the top; 0 is the top.
func (p *Process) StackPeek(n int) (term.Term, bool) {
	if n < 0 || n >= len(p.stack) {
		return 0, false
	}
	return p.stack[len(p.stack)-1-n], true
}

// StackPop removes the top n terms. It returns false, removing nothing,
// when fewer than n are present.
func (p *Process) StackPop(n int) bool {
	if n < 0 || n > len(p.stack) {
		return false
	}
	p.stack = p.stack[:len(p.stack)-n]
	return true
}

// StackLen returns the number of terms on the stack.
func (p *Process) StackLen() int { return len(p.stack) }
