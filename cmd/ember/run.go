package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/ember/node"
	"github.com/chazu/ember/process"
	"github.com/chazu/ember/scheduler"
	"github.com/chazu/ember/term"
)

var (
	runCounters int
	runRounds   int
	runTimeout  time.Duration
)

// runCmd runs the countdown workload
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic countdown workload",
	Long: `Spawns a collector and a number of counter processes spread over
every scheduler. Each counter burns through its rounds one reduction at a
time, then reports to the collector by name. The run ends when the
collector has heard from every counter.

Example:
  ember run --counters 10000 --rounds 500`,
	Args: cobra.NoArgs,
	RunE: runWorkload,
}

func init() {
	runCmd.Flags().IntVar(&runCounters, "counters", 1000, "Number of counter processes")
	runCmd.Flags().IntVar(&runRounds, "rounds", 10000, "Reductions each counter spends before reporting")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", time.Minute, "Give up after this long")
}

func runWorkload(cmd *cobra.Command, _ []string) error {
	if runCounters < 1 || runRounds < 0 {
		return fmt.Errorf("need at least one counter and non-negative rounds")
	}
	n, err := node.New(cfg)
	if err != nil {
		return err
	}
	defer n.Shutdown()

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	start := time.Now()
	reason, err := countdown(ctx, n, runCounters, runRounds)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintf(cmd.OutOrStdout(), "collector exited with %s after %s\n", n.Env().Format(reason), elapsed.Round(time.Millisecond))
	printStats(cmd.OutOrStdout(), n)
	return nil
}

// countdown spawns the collector and the counters, runs n until the
// collector exits and returns its exit reason.
func countdown(ctx context.Context, n *node.Node, counters, rounds int) (term.Term, error) {
	env := n.Env()
	collectorName := env.MustAtom("collector")
	done := env.MustAtom("done")
	module := env.MustAtom("ember")

	collected := 0
	collector := func(p *process.Process) process.Step {
		for {
			msg, ok := p.Receive()
			if !ok {
				return process.Wait
			}
			p.Reduce()
			if msg.IsTuple() && msg.TupleElements()[0] == done {
				collected++
			}
			if collected == counters {
				reason, err := term.Tuple(p, env.MustAtom("collected"), term.MustSmallInteger(int64(collected)))
				if err != nil {
					p.ExitWithError(err)
				} else {
					p.Exit(reason)
				}
				return process.Continue
			}
		}
	}
	col, err := n.Spawn(process.Frame{Module: module, Function: env.MustAtom("collector"), Code: collector},
		process.Options{Priority: process.High})
	if err != nil {
		return 0, err
	}
	if err := n.Register(collectorName, col.Pid()); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	n.AddExitObserver(scheduler.ExitObserverFunc(func(p *process.Process, _ term.Term) {
		if p.Pid() == col.Pid() {
			cancel()
		}
	}))

	for i := 0; i < counters; i++ {
		left := rounds
		counter := func(p *process.Process) process.Step {
			for left > 0 {
				if p.ShouldYield() {
					return process.Yield
				}
				p.Reduce()
				left--
			}
			msg, err := term.Tuple(p, done, p.Pid())
			if err == nil {
				err = n.Send(collectorName, msg)
			}
			if err != nil {
				p.ExitWithError(err)
				return process.Continue
			}
			p.ExitNormal()
			return process.Continue
		}
		if _, err := n.Spawn(process.Frame{Module: module, Function: env.MustAtom("counter"), Code: counter}, process.Options{}); err != nil {
			return 0, err
		}
	}

	if err := n.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return 0, err
	}
	reason, ok := n.ExitReason(col.Pid())
	if !ok {
		return 0, fmt.Errorf("collector still running: %w", ctx.Err())
	}
	return reason, nil
}

func printStats(w io.Writer, n *node.Node) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHEDULER\tQUANTA\tSPAWNED\tEXITED\tPROCESSES")
	for _, s := range n.Stats() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.ID, s.Quanta, s.Spawned, s.Exited, s.Processes)
	}
	tw.Flush()

	a := n.Alloc().Stats()
	fmt.Fprintf(w, "allocator %s: %d allocs, %d frees, %d live blocks (%d bytes), %d fallbacks\n",
		a.Platform, a.Allocs, a.Frees, a.LiveBlocks, a.LiveBytes, a.Fallbacks)
}
