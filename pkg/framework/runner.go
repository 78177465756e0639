package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner runs the host-side goroutines (transport endpoints, status
// publishers) next to the scheduler and collects their errors.
type Runner struct {
	Context context.Context
	Runners []Runnable

	cancel  func()
	results chan runResult
	forced  chan struct{}
}

type runResult struct {
	name string
	err  error
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner whose context is derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{results: make(chan runResult), forced: make(chan struct{})}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals stops the runner on CtrlC or SIGTERM. A second signal
// makes Wait return without waiting for the runnables.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.forced)
	}()
	return r
}

// Stop cancels the runner context.
func (r *Runner) Stop() {
	r.cancel()
}

func nameOf(runner Runnable, index int) string {
	if named, ok := runner.(Named); ok {
		return named.Name()
	}
	return "#" + strconv.Itoa(index)
}

// Go spawns Runnables with the runner context.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := nameOf(runner, len(r.Runners))
		r.Runners = append(r.Runners, runner)
		go func(runner Runnable) {
			glog.V(4).Infof("runner %s started", name)
			r.results <- runResult{name: name, err: runner.Run(r.Context)}
		}(runner)
	}
	return r
}

// EndScheduler ends s with code once the runner context is done, so a
// signal stops the scheduler loop running on the main goroutine.
func (r *Runner) EndScheduler(s *Scheduler, mb *Mailbox, code int) *Runner {
	return r.Go(NamedRun("scheduler-stop", RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		mb.Deliver(func() { s.End(code) })
		return ctx.Err()
	})))
}

// Wait waits until all Runnables stop and aggregates their errors other
// than context cancellation.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for remaining := len(r.Runners); remaining > 0; remaining-- {
		select {
		case <-r.forced:
			return errors.New("forced exit")
		case res := <-r.results:
			switch res.err {
			case nil, context.Canceled:
				glog.V(4).Infof("runner %s stopped", res.name)
			default:
				glog.Errorf("runner %s stopped: %v", res.name, res.err)
				errs.Add(fmt.Errorf("%s: %v", res.name, res.err))
			}
		}
	}
	return errs.Aggregate()
}

// RunWithContextCloser runs fn and closes closer when ctx is canceled
// or fn returns, whichever happens first.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}
