package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunnerWaitAggregatesErrors(t *testing.T) {
	r := NewRunner()
	r.Go(
		NamedRun("broken", RunFunc(func(context.Context) error { return errors.New("boom") })),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		RunFunc(func(context.Context) error { return nil }),
	)
	r.Stop()
	err := r.Wait()
	require.Error(t, err)
	require.Equal(t, "broken: boom", err.Error())
}

func TestRunnerEndsScheduler(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.Init(2, 1))
	mb := NewMailbox(0)
	require.NoError(t, s.Add(mb))

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).EndScheduler(s, mb, 7)
	cancel()
	require.Equal(t, 7, s.Run())
	require.NoError(t, r.Wait())
}

func TestRunWithContextCloser(t *testing.T) {
	closer := &countCloser{}
	require.NoError(t, RunWithContextCloser(context.Background(), closer, func() error { return nil }))
	require.Equal(t, 1, closer.n)

	ctx, cancel := context.WithCancel(context.Background())
	closer = &countCloser{done: make(chan struct{})}
	cancel()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-closer.done
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, closer.n)
}

type countCloser struct {
	n    int
	done chan struct{}
}

func (c *countCloser) Close() error {
	c.n++
	if c.done != nil {
		close(c.done)
	}
	return nil
}
