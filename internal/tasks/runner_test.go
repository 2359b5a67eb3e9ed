package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerExecutesTasks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := NewRunner(8, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = runner.Run(ctx, 2)
		close(done)
	}()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		runner.Enqueue(func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}

	require.Eventually(t, func() bool { return ran.Load() == 5 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestRunnerSurvivesTaskErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := NewRunner(8, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = runner.Run(ctx, 1)
		close(done)
	}()

	var ran atomic.Int32
	runner.Enqueue(func(context.Context) error { return errors.New("boom") })
	runner.Enqueue(func(context.Context) error {
		ran.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return ran.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
