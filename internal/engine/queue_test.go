package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
)

func TestInbox_FIFO(t *testing.T) {
	q := newInbox(8)
	ctx := context.Background()

	require.NoError(t, q.Submit(ctx, protocol.PlayFile{Name: "a"}))
	require.NoError(t, q.Submit(ctx, protocol.AdvanceFrame{}))
	require.NoError(t, q.Submit(ctx, protocol.Stop{}))

	for _, want := range []protocol.Command{protocol.PlayFile{Name: "a"}, protocol.AdvanceFrame{}, protocol.Stop{}} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestInbox_LatestWins(t *testing.T) {
	q := newInbox(8)
	ctx := context.Background()

	require.NoError(t, q.Submit(ctx, protocol.SkipTo{Tick: 1}))
	require.NoError(t, q.Submit(ctx, protocol.SkipTo{Tick: 2}))
	require.NoError(t, q.Submit(ctx, protocol.SetTraceOptions{Options: ir.TraceDrawOptions{ZOffset: 3}}))

	l := q.takeLatest()
	require.NotNil(t, l.skipTo)
	assert.Equal(t, uint32(2), *l.skipTo)
	assert.Nil(t, l.pauseAt)
	require.NotNil(t, l.traceOpts)
	assert.Equal(t, float32(3), l.traceOpts.ZOffset)

	l = q.takeLatest()
	assert.Nil(t, l.skipTo, "cells are emptied by take")
	assert.Equal(t, 0, q.Len())
}

func TestInbox_SignalsAvailability(t *testing.T) {
	q := newInbox(8)
	require.NoError(t, q.Submit(context.Background(), protocol.PauseAt{Tick: 9}))

	select {
	case <-q.Wait():
	default:
		t.Fatal("submit must signal the driver")
	}
}

func TestInbox_FullBlocksUntilSpace(t *testing.T) {
	q := newInbox(1)
	require.NoError(t, q.Submit(context.Background(), protocol.Stop{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Submit(ctx, protocol.Stop{}), context.DeadlineExceeded)

	// latest-wins values never wait for space
	require.NoError(t, q.Submit(context.Background(), protocol.SkipTo{Tick: 4}))

	done := make(chan error, 1)
	go func() { done <- q.Submit(context.Background(), protocol.AdvanceFrame{}) }()

	time.Sleep(20 * time.Millisecond)
	_, ok := q.TryDequeue()
	require.True(t, ok)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked submit was not woken")
	}

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, protocol.AdvanceFrame{}, got)
}

func TestInbox_CloseWakesSubmitters(t *testing.T) {
	q := newInbox(1)
	require.NoError(t, q.Submit(context.Background(), protocol.Stop{}))

	done := make(chan error, 1)
	go func() { done <- q.Submit(context.Background(), protocol.Stop{}) }()

	time.Sleep(20 * time.Millisecond)
	q.Close()
	q.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not wake the submitter")
	}

	_, ok := q.TryDequeue()
	assert.True(t, ok, "queued commands survive Close")
}
