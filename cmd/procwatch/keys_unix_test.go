//go:build !windows

package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatch(t *testing.T, ctx context.Context, r *os.File) (context.Context, chan struct{}) {
	t.Helper()
	keyCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchKeys(ctx, r, cancel)
	}()
	return keyCtx, done
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("watchKeys did not return")
	}
}

func TestWatchKeys(t *testing.T) {
	t.Run("quit_key_cancels", func(t *testing.T) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		defer r.Close()
		defer w.Close()

		keyCtx, done := startWatch(t, context.Background(), r)
		_, err = w.Write([]byte("xq"))
		require.NoError(t, err)

		waitClosed(t, done)
		assert.Error(t, keyCtx.Err())
	})

	t.Run("ctrl_c_cancels", func(t *testing.T) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		defer r.Close()
		defer w.Close()

		keyCtx, done := startWatch(t, context.Background(), r)
		_, err = w.Write([]byte{3})
		require.NoError(t, err)

		waitClosed(t, done)
		assert.Error(t, keyCtx.Err())
	})

	t.Run("returns_when_context_done", func(t *testing.T) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		defer r.Close()
		defer w.Close()

		ctx, stop := context.WithCancel(context.Background())
		keyCtx, done := startWatch(t, ctx, r)
		stop()

		// no input ever arrives; the poll timeout lets the loop see ctx
		waitClosed(t, done)
		assert.NoError(t, keyCtx.Err())
	})

	t.Run("closed_input_cancels", func(t *testing.T) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		defer r.Close()

		keyCtx, done := startWatch(t, context.Background(), r)
		require.NoError(t, w.Close())

		waitClosed(t, done)
		assert.Error(t, keyCtx.Err())
	})
}
