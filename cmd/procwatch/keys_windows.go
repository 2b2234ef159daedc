//go:build windows

package main

import (
	"context"
	"os"
)

// watchKeys calls cancel when a quit key arrives on f or f is closed. The
// console read cannot be interrupted, so the reader goroutine stays blocked
// until the next key or process exit; watchKeys itself returns with ctx.
func watchKeys(ctx context.Context, f *os.File, cancel context.CancelFunc) {
	quit := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := f.Read(buf)
			if err != nil || (n == 1 && isQuitKey(buf[0])) {
				close(quit)
				return
			}
		}
	}()

	select {
	case <-quit:
		cancel()
	case <-ctx.Done():
	}
}
