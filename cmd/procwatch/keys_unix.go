//go:build !windows

package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// watchKeys calls cancel when a quit key arrives on f or f is closed. It
// polls so that it returns once ctx is done instead of blocking in Read.
func watchKeys(ctx context.Context, f *os.File, cancel context.CancelFunc) {
	fd := int(f.Fd())
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	buf := make([]byte, 1)

	for ctx.Err() == nil {
		n, err := unix.Poll(fds, int(pollInterval.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			cancel()
			return
		}
		if n == 0 {
			continue
		}

		read, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil || read == 0 || isQuitKey(buf[0]) {
			cancel()
			return
		}
	}
}
