package domain

import (
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// IsBrokenPipe reports whether a write failed because the other end of the
// connection is gone. Such a peer will never accept another byte.
func IsBrokenPipe(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}

// IsInterrupted reports whether a blocking socket call returned early
// without a real failure: a deadline poke or a signal interruption.
func IsInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, unix.EINTR) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
