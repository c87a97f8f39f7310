//go:build unix

package runtime

import (
	goerrors "errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// removeStale unlinks a leftover socket file. A missing file is not an error.
func removeStale(path string) error {
	if err := unix.Unlink(path); err != nil && !goerrors.Is(err, unix.ENOENT) {
		return fmt.Errorf("unlinking the socket %s failed: %w", path, os.NewSyscallError("unlink", err))
	}
	return nil
}

// bindPassive creates a Unix stream socket bound to path and marks it as
// listening with the given backlog. The returned listener does not unlink
// path on Close; the caller owns the filesystem entry.
func bindPassive(path string, backlog int) (*net.UnixListener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("creating the socket failed: %w", os.NewSyscallError("socket", err))
	}
	unix.CloseOnExec(fd)

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("binding the socket to %s failed: %w", path, os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		_ = os.Remove(path)
		return nil, fmt.Errorf("marking %s as a listen socket failed: %w", path, os.NewSyscallError("listen", err))
	}

	// FileListener duplicates the descriptor, ours is closed on return.
	f := os.NewFile(uintptr(fd), path)
	defer f.Close()
	ln, err := net.FileListener(f)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("wrapping listen socket %s: %w", path, err)
	}
	unixLn, ok := ln.(*net.UnixListener)
	if !ok {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("listen socket %s is %T, not a unix listener", path, ln)
	}
	return unixLn, nil
}
