package main

import (
	"bytes"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run connects to the relay and prints every message until the relay closes
// the connection or a signal arrives.
func run() error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if config.BufferLength < 2 {
		return fmt.Errorf("RELAY_BUFFER_LENGTH must be at least 2, got %d", config.BufferLength)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := net.Dial("unix", config.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to the socket %s: %w", config.SocketPath, err)
	}
	defer conn.Close()
	stopWatch := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopWatch()

	render := newRenderer(config.Colours)

	var pending []byte
	buf := make([]byte, config.BufferLength)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			var messages []string
			messages, pending = splitFrames(pending, buf[:n])
			for _, m := range messages {
				fmt.Printf("Message received: %s (readlen: %d)\n", render(m), n)
			}
		}
		if err != nil {
			if goerrors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read from the socket: %w", err)
		}
	}
}

// newRenderer returns the formatter applied to every received message.
func newRenderer(colours bool) func(string) string {
	if !colours {
		return func(s string) string { return s }
	}
	style := color.New(color.FgGreen)
	return func(s string) string { return style.Render(s) }
}

// splitFrames appends chunk to pending and cuts out every NUL-terminated
// message. The unterminated tail is returned for the next read.
func splitFrames(pending, chunk []byte) ([]string, []byte) {
	pending = append(pending, chunk...)
	var messages []string
	for {
		i := bytes.IndexByte(pending, 0)
		if i < 0 {
			return messages, pending
		}
		messages = append(messages, string(pending[:i]))
		pending = pending[i+1:]
	}
}
