package apiclient

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// transportEnvelope rewrites timeout and unreachable-network failures into the
// standard envelope so callers never branch on transport error types.
// Cancellation by the caller is not rewritten.
func transportEnvelope(ctx context.Context, err error) (Envelope, string, bool) {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return Envelope{}, "", false
	}

	if isTimeout(err) {
		return Envelope{
			Success: false,
			Message: MsgTimeout,
			Errors:  ErrorList{err.Error()},
		}, "timeout", true
	}

	if isNetwork(err) {
		return Envelope{
			Success: false,
			Message: MsgNetwork,
			Errors:  ErrorList{err.Error()},
		}, "network", true
	}

	return Envelope{}, "", false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isNetwork(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}
