package prober

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/ManuGH/camwatch/internal/stream"
)

// FailureClass names why a probe attempt failed.
type FailureClass string

const (
	FailureNone                FailureClass = ""
	FailureTCPUnreachable      FailureClass = "tcp_unreachable"
	FailureStreamOpenTimeout   FailureClass = "stream_open_timeout"
	FailureStreamOpenRefused   FailureClass = "stream_open_refused"
	FailureStreamProtocolError FailureClass = "stream_protocol_error"
	FailureFrameRead           FailureClass = "frame_read_failure"
	FailureAttemptsExhausted   FailureClass = "attempts_exhausted"
	FailureUnexpected          FailureClass = "unexpected_exception"
)

// Classify maps an attempt error to its failure class and reports whether
// another attempt may be made. Cancellation of the caller's context is never
// retryable.
func Classify(err error) (FailureClass, bool) {
	if err == nil {
		return FailureNone, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureUnexpected, false
	}

	switch {
	case errors.Is(err, stream.ErrProtocol):
		return FailureStreamProtocolError, false
	case errors.Is(err, stream.ErrTimeout):
		return FailureStreamOpenTimeout, true
	case errors.Is(err, stream.ErrRefused), errors.Is(err, syscall.ECONNREFUSED):
		return FailureStreamOpenRefused, true
	case errors.Is(err, stream.ErrPrematureEOF), errors.Is(err, stream.ErrIO):
		return FailureFrameRead, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureStreamOpenTimeout, true
	}
	return FailureUnexpected, false
}

// terminalQuality maps a non-retryable failure to the reported quality.
func terminalQuality(class FailureClass) Quality {
	if class == FailureStreamProtocolError {
		return QualityProtocolError
	}
	return QualityException
}
