package prober

import "time"

// Quality is the terminal classification of one channel probe.
type Quality string

const (
	QualityNormal            Quality = "normal"
	QualityDark              Quality = "dark"
	QualityTCPFailed         Quality = "tcp-failed"
	QualityProtocolError     Quality = "protocol-error"
	QualityException         Quality = "exception"
	QualityAttemptsExhausted Quality = "attempts-exhausted"
)

// Qualities lists every classification in a stable order.
func Qualities() []Quality {
	return []Quality{
		QualityNormal,
		QualityDark,
		QualityTCPFailed,
		QualityProtocolError,
		QualityException,
		QualityAttemptsExhausted,
	}
}

// Result is the outcome of probing one channel. A dark stream is still
// accessible; only failures to obtain frames make a channel inaccessible.
type Result struct {
	Channel       int           `json:"channel"`
	Accessible    bool          `json:"accessible"`
	Quality       Quality       `json:"quality"`
	FramesChecked int           `json:"frames_checked"`
	FramesDark    int           `json:"frames_dark"`
	Attempts      int           `json:"attempts"`
	Failure       FailureClass  `json:"failure,omitempty"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
}
