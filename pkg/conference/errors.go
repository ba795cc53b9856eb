package conference

import "errors"

var (
	// codec / configuration errors
	errUnknownCodecName = errors.New("unknown codec name")
	// platform probe errors
	errProbeFailed = errors.New("platform capability probe failed")

	// ErrClosed is returned when an event reaches a conference after Close.
	ErrClosed = errors.New("conference is closed")
)
