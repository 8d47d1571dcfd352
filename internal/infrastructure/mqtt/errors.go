package mqtt

import "errors"

var (
	// ErrNotConnected means the broker link is down; callers may retry later.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrConnectionFailed wraps the cause of a failed initial Connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed covers broker rejections, timeouts and oversized payloads.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed covers subscribe and unsubscribe failures.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	ErrInvalidQoS   = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
