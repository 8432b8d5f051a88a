package mqtt

import "errors"

// Sentinel errors for the broker connection. Wrapped errors carry the
// topic or broker detail; match with errors.Is.
var (
	// ErrNotConnected means the broker link is down. Publishes and
	// subscriptions made while disconnected are not queued.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means the broker could not be reached at startup.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps a broker-side publish error.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps a rejected command topic subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects a QoS level other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects an empty topic or command suffix.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
