package backend

import "errors"

var (
	// ErrPublishFailed wraps a publish error together with the topic.
	ErrPublishFailed = errors.New("backend: publish failed")

	// ErrNoPublisher is returned when the backend has no MQTT client.
	ErrNoPublisher = errors.New("backend: no publisher")
)
