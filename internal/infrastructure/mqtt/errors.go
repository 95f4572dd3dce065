package mqtt

import "errors"

// Broker errors. Wrapped errors keep the sentinel, so match with errors.Is.
var (
	// ErrNotConnected means the broker link is down. Commands and intake
	// subscriptions fail fast instead of queueing in the client.
	ErrNotConnected = errors.New("mqtt: broker link down")

	// ErrConnectionFailed wraps the cause of a failed startup connect.
	ErrConnectionFailed = errors.New("mqtt: connect to broker")

	// ErrPublishFailed covers device commands and status messages that the
	// broker did not acknowledge in time, or could not be encoded.
	ErrPublishFailed = errors.New("mqtt: publish")

	// ErrPayloadTooLarge is returned for payloads over the broker limit. It
	// is always joined with ErrPublishFailed.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	ErrSubscribeFailed   = errors.New("mqtt: subscribe")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe")

	// ErrInvalidQoS rejects QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic rejects empty topics and filters.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
