package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes.
//
// Device commands use the flat bridge scheme graylogic/command/{protocol}/{device}
// so existing protocol bridges can consume them unchanged.
const (
	// TopicPrefix is the root of every topic.
	TopicPrefix = "graylogic"

	// TopicPrefixActuation is the base for the daemon's own intake and status topics.
	TopicPrefixActuation = "graylogic/actuation"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceCommand("lovense", "edge-1") // graylogic/command/lovense/edge-1
type Topics struct{}

// DeviceCommand returns the topic a bridge listens on for device commands.
//
// Example: graylogic/command/lovense/edge-1
func (Topics) DeviceCommand(protocol, device string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, protocol, device)
}

// Dispatch is where dispatch requests are received.
//
// Example: graylogic/actuation/dispatch
func (Topics) Dispatch() string {
	return TopicPrefixActuation + "/dispatch"
}

// Stop is where stop requests ({"handle": N} or {"all": true}) are received.
//
// Example: graylogic/actuation/stop
func (Topics) Stop() string {
	return TopicPrefixActuation + "/stop"
}

// DispatchStatus returns the status topic for one command.
//
// Example: graylogic/actuation/status/42
func (Topics) DispatchStatus(handle uint64) string {
	return fmt.Sprintf("%s/status/%d", TopicPrefixActuation, handle)
}

// DispatchRejected is where requests that could not be started are reported.
//
// Example: graylogic/actuation/rejected
func (Topics) DispatchRejected() string {
	return TopicPrefixActuation + "/rejected"
}

// AllDispatchStatus matches every command status topic.
//
// Pattern: graylogic/actuation/status/+
func (Topics) AllDispatchStatus() string {
	return TopicPrefixActuation + "/status/+"
}

// SystemStatus returns the daemon status topic (online/offline, LWT).
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ParseDispatchStatus extracts the handle from a status topic.
func (Topics) ParseDispatchStatus(topic string) (uint64, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixActuation+"/status/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	h, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return h, true
}
