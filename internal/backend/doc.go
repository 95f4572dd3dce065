// Package backend implements actuation.Backend over MQTT.
//
// Every hardware write becomes a JSON command published to the bridge
// topic of the device's protocol:
//
//	graylogic/command/{protocol}/{device}
//
//	{"id":"…","device":"Edge","kind":"vibrate","index":0,
//	 "command":"scalar","value":0.5,"source":"actuation"}
//
// Protocol bridges own device transport; this package only publishes.
// Publishing is throttled by a token bucket shared by all devices so a
// burst of pattern points cannot flood the broker.
package backend
