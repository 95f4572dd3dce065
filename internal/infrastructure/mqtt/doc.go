// Package mqtt provides MQTT client connectivity for the actuation daemon.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing device commands and dispatch status
//   - Subscriptions for dispatch and stop requests
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// Device commands leave the daemon on the same flat topic scheme the protocol
// bridges already consume. Requests arrive on the daemon's own topics.
//
//	clients ──▶ graylogic/actuation/{dispatch,stop} ──▶ actuationd
//	actuationd ──▶ graylogic/command/{protocol}/{device} ──▶ bridges
//	actuationd ──▶ graylogic/actuation/status/{handle}
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Dispatch(), 1,
//	    func(topic string, payload []byte) error {
//	        return svc.HandleDispatch(ctx, payload)
//	    })
package mqtt
