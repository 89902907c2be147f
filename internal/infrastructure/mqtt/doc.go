// Package mqtt relays FarmWatch state to an MQTT broker.
//
// The service is the only writer of its topics:
//
//	FarmWatch Core ──▶ MQTT Broker ──▶ farm agents, Node-RED, HA
//
// Derived per-device state and presence are published retained so a late
// subscriber sees the current picture. Manual pump commands are published
// once for agents that drive relays directly. A Last Will on the status
// topic marks the service offline if it dies.
//
// The broker is optional. With mqtt.enabled false the service never
// connects and the relay is skipped.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.DeviceState("device_001"), state, true)
package mqtt
