// Package mqtt provides the broker connection used by the facility service.
//
// The service publishes thermostat directives and compiled manifests, and
// subscribes to thermostat state reports:
//
//	graylogic/facility/state/thermostat/{thermostat_id}    inbound readings
//	graylogic/facility/command/thermostat/{thermostat_id}  outbound directives
//	graylogic/facility/manifest/{site_id}                  retained manifest
//	graylogic/facility/system/status                       LWT / online status
//
// Connections auto-reconnect with backoff and subscriptions are restored
// after every reconnect. Use TLS outside development.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllThermostatStates(), 1, handler)
package mqtt
