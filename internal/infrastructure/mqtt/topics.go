package mqtt

import "strings"

// TopicPrefix is the root of every facility topic.
const TopicPrefix = "graylogic/facility"

// Topics builds facility MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.ThermostatCommand("tstat-1") // graylogic/facility/command/thermostat/tstat-1
type Topics struct{}

// ThermostatState is where a thermostat reports temperature and setpoint.
func (Topics) ThermostatState(thermostatID string) string {
	return TopicPrefix + "/state/thermostat/" + thermostatID
}

// AllThermostatStates matches every thermostat state topic.
func (Topics) AllThermostatStates() string {
	return TopicPrefix + "/state/thermostat/+"
}

// ThermostatCommand is where directives for a thermostat are published.
func (Topics) ThermostatCommand(thermostatID string) string {
	return TopicPrefix + "/command/thermostat/" + thermostatID
}

// Manifest is the retained topic carrying a site's latest manifest.
func (Topics) Manifest(siteID string) string {
	return TopicPrefix + "/manifest/" + siteID
}

// SystemStatus carries the service's online/offline status (and LWT).
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// ThermostatIDFromStateTopic extracts the thermostat ID from a state topic.
func ThermostatIDFromStateTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, TopicPrefix+"/state/thermostat/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
