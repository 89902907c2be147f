package mqtt

import "fmt"

// TopicPrefix is the root of every FarmWatch topic.
const TopicPrefix = "farmwatch"

// Topics provides builders for FarmWatch MQTT topics.
//
//	farmwatch/state/{device}       derived state, retained
//	farmwatch/presence/{device}    online/offline, retained
//	farmwatch/pump/{id}/command    manual pump commands
//	farmwatch/system/status        service status and LWT, retained
type Topics struct{}

// DeviceState returns the retained derived-state topic of a sensor node.
//
// Example: farmwatch/state/device_001
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DevicePresence returns the retained presence topic of a sensor node.
//
// Example: farmwatch/presence/device_001
func (Topics) DevicePresence(deviceID string) string {
	return fmt.Sprintf("%s/presence/%s", TopicPrefix, deviceID)
}

// PumpCommand returns the command topic of a pump.
//
// Example: farmwatch/pump/Pump1/command
func (Topics) PumpCommand(pumpID string) string {
	return fmt.Sprintf("%s/pump/%s/command", TopicPrefix, pumpID)
}

// SystemStatus returns the service status topic.
//
// Example: farmwatch/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllDeviceStates matches every derived-state topic.
//
// Pattern: farmwatch/state/+
func (Topics) AllDeviceStates() string {
	return TopicPrefix + "/state/+"
}

// AllPumpCommands matches every pump command topic.
//
// Pattern: farmwatch/pump/+/command
func (Topics) AllPumpCommands() string {
	return TopicPrefix + "/pump/+/command"
}

// AllTopics matches all FarmWatch traffic.
//
// Pattern: farmwatch/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
