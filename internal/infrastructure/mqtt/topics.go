package mqtt

import "strings"

// Root is the first level of every topic the service uses.
const Root = "graylogic"

// levelEscaper keeps names inside one topic level.
var levelEscaper = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// Topics builds the service's topic names. The zero value is ready to use.
//
//	mqtt.Topics{}.CANState("vehicle", "EngineData")
//	// graylogic/can/state/vehicle/EngineData
type Topics struct{}

// CANFrame is where gateways publish raw frames for a bus.
func (Topics) CANFrame(bus string) string {
	return join("can", "frame", bus)
}

// CANState is where the decoded signals of one message are retained. The
// message name is escaped so it stays a single level.
func (Topics) CANState(bus, message string) string {
	return join("can", "state", bus, levelEscaper.Replace(message))
}

// CANHealth carries the bridge health for a bus.
func (Topics) CANHealth(bus string) string {
	return join("health", "can", bus)
}

// SystemStatus carries the online, offline and LWT status of the client.
func (Topics) SystemStatus() string {
	return join("system", "status")
}

func join(levels ...string) string {
	return Root + "/" + strings.Join(levels, "/")
}
