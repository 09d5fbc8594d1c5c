// Package can decodes CAN frames against a built DBC database and publishes
// the resulting signal values over MQTT.
//
// Frames arrive as JSON on graylogic/can/frame/{bus}, published by whatever
// owns the physical interface (a SocketCAN forwarder, a logger replay, a
// gateway). For each frame the bridge looks up the message by identifier,
// extracts every signal's bit field, applies factor and offset and publishes
// a state message on graylogic/can/state/{bus}/{message}. Multiplexed
// signals are only decoded when the multiplexor selects their group.
//
// Decoded values can also be forwarded to a MetricWriter, which the service
// wires to InfluxDB.
//
// Thread Safety: Bridge methods are safe for concurrent use. The database
// can be swapped at runtime with SetDatabase.
package can
