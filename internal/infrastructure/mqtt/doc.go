// Package mqtt is the broker session behind the CAN bridge.
//
// Gateways publish raw frames on graylogic/can/frame/{bus}. The bridge
// subscribes there and retains decoded messages on
// graylogic/can/state/{bus}/{message} and its health on
// graylogic/health/can/{bus}. Topics names all of them.
//
// The client reconnects with backoff, replays subscriptions after a
// reconnect and keeps a retained presence record on graylogic/system/status,
// with a broker-side will for unexpected drops. Enable cfg.Broker.TLS for
// remote brokers; credentials come from GRAYLOGIC_CAN_MQTT_USERNAME and
// GRAYLOGIC_CAN_MQTT_PASSWORD.
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.CANFrame("vehicle"), 1, handleFrame)
package mqtt
