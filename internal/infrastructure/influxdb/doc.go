// Package influxdb records decoded CAN signal values and database build
// counters in InfluxDB v2.
//
// Every decoded signal becomes a can_signal point tagged with bus, message
// and signal, carrying the scaled value. Each journal build writes one
// dbc_build point tagged with the database name. Points are batched by the
// library's non-blocking write API, so write errors arrive on the
// SetOnError callback rather than as return values.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSignalValue("vehicle", "EngineData", "RPM", 2150, frameTime)
package influxdb
