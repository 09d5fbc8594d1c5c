// Package journal records DBC construction events as YAML and replays them
// into a dbc.Builder.
//
// A journal is what a DBC grammar front-end would emit while walking a file:
// one event per definition line, in source order. Keeping the events as data
// lets the service rebuild a database without linking a parser.
//
// Document format:
//
//	name: powertrain
//	events:
//	  - op: add_node
//	    node: {name: ECU}
//	  - op: add_message
//	    message: {id: 0x80000123, name: EngineData, dlc: 8, transmitter: ECU}
//	  - op: add_signal
//	    signal: {name: RPM, start_bit: 0, length: 16, byte_order: intel, factor: 0.25}
//	  - op: add_message_cycle_time
//	    message_id: 0x80000123
//	    cycle_time: 100
//
// add_message normalises the id before registering, as a parser does when
// it reads a BO_ line. Every other op passes message_id through unchanged so
// the builder's own normalisation rules apply.
//
// Usage:
//
//	j, err := journal.Load("journals/powertrain.yaml")
//	if err != nil {
//	    return err
//	}
//	b := dbc.NewBuilder()
//	if err := j.Replay(b); err != nil {
//	    return err
//	}
//	db := b.Build()
package journal
