// Package dbc assembles the object model of a CAN network database (DBC).
//
// A DBC file describes the nodes on a CAN bus, the messages they transmit,
// the signals packed into each message, value tables that label raw signal
// values, and vendor-defined attributes ("custom properties") attached to
// any of those entities.
//
// This package does not read DBC text. A grammar parser (or a recorded
// event journal, see internal/journal) drives a Builder with discrete
// construction events in file order:
//
//	b := dbc.NewBuilder()
//	b.AddNode(dbc.Node{Name: "ECU1"})
//	b.AddMessage(dbc.Message{ID: 0x100, Name: "EngineData", DLC: 8, Transmitter: "ECU1"})
//	b.AddSignal(dbc.Signal{Name: "RPM", StartBit: 0, Length: 16, ByteOrder: 1, Factor: 0.25})
//	b.AddMessageCycleTime(0x100, 20)
//	db := b.Build()
//
// Events may reference entities that were never declared; such events are
// dropped without error so one stray attribute cannot abort an import.
// Only malformed attribute text (for example "abc" for an INT attribute)
// is reported, wrapped in ErrInvalidPropertyValue.
//
// # Message identifiers
//
// DBC encodes 29-bit extended identifiers by setting bit 31 of the message
// id. Messages are registered under the id exactly as received. Initial
// values, cycle times and value-table links normalise the id with
// NormalizeID before looking the message up; comments, attributes and
// value types do not. Callers addressing extended messages through the
// non-normalising operations must pass the id in the form used at
// registration.
//
// # Custom properties
//
// Attribute definitions are catalogued per ObjectType. Build back-fills
// every node, message and signal with an instance for every definition of
// its kind, initialised from the definition's default, so consumers never
// see a defined attribute missing from an entity.
//
// Thread Safety: a Builder is not safe for concurrent use. The Database
// returned by Build is an independent copy and may be shared read-only.
package dbc
