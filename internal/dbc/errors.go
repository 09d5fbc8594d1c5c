package dbc

import "errors"

// Sentinel errors for database construction.
var (
	// ErrInvalidPropertyValue indicates attribute text that cannot be parsed
	// according to the attribute's data type.
	ErrInvalidPropertyValue = errors.New("dbc: invalid custom property value")

	// ErrUnknownDataType indicates a custom property definition whose data
	// type is not one of INT, HEX, FLOAT, STRING or ENUM.
	ErrUnknownDataType = errors.New("dbc: unknown custom property data type")

	// ErrUnknownObjectType indicates an object type name that is not
	// node, message or signal.
	ErrUnknownObjectType = errors.New("dbc: unknown object type")

	// ErrUnknownValueType indicates a signal value type name that is not
	// signed, unsigned, float or double.
	ErrUnknownValueType = errors.New("dbc: unknown signal value type")
)
