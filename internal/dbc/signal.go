package dbc

import (
	"math"
	"strconv"
	"strings"
)

// Multiplexer markers in the signal definition.
const (
	multiplexorMarker = "M"
	multiplexedMarker = "m"
)

// MultiplexingRole describes a signal's part in message multiplexing.
type MultiplexingRole int

// Multiplexing roles.
const (
	MultiplexingNone MultiplexingRole = iota
	MultiplexingMultiplexor
	MultiplexingMultiplexed
	MultiplexingUnknown
)

// String returns the lowercase name of the role.
func (r MultiplexingRole) String() string {
	switch r {
	case MultiplexingNone:
		return "none"
	case MultiplexingMultiplexor:
		return "multiplexor"
	case MultiplexingMultiplexed:
		return "multiplexed"
	default:
		return "unknown"
	}
}

// MultiplexingInfo is derived from a signal's multiplexing marker.
// Group is only set for MultiplexingMultiplexed.
type MultiplexingInfo struct {
	Role  MultiplexingRole
	Group int
}

// Motorola reports big-endian byte order.
func (s *Signal) Motorola() bool {
	return s.Msb()
}

// Msb reports whether the start bit addresses the most significant bit.
func (s *Signal) Msb() bool {
	return s.ByteOrder == ByteOrderMotorola
}

// Intel reports little-endian byte order.
func (s *Signal) Intel() bool {
	return s.Lsb()
}

// Lsb reports whether the start bit addresses the least significant bit.
func (s *Signal) Lsb() bool {
	return s.ByteOrder != ByteOrderMotorola
}

// BitMask returns a mask with the low Length bits set. Length must be 1..64.
func (s *Signal) BitMask() uint64 {
	return math.MaxUint64 >> (64 - uint(s.Length))
}

// MultiplexingInfo classifies the signal's multiplexing marker.
//
// "M" is the multiplexor; "m<n>" is multiplexed in group n, and "m<n>M" is
// multiplexed in group n while itself selecting a nested group.
func (s *Signal) MultiplexingInfo() MultiplexingInfo {
	marker := s.Multiplexing
	if strings.TrimSpace(marker) == "" {
		return MultiplexingInfo{Role: MultiplexingNone}
	}
	if marker == multiplexorMarker {
		return MultiplexingInfo{Role: MultiplexingMultiplexor}
	}
	if strings.HasPrefix(marker, multiplexedMarker) {
		digits := strings.TrimSuffix(marker[len(multiplexedMarker):], multiplexorMarker)
		if group, err := strconv.Atoi(strings.TrimSpace(digits)); err == nil {
			return MultiplexingInfo{Role: MultiplexingMultiplexed, Group: group}
		}
	}
	return MultiplexingInfo{Role: MultiplexingUnknown}
}

// IsMultiplexed reports whether any signal of the message is a multiplexor.
func (m *Message) IsMultiplexed() bool {
	for i := range m.Signals {
		if m.Signals[i].MultiplexingInfo().Role == MultiplexingMultiplexor {
			return true
		}
	}
	return false
}

// Multiplexor returns the message's multiplexor signal, if any.
func (m *Message) Multiplexor() (*Signal, bool) {
	for i := range m.Signals {
		if m.Signals[i].MultiplexingInfo().Role == MultiplexingMultiplexor {
			return &m.Signals[i], true
		}
	}
	return nil, false
}
