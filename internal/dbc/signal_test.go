package dbc

import (
	"math"
	"testing"
)

func TestMultiplexingInfo(t *testing.T) {
	tests := []struct {
		marker    string
		wantRole  MultiplexingRole
		wantGroup int
	}{
		{"", MultiplexingNone, 0},
		{"   ", MultiplexingNone, 0},
		{"M", MultiplexingMultiplexor, 0},
		{"m3", MultiplexingMultiplexed, 3},
		{"m3M", MultiplexingMultiplexed, 3},
		{"m0", MultiplexingMultiplexed, 0},
		{"m12", MultiplexingMultiplexed, 12},
		{"m 3", MultiplexingMultiplexed, 3},
		{"m 3 M", MultiplexingMultiplexed, 3},
		{"q", MultiplexingUnknown, 0},
		{"m", MultiplexingUnknown, 0},
		{"mxM", MultiplexingUnknown, 0},
		{"MM", MultiplexingUnknown, 0},
	}

	for _, tt := range tests {
		s := Signal{Multiplexing: tt.marker}
		got := s.MultiplexingInfo()
		if got.Role != tt.wantRole || got.Group != tt.wantGroup {
			t.Errorf("MultiplexingInfo(%q) = {%s %d}, want {%s %d}",
				tt.marker, got.Role, got.Group, tt.wantRole, tt.wantGroup)
		}
	}
}

func TestMultiplexingRoleString(t *testing.T) {
	tests := map[MultiplexingRole]string{
		MultiplexingNone:        "none",
		MultiplexingMultiplexor: "multiplexor",
		MultiplexingMultiplexed: "multiplexed",
		MultiplexingUnknown:     "unknown",
	}
	for role, want := range tests {
		if got := role.String(); got != want {
			t.Errorf("MultiplexingRole(%d).String() = %q, want %q", int(role), got, want)
		}
	}
}

func TestBitMask(t *testing.T) {
	tests := []struct {
		length uint16
		want   uint64
	}{
		{1, 0x1},
		{4, 0xF},
		{8, 0xFF},
		{12, 0xFFF},
		{32, 0xFFFFFFFF},
		{63, 0x7FFFFFFFFFFFFFFF},
		{64, math.MaxUint64},
	}

	for _, tt := range tests {
		s := Signal{Length: tt.length}
		if got := s.BitMask(); got != tt.want {
			t.Errorf("BitMask(length=%d) = %#x, want %#x", tt.length, got, tt.want)
		}
	}
}

func TestByteOrder(t *testing.T) {
	motorola := Signal{ByteOrder: ByteOrderMotorola}
	if !motorola.Motorola() || !motorola.Msb() || motorola.Intel() || motorola.Lsb() {
		t.Error("byte order 0 should be Motorola/Msb only")
	}

	for _, flag := range []byte{ByteOrderIntel, 2, 0xFF} {
		intel := Signal{ByteOrder: flag}
		if !intel.Intel() || !intel.Lsb() || intel.Motorola() || intel.Msb() {
			t.Errorf("byte order %d should be Intel/Lsb only", flag)
		}
	}
}

func TestMessageMultiplexor(t *testing.T) {
	msg := Message{Signals: []Signal{
		{Name: "A", Multiplexing: "m1"},
		{Name: "Mux", Multiplexing: "M"},
		{Name: "B", Multiplexing: "m2"},
	}}

	if !msg.IsMultiplexed() {
		t.Fatal("IsMultiplexed() = false, want true")
	}
	mux, ok := msg.Multiplexor()
	if !ok || mux.Name != "Mux" {
		t.Errorf("Multiplexor() = %v, %v, want Mux", mux, ok)
	}

	plain := Message{Signals: []Signal{{Name: "A"}}}
	if plain.IsMultiplexed() {
		t.Error("IsMultiplexed() = true for plain message")
	}
	if _, ok := plain.Multiplexor(); ok {
		t.Error("Multiplexor() found a signal in plain message")
	}
}
