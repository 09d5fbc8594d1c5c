package dbc

import (
	"fmt"
	"testing"
)

// BenchmarkBuild_200Messages builds a database of 200 messages with 8
// signals each and a back-filled message attribute.
func BenchmarkBuild_200Messages(b *testing.B) {
	for i := 0; i < b.N; i++ {
		builder := NewBuilder()
		//nolint:errcheck // benchmark
		builder.AddCustomProperty(ObjectTypeMessage, CustomPropertyDefinition{Name: "GenMsgCycleTime", DataType: DataTypeInteger, IntMaximum: 65535})
		builder.AddCustomPropertyDefaultValue("GenMsgCycleTime", "100") //nolint:errcheck // benchmark

		for m := uint32(0); m < 200; m++ {
			builder.AddMessage(Message{ID: m, Name: fmt.Sprintf("Msg%d", m), DLC: 8})
			for s := uint16(0); s < 8; s++ {
				builder.AddSignal(Signal{Name: fmt.Sprintf("Sig%d", s), StartBit: s * 8, Length: 8, ByteOrder: ByteOrderIntel, Factor: 1})
			}
		}
		builder.Build()
	}
}

func BenchmarkNormalizeID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NormalizeID(0x80000123 | uint32(i&0xFF))
	}
}
