package can

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Gateways may publish frames as JSON objects or as compact CBOR maps with
// integer keys. ParseFrame tells them apart by the first byte.

// encMode encodes frames deterministically.
var encMode cbor.EncMode

// decMode decodes frames leniently so gateways can add keys.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// cborFrame is the binary wire form of a Frame.
type cborFrame struct {
	ID       uint32 `cbor:"1,keyasint"`
	Extended bool   `cbor:"2,keyasint,omitempty"`
	Data     []byte `cbor:"3,keyasint"`

	// Timestamp is Unix microseconds; 0 means unknown.
	Timestamp int64 `cbor:"4,keyasint,omitempty"`
}

// MarshalFrameCBOR encodes f in the binary frame format.
func MarshalFrameCBOR(f Frame) ([]byte, error) {
	wire := cborFrame{ID: f.ID, Extended: f.Extended, Data: f.Data}
	if !f.Timestamp.IsZero() {
		wire.Timestamp = f.Timestamp.UnixMicro()
	}
	return encMode.Marshal(wire)
}

func unmarshalFrameCBOR(payload []byte) (Frame, error) {
	var wire cborFrame
	if err := decMode.Unmarshal(payload, &wire); err != nil {
		return Frame{}, err
	}
	f := Frame{ID: wire.ID, Extended: wire.Extended, Data: wire.Data}
	if wire.Timestamp != 0 {
		f.Timestamp = time.UnixMicro(wire.Timestamp).UTC()
	}
	return f, nil
}

// isJSON reports whether payload looks like a JSON object.
func isJSON(payload []byte) bool {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
