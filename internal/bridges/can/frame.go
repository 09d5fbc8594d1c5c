package can

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame payload limits.
const (
	// maxStandardID is the largest 11-bit identifier.
	maxStandardID = 0x7FF

	// maxExtendedID is the largest 29-bit identifier.
	maxExtendedID = 0x1FFFFFFF

	// maxFDPayload is the CAN FD payload limit in bytes.
	maxFDPayload = 64
)

// Frame is a received CAN frame as carried on the frame topic.
type Frame struct {
	// ID is the arbitration id without any flag bits.
	ID uint32 `json:"id"`

	// Extended marks a 29-bit identifier.
	Extended bool `json:"extended,omitempty"`

	// Data is the payload, base64 in JSON.
	Data []byte `json:"data"`

	// Timestamp is when the frame was seen on the bus. Zero means unknown.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ParseFrame decodes and validates a frame payload, either a JSON object
// or a CBOR map.
func ParseFrame(payload []byte) (Frame, error) {
	var f Frame
	var err error
	if isJSON(payload) {
		err = json.Unmarshal(payload, &f)
	} else {
		f, err = unmarshalFrameCBOR(payload)
	}
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks the identifier range and payload length.
func (f Frame) Validate() error {
	limit := uint32(maxStandardID)
	if f.Extended {
		limit = maxExtendedID
	}
	if f.ID > limit {
		return fmt.Errorf("%w: id %#x out of range", ErrInvalidFrame, f.ID)
	}
	if len(f.Data) > maxFDPayload {
		return fmt.Errorf("%w: %d byte payload", ErrInvalidFrame, len(f.Data))
	}
	return nil
}
