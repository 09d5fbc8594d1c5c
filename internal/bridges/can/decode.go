package can

import (
	"fmt"
	"math"

	"github.com/nerrad567/gray-logic-can/internal/dbc"
)

// SignalValue is one decoded signal.
type SignalValue struct {
	Name string `json:"name"`

	// Raw is the extracted bit field before scaling, sign-extended for
	// signed signals.
	Raw int64 `json:"raw"`

	// Value is the physical value (raw × factor + offset).
	Value float64 `json:"value"`

	Unit string `json:"unit,omitempty"`

	// Label is the value table entry for Raw, if any.
	Label string `json:"label,omitempty"`
}

// DecodeSignal extracts and scales one signal from a frame payload.
func DecodeSignal(sig *dbc.Signal, data []byte) (SignalValue, error) {
	if sig.Length == 0 || sig.Length > 64 {
		return SignalValue{}, fmt.Errorf("%w: %s has %d bits", ErrInvalidSignalLength, sig.Name, sig.Length)
	}

	bits, err := extractBits(sig, data)
	if err != nil {
		return SignalValue{}, err
	}

	var raw int64
	var physical float64
	switch sig.ValueType {
	case dbc.IEEEFloat:
		if sig.Length != 32 {
			return SignalValue{}, fmt.Errorf("%w: float %s has %d bits", ErrInvalidSignalLength, sig.Name, sig.Length)
		}
		raw = int64(bits)
		physical = float64(math.Float32frombits(uint32(bits)))
	case dbc.IEEEDouble:
		if sig.Length != 64 {
			return SignalValue{}, fmt.Errorf("%w: double %s has %d bits", ErrInvalidSignalLength, sig.Name, sig.Length)
		}
		raw = int64(bits) //nolint:gosec // bit pattern, not a quantity
		physical = math.Float64frombits(bits)
	case dbc.Signed:
		raw = signExtend(bits, sig.Length)
		physical = float64(raw)
	default:
		raw = int64(bits) //nolint:gosec // lengths of 64 keep the bit pattern
		physical = float64(bits)
	}

	v := SignalValue{
		Name:  sig.Name,
		Raw:   raw,
		Value: physical*sig.Factor + sig.Offset,
		Unit:  sig.Unit,
	}
	if label, ok := sig.ValueTableMap[int(raw)]; ok {
		v.Label = label
	}
	return v, nil
}

// DecodeMessage decodes every signal of msg that is present in data.
//
// Multiplexed signals are decoded only when the multiplexor's raw value
// equals their group. If the multiplexor itself cannot be decoded, every
// multiplexed signal is skipped. Signals that fail to decode, or whose
// multiplexing marker is not understood, are returned in skipped rather
// than aborting the message.
func DecodeMessage(msg *dbc.Message, data []byte) (values []SignalValue, skipped []error) {
	selector, haveSelector := int64(0), false
	for i := range msg.Signals {
		sig := &msg.Signals[i]
		if sig.MultiplexingInfo().Role != dbc.MultiplexingMultiplexor {
			continue
		}
		v, err := DecodeSignal(sig, data)
		if err == nil {
			selector, haveSelector = v.Raw, true
		}
		break
	}

	values = make([]SignalValue, 0, len(msg.Signals))
	for i := range msg.Signals {
		sig := &msg.Signals[i]
		info := sig.MultiplexingInfo()
		if info.Role == dbc.MultiplexingMultiplexed && (!haveSelector || int64(info.Group) != selector) {
			continue
		}
		if info.Role == dbc.MultiplexingUnknown {
			skipped = append(skipped, fmt.Errorf("%w: %s marker %q", ErrUnknownMultiplexing, sig.Name, sig.Multiplexing))
			continue
		}
		v, err := DecodeSignal(sig, data)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		values = append(values, v)
	}
	return values, skipped
}

// extractBits collects the signal's bit field, least significant bit in
// bit 0 of the result.
func extractBits(sig *dbc.Signal, data []byte) (uint64, error) {
	var raw uint64
	pos := int(sig.StartBit)

	if sig.Intel() {
		for i := 0; i < int(sig.Length); i++ {
			bit, ok := bitAt(data, pos+i)
			if !ok {
				return 0, fmt.Errorf("%w: %s bit %d, %d bytes", ErrFrameTooShort, sig.Name, pos+i, len(data))
			}
			raw |= bit << uint(i)
		}
		return raw, nil
	}

	// Motorola start bits address the MSB. Walking towards the LSB steps
	// down within a byte and then to bit 7 of the next byte.
	for i := 0; i < int(sig.Length); i++ {
		bit, ok := bitAt(data, pos)
		if !ok {
			return 0, fmt.Errorf("%w: %s bit %d, %d bytes", ErrFrameTooShort, sig.Name, pos, len(data))
		}
		raw = raw<<1 | bit
		if pos%8 == 0 {
			pos += 15
		} else {
			pos--
		}
	}
	return raw, nil
}

func bitAt(data []byte, pos int) (uint64, bool) {
	if pos < 0 || pos/8 >= len(data) {
		return 0, false
	}
	return uint64(data[pos/8]>>(uint(pos)%8)) & 1, true
}

func signExtend(bits uint64, length uint16) int64 {
	if length >= 64 {
		return int64(bits) //nolint:gosec // two's complement reinterpretation
	}
	if bits&(1<<(length-1)) != 0 {
		bits |= ^uint64(0) << length
	}
	return int64(bits) //nolint:gosec // two's complement reinterpretation
}
