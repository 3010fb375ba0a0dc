package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame layout constants
//
//	[0-1]   FE FE          Header
//	[2]     length         Code + payload + checksum byte count
//	[3]     code           Command / response code
//	[4..n]  payload        0-252 bytes
//	[n+1..] checksum       16-bit sum of all preceding bytes (big-endian)
const (
	HeaderByte     = 0xFE
	HeaderSize     = 2
	FrameOverhead  = 6   // Header + length + code + checksum
	MinFrameSize   = FrameOverhead
	MaxPayloadSize = 252 // Keeps the whole frame within 255 bytes
	MaxFrameSize   = MaxPayloadSize + FrameOverhead

	// lengthBias is the difference between the length byte and the payload length
	lengthBias = 3
)

// Command identifies a request and its matching notification
type Command byte

// Command codes
const (
	CmdBind     Command = 0x00
	CmdQuery    Command = 0x01
	CmdSet      Command = 0x02
	CmdReset    Command = 0x04
	CmdSetLeft  Command = 0x05
	CmdSetRight Command = 0x06
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case CmdBind:
		return "bind"
	case CmdQuery:
		return "query"
	case CmdSet:
		return "set"
	case CmdReset:
		return "reset"
	case CmdSetLeft:
		return "set-left"
	case CmdSetRight:
		return "set-right"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(c))
	}
}

// Frame is a decoded wire frame
type Frame struct {
	Code    Command
	Payload []byte
}

// String returns a debug representation of the frame
func (f Frame) String() string {
	return fmt.Sprintf("Frame{code=%s, payload_len=%d}", f.Code, len(f.Payload))
}

// Checksum returns the 16-bit wrapping sum of data
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// Encode builds an outgoing frame for code and payload.
//
// Example:
//
//	Encode(0x01, nil) -> FE FE 03 01 02 00
func Encode(code Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, newError(KindPayloadTooLarge, "%d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	frame := make([]byte, len(payload)+FrameOverhead)
	frame[0] = HeaderByte
	frame[1] = HeaderByte
	frame[2] = byte(len(payload) + lengthBias)
	frame[3] = byte(code)
	copy(frame[4:], payload)

	end := len(frame) - 2
	binary.BigEndian.PutUint16(frame[end:], Checksum(frame[:end]))

	return frame, nil
}

// MustEncode is Encode for payloads known to fit, such as fixed commands
func MustEncode(code Command, payload []byte) []byte {
	frame, err := Encode(code, payload)
	if err != nil {
		panic(err)
	}
	return frame
}

// Decode validates buf as a single frame and returns its code and payload.
// The returned payload aliases buf.
func Decode(buf []byte) (Frame, error) {
	return decode(buf, false)
}

// DecodeLenient is Decode but also accepts a checksum equal to twice the
// computed sum, which some fridge firmware revisions emit.
func DecodeLenient(buf []byte) (Frame, error) {
	return decode(buf, true)
}

func decode(buf []byte, lenient bool) (Frame, error) {
	if len(buf) < MinFrameSize {
		return Frame{}, newError(KindFrameTooShort, "%d bytes (min %d)", len(buf), MinFrameSize)
	}

	if buf[0] != HeaderByte || buf[1] != HeaderByte {
		return Frame{}, newError(KindBadHeader, "got %02x %02x", buf[0], buf[1])
	}

	declared := int(buf[2])
	if declared != len(buf)-lengthBias {
		return Frame{}, newError(KindLengthMismatch, "length byte %d, buffer carries %d", declared, len(buf)-lengthBias)
	}

	end := len(buf) - 2
	want := binary.BigEndian.Uint16(buf[end:])
	got := Checksum(buf[:end])
	if want != got && !(lenient && want == got*2) {
		return Frame{}, newError(KindChecksumMismatch, "computed 0x%04x, frame carries 0x%04x", got, want)
	}

	return Frame{Code: Command(buf[3]), Payload: buf[4:end]}, nil
}
