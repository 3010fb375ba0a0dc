// Package protocol implements the binary protocol spoken by Alpicool-style
// 12V compressor fridges over their BLE serial characteristic.
//
// The package covers framing, payload interpretation and the construction of
// settings updates. It performs no I/O; see the session package for the
// request/response exchange and the transport package for links.
//
// # Frame Format
//
// Every command and notification uses the same frame:
//
//	FE FE <len> <code> <payload...> <sum_hi> <sum_lo>
//
//   - Header: two 0xFE bytes
//   - Length: payload length + 3 (code, payload and checksum)
//   - Code: command code, echoed by the matching notification
//   - Payload: 0-252 bytes
//   - Checksum: 16-bit wrapping sum of every preceding byte, big-endian
//
// A query with no payload is therefore always FE FE 03 01 02 00.
//
// # Command Codes
//
//   - 0x00 bind: optional confirmation handshake (press the fridge's button)
//   - 0x01 query: request a status snapshot
//   - 0x02 set: write a full settings block
//   - 0x04 reset: factory reset, answered with a status snapshot
//   - 0x05 / 0x06: set the left / right zone target temperature
//
// # Payloads
//
// Status payloads are 18 bytes on single-zone fridges and 28 or more on
// dual-zone fridges; the variant is selected by length alone. Settings
// payloads are 14 and 25 bytes respectively. All temperatures are signed
// bytes in the fridge's current display unit.
//
// # Usage Example - Query
//
//	frame := protocol.MustEncode(protocol.CmdQuery, nil)
//	// ... write frame, receive notification buf ...
//	f, err := protocol.Decode(buf)
//	if err != nil {
//	    return err
//	}
//	status, err := protocol.DecodeStatus(f.Payload)
//
// # Usage Example - Partial Update
//
//	settings, err := protocol.NewSettingsBuilder(status).
//	    SetRunMode(protocol.RunModeEco).
//	    Build()
//	frame, err := protocol.Encode(protocol.CmdSet, protocol.EncodeSettings(settings))
//
// # Error Handling
//
// Every error is a *protocol.Error whose Kind places it in one of two groups:
//   - Framing errors: malformed single frame (too short, bad header, length or
//     checksum mismatch, payload too large)
//   - Model errors: short payloads and invalid overrides
//
// Use errors.Is with the Err* sentinels to test for a specific kind.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use. A SettingsBuilder
// must not be shared between goroutines.
package protocol
