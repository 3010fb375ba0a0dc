package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
	"testing/iotest"
)

func scanAll(t *testing.T, data []byte, oneByte bool) [][]byte {
	t.Helper()

	var r = bytes.NewReader(data)
	scanner := bufio.NewScanner(r)
	if oneByte {
		scanner = bufio.NewScanner(iotest.OneByteReader(r))
	}
	scanner.Split(ScanFrames)

	var tokens [][]byte
	for scanner.Scan() {
		tokens = append(tokens, append([]byte{}, scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}
	return tokens
}

func TestScanFrames(t *testing.T) {
	query := MustEncode(CmdQuery, nil)
	ack := MustEncode(CmdSetLeft, []byte{0xF6})

	tests := []struct {
		name     string
		stream   []byte
		wantErrs []error // nil entry = valid frame
	}{
		{
			name:     "back to back frames",
			stream:   concat(capturedQueryResponse, query, ack),
			wantErrs: []error{nil, nil, nil},
		},
		{
			name:     "leading garbage is surfaced",
			stream:   concat([]byte{0x01, 0x02, 0x03}, query),
			wantErrs: []error{ErrFrameTooShort, nil},
		},
		{
			name:     "truncated frame at EOF",
			stream:   concat(query, ack[:5]),
			wantErrs: []error{nil, ErrFrameTooShort},
		},
		{
			name:     "impossible length byte",
			stream:   concat([]byte{0xFE, 0xFE, 0x01}, ack),
			wantErrs: []error{ErrFrameTooShort, nil},
		},
		{
			name:     "corrupt checksum then valid frame",
			stream:   concat([]byte{0xFE, 0xFE, 0x03, 0x01, 0x02, 0x01}, query),
			wantErrs: []error{ErrChecksumMismatch, nil},
		},
		{
			name:     "garbage ending in FE then frames",
			stream:   concat([]byte{0x41, 0xFE}, query, query, query, query, query),
			wantErrs: []error{ErrFrameTooShort, ErrFrameTooShort, nil, nil, nil, nil, nil},
		},
		{
			name:     "stray FE between frames",
			stream:   concat(ack, []byte{0xFE}, query, capturedQueryResponse),
			wantErrs: []error{nil, ErrFrameTooShort, nil, nil},
		},
		{
			name:     "stray header before frame",
			stream:   concat([]byte{0xFE, 0xFE}, query, ack),
			wantErrs: []error{ErrFrameTooShort, nil, nil},
		},
		{
			name:     "false header with short length",
			stream:   concat([]byte{0xFE, 0xFE, 0x04, 0x01}, query),
			wantErrs: []error{ErrFrameTooShort, nil},
		},
	}

	for _, tt := range tests {
		for _, oneByte := range []bool{false, true} {
			name := tt.name
			if oneByte {
				name += " (one byte reads)"
			}
			t.Run(name, func(t *testing.T) {
				tokens := scanAll(t, tt.stream, oneByte)
				if len(tokens) != len(tt.wantErrs) {
					t.Fatalf("got %d tokens (% X), want %d", len(tokens), tokens, len(tt.wantErrs))
				}
				for i, tok := range tokens {
					_, err := Decode(tok)
					if tt.wantErrs[i] == nil {
						if err != nil {
							t.Errorf("token %d (% X): unexpected error %v", i, tok, err)
						}
						continue
					}
					if !errors.Is(err, tt.wantErrs[i]) {
						t.Errorf("token %d (% X): error = %v, want %v", i, tok, err, tt.wantErrs[i])
					}
				}
			})
		}
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
