package protocol

import "bytes"

var header = []byte{HeaderByte, HeaderByte}

// ScanFrames is a bufio.SplitFunc that cuts a continuous byte stream into
// candidate frames using the FE FE header and the length byte.
//
// Bytes that precede a header are returned as their own token rather than
// dropped, so the caller's Decode reports them as a framing error. A frame
// truncated by EOF is returned as-is for the same reason. Garbage is held
// until a header arrives, EOF, or MaxFrameSize bytes have accumulated.
//
// A header can be false, e.g. a stray FE right before a real FE FE reads as
// FE FE with length byte FE. A candidate that is still incomplete, or that
// is complete but fails its checksum, is given up when a later header in the
// buffer starts a valid frame: the bytes before it become a garbage token.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil
	}

	start := bytes.Index(data, header)
	switch {
	case start > 0:
		return start, data[:start], nil
	case start < 0:
		if atEOF {
			return len(data), data, nil
		}
		// Hold garbage until the next header shows up, up to one frame's worth
		if len(data) < MaxFrameSize {
			return 0, nil, nil
		}
		// A trailing FE may be the first half of the next header
		keep := 0
		if data[len(data)-1] == HeaderByte {
			keep = 1
		}
		if len(data)-keep == 0 {
			return 0, nil, nil
		}
		return len(data) - keep, data[:len(data)-keep], nil
	}

	if len(data) < HeaderSize+1 {
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}

	total := int(data[2]) + lengthBias
	if total < MinFrameSize {
		// Impossible length byte; hand the header and length over as garbage
		return HeaderSize + 1, data[:HeaderSize+1], nil
	}

	if len(data) < total {
		if next, _ := nextFrame(data, len(data)); next > 0 {
			return next, data[:next], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}

	if frameAt(data) != frameValid {
		next, more := nextFrame(data, total)
		if next > 0 {
			return next, data[:next], nil
		}
		if more && !atEOF {
			return 0, nil, nil
		}
	}
	return total, data[:total], nil
}

type frameState int

const (
	frameInvalid frameState = iota
	frameIncomplete
	frameValid
)

// frameAt classifies the frame starting at data[0], which must be a header.
// A doubled checksum counts as valid.
func frameAt(data []byte) frameState {
	if len(data) < HeaderSize+1 {
		return frameIncomplete
	}
	total := int(data[2]) + lengthBias
	if total < MinFrameSize {
		return frameInvalid
	}
	if len(data) < total {
		return frameIncomplete
	}
	if _, err := decode(data[:total], true); err != nil {
		return frameInvalid
	}
	return frameValid
}

// nextFrame returns the offset of the first header in data[1:limit] that
// starts a valid frame, or -1. more reports that a header in that range may
// still start one once more bytes arrive.
func nextFrame(data []byte, limit int) (next int, more bool) {
	for k := 1; k < limit; k++ {
		if data[k] != HeaderByte {
			continue
		}
		if k+1 == len(data) {
			more = true
			continue
		}
		if data[k+1] != HeaderByte {
			continue
		}
		switch frameAt(data[k:]) {
		case frameValid:
			return k, more
		case frameIncomplete:
			more = true
		}
	}
	return -1, more
}
