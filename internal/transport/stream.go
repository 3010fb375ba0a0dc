package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/icebox/internal/logging"
	"github.com/muurk/icebox/internal/protocol"
)

// notifyBuffer is how many frames may queue before the reader blocks
const notifyBuffer = 16

var frameHeader = []byte{protocol.HeaderByte, protocol.HeaderByte}

// ErrClosed is returned by Send after Close
var ErrClosed = errors.New("transport closed")

// Stream adapts a byte stream carrying back to back frames, such as a UART
// or a BLE serial bridge. Frames are cut with protocol.ScanFrames; bytes that
// do not form a frame are still delivered so the session can report them.
type Stream struct {
	rwc  io.ReadWriteCloser
	name string
	log  *zap.Logger

	writeMu sync.Mutex

	notify    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	errMu   sync.Mutex
	readErr error
}

// NewStream starts reading rwc. name is used in logs and Describe.
func NewStream(rwc io.ReadWriteCloser, name string) *Stream {
	s := &Stream{
		rwc:    rwc,
		name:   name,
		log:    logging.Named("transport").With(zap.String("link", name)),
		notify: make(chan []byte, notifyBuffer),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// Send writes one frame. A serial write cannot be interrupted, so ctx is
// only checked before writing.
func (s *Stream) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.rwc.Write(frame); err != nil {
		return fmt.Errorf("write to %s: %w", s.name, err)
	}
	return nil
}

// Notifications returns the frame channel, closed when the stream ends
func (s *Stream) Notifications() <-chan []byte {
	return s.notify
}

// Describe returns a human-readable name for the link
func (s *Stream) Describe() string {
	return s.name
}

// Err returns the read error that ended the stream, if any
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.readErr
}

// Close closes the underlying stream; the notification channel closes once
// the reader has stopped
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.rwc.Close()
	})
	return err
}

func (s *Stream) readLoop() {
	defer close(s.notify)

	scanner := bufio.NewScanner(s.rwc)
	scanner.Buffer(make([]byte, 0, 2*protocol.MaxFrameSize), 4*protocol.MaxFrameSize)
	scanner.Split(protocol.ScanFrames)

	for scanner.Scan() {
		token := append([]byte(nil), scanner.Bytes()...)
		if !bytes.HasPrefix(token, frameHeader) {
			// Bridges print status text such as "OK+CONN" between frames
			logging.LogRawBytes("Non-frame bytes from "+s.name, token)
		}
		select {
		case s.notify <- token:
		case <-s.done:
			return
		}
	}

	err := scanner.Err()
	select {
	case <-s.done:
		// Errors caused by our own Close are not interesting
		return
	default:
	}

	s.errMu.Lock()
	s.readErr = err
	s.errMu.Unlock()
	if err != nil {
		s.log.Warn("Link read failed", zap.Error(err))
	} else {
		s.log.Info("Link closed by peer")
	}
}
