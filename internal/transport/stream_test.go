package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/muurk/icebox/internal/protocol"
	"github.com/muurk/icebox/internal/session"
)

func recvFrame(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatal("notification channel closed")
		}
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return nil
	}
}

func TestStream_SplitsFrames(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local, "pipe")
	defer s.Close()

	query := protocol.MustEncode(protocol.CmdQuery, nil)
	ack := protocol.MustEncode(protocol.CmdSetLeft, []byte{0xFB})

	go func() {
		// Two frames split across writes, with garbage in between
		_, _ = remote.Write(query[:3])
		_, _ = remote.Write(append(query[3:], 0x00, 0x11))
		_, _ = remote.Write(ack)
	}()

	if got := recvFrame(t, s.Notifications()); !bytes.Equal(got, query) {
		t.Errorf("first = % X, want % X", got, query)
	}
	garbage := recvFrame(t, s.Notifications())
	if _, err := protocol.Decode(garbage); !protocol.IsFramingError(err) {
		t.Errorf("garbage % X decoded without a framing error", garbage)
	}
	if got := recvFrame(t, s.Notifications()); !bytes.Equal(got, ack) {
		t.Errorf("third = % X, want % X", got, ack)
	}
}

func TestStream_Send(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local, "pipe")
	defer s.Close()

	frame := protocol.MustEncode(protocol.CmdQuery, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Send(context.Background(), frame) }()

	buf := make([]byte, len(frame))
	if _, err := io.ReadFull(remote, buf); err != nil {
		t.Fatalf("ReadFull() error: %v", err)
	}
	if !bytes.Equal(buf, frame) {
		t.Errorf("remote read % X, want % X", buf, frame)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Send() error: %v", err)
	}
}

func TestStream_SendRespectsContext(t *testing.T) {
	local, _ := net.Pipe()
	s := NewStream(local, "pipe")
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, []byte{0x01}); !errors.Is(err, context.Canceled) {
		t.Errorf("Send() error = %v, want %v", err, context.Canceled)
	}
}

func TestStream_CloseEndsNotifications(t *testing.T) {
	local, remote := net.Pipe()
	s := NewStream(local, "pipe")

	_ = remote.Close()

	select {
	case _, ok := <-s.Notifications():
		if ok {
			t.Fatal("unexpected notification")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification channel not closed after peer hung up")
	}

	_ = s.Close()
	if err := s.Send(context.Background(), []byte{0x01}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close error = %v, want %v", err, ErrClosed)
	}
}

// fridgeSim answers queries on the remote end of a pipe
func fridgeSim(t *testing.T, conn net.Conn, status []byte) {
	t.Helper()
	go func() {
		buf := make([]byte, protocol.MaxFrameSize)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			f, err := protocol.Decode(buf[:n])
			if err != nil {
				continue
			}
			if f.Code == protocol.CmdQuery {
				if _, err := conn.Write(protocol.MustEncode(protocol.CmdQuery, status)); err != nil {
					return
				}
			}
		}
	}()
}

func TestStream_WithSession(t *testing.T) {
	local, remote := net.Pipe()
	link := NewStream(local, "pipe")
	defer link.Close()

	status := make([]byte, protocol.StatusSingleZoneSize)
	status[1] = 0x01
	status[4] = 0xFC // -4
	fridgeSim(t, remote, status)

	s := session.New(link, session.WithTimeouts(session.Timeouts{Response: 2 * time.Second}))
	got, err := s.Query(context.Background())
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if !got.PoweredOn || got.LeftTarget != -4 {
		t.Errorf("status = %s", got)
	}
}
