package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/muurk/icebox/internal/protocol"
)

// Captured single-zone query response (left target -15, current -13)
var queryResponse = []byte{
	0xFE, 0xFE, 0x15, 0x01,
	0x00, 0x01, 0x00, 0x00, 0xF1, 0x14, 0xEC, 0x02, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0xF3, 0x64, 0x0C, 0x03,
	0x05, 0x6C,
}

func statusPayload() []byte {
	return append([]byte(nil), queryResponse[4:22]...)
}

// fakePort records sent frames and lets tests script replies
type fakePort struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	reply   func(frame protocol.Frame) [][]byte

	notify    chan []byte
	sentCh    chan protocol.Frame
	closeOnce sync.Once
}

func newFakePort(t *testing.T) *fakePort {
	p := &fakePort{
		notify: make(chan []byte, 16),
		sentCh: make(chan protocol.Frame, 16),
	}
	t.Cleanup(p.close)
	return p
}

func (p *fakePort) Send(_ context.Context, frame []byte) error {
	p.mu.Lock()
	p.sent = append(p.sent, append([]byte(nil), frame...))
	err := p.sendErr
	reply := p.reply
	p.mu.Unlock()

	if err != nil {
		return err
	}

	f, derr := protocol.Decode(frame)
	if derr != nil {
		panic("session sent an invalid frame: " + derr.Error())
	}
	p.sentCh <- f
	if reply != nil {
		for _, r := range reply(f) {
			p.notify <- r
		}
	}
	return nil
}

func (p *fakePort) Notifications() <-chan []byte { return p.notify }

func (p *fakePort) close() { p.closeOnce.Do(func() { close(p.notify) }) }

func (p *fakePort) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func (p *fakePort) setReply(fn func(protocol.Frame) [][]byte) {
	p.mu.Lock()
	p.reply = fn
	p.mu.Unlock()
}

// replyQuery answers every query with the captured status
func replyQuery(f protocol.Frame) [][]byte {
	if f.Code == protocol.CmdQuery {
		return [][]byte{queryResponse}
	}
	return nil
}

func waitSent(t *testing.T, p *fakePort) protocol.Frame {
	t.Helper()
	select {
	case f := <-p.sentCh:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame to be sent")
		return protocol.Frame{}
	}
}

func fastTimeouts() Option {
	return WithTimeouts(Timeouts{Bind: 50 * time.Millisecond, Response: 50 * time.Millisecond})
}

func TestQuery(t *testing.T) {
	p := newFakePort(t)
	p.setReply(replyQuery)
	s := New(p)

	status, err := s.Query(context.Background())
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if status.LeftTarget != -15 || status.LeftCurrent != -13 {
		t.Errorf("status = %s", status)
	}
	if s.LastStatus() != status {
		t.Error("LastStatus() should return the queried status")
	}
	if p.sentCount() != 1 {
		t.Errorf("sent %d frames, want 1", p.sentCount())
	}
	if got := s.State(); got != StateDisconnected {
		t.Errorf("State() = %s, want disconnected (never bound)", got)
	}
}

func TestQuery_RequestInFlight(t *testing.T) {
	p := newFakePort(t)
	s := New(p, WithTimeouts(Timeouts{Response: 2 * time.Second}))

	type result struct {
		status *protocol.Status
		err    error
	}
	first := make(chan result, 1)
	go func() {
		st, err := s.Query(context.Background())
		first <- result{st, err}
	}()

	waitSent(t, p)
	if got := s.State(); got != StateAwaitingResponse {
		t.Errorf("State() = %s, want awaiting-response", got)
	}

	if _, err := s.Query(context.Background()); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("second Query() error = %v, want %v", err, ErrRequestInFlight)
	}
	if _, err := s.SetTarget(context.Background(), ZoneLeft, 3); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("SetTarget() error = %v, want %v", err, ErrRequestInFlight)
	}
	if p.sentCount() != 1 {
		t.Fatalf("sent %d frames, want exactly 1", p.sentCount())
	}

	p.notify <- queryResponse
	r := <-first
	if r.err != nil {
		t.Fatalf("first Query() error: %v", r.err)
	}
	if r.status.LeftTarget != -15 {
		t.Errorf("LeftTarget = %d, want -15", r.status.LeftTarget)
	}
}

func TestQuery_TimeoutThenRecover(t *testing.T) {
	p := newFakePort(t)
	s := New(p, fastTimeouts())

	_, err := s.Query(context.Background())
	if !errors.Is(err, ErrResponseTimeout) {
		t.Fatalf("Query() error = %v, want %v", err, ErrResponseTimeout)
	}
	if !IsTimeout(err) || !IsRetryable(err) || IsFatal(err) {
		t.Errorf("timeout classification wrong for %v", err)
	}
	if s.Stats().Timeouts != 1 {
		t.Errorf("Stats().Timeouts = %d, want 1", s.Stats().Timeouts)
	}

	p.setReply(replyQuery)
	if _, err := s.Query(context.Background()); err != nil {
		t.Fatalf("Query() after timeout error: %v", err)
	}
}

func TestQuery_UnexpectedResponse(t *testing.T) {
	p := newFakePort(t)
	p.setReply(func(protocol.Frame) [][]byte {
		return [][]byte{protocol.MustEncode(protocol.CmdSetLeft, []byte{0x02})}
	})
	s := New(p, fastTimeouts())

	_, err := s.Query(context.Background())
	if !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("Query() error = %v, want %v", err, ErrUnexpectedResponse)
	}
	if s.Err() != nil {
		t.Error("an unexpected response should not end the session")
	}
}

func TestQuery_MalformedFrameIgnored(t *testing.T) {
	p := newFakePort(t)
	p.setReply(func(f protocol.Frame) [][]byte {
		corrupt := append([]byte(nil), queryResponse...)
		corrupt[len(corrupt)-1] ^= 0x01
		return [][]byte{{0x01, 0x02}, corrupt, queryResponse}
	})

	var mu sync.Mutex
	var frameErrs []error
	s := New(p, WithFrameErrorHandler(func(_ []byte, err error) {
		mu.Lock()
		frameErrs = append(frameErrs, err)
		mu.Unlock()
	}))

	if _, err := s.Query(context.Background()); err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(frameErrs) != 2 {
		t.Fatalf("frame error handler called %d times, want 2", len(frameErrs))
	}
	if !errors.Is(frameErrs[0], protocol.ErrFrameTooShort) || !errors.Is(frameErrs[1], protocol.ErrChecksumMismatch) {
		t.Errorf("frame errors = %v", frameErrs)
	}
	if s.Stats().FrameErrors != 2 {
		t.Errorf("Stats().FrameErrors = %d, want 2", s.Stats().FrameErrors)
	}
}

func TestQuery_LenientChecksum(t *testing.T) {
	doubled := append([]byte(nil), queryResponse[:22]...)
	sum := protocol.Checksum(doubled) * 2
	doubled = append(doubled, byte(sum>>8), byte(sum))

	p := newFakePort(t)
	p.setReply(func(protocol.Frame) [][]byte { return [][]byte{doubled} })

	if _, err := New(p, fastTimeouts()).Query(context.Background()); !errors.Is(err, ErrResponseTimeout) {
		t.Errorf("strict Query() error = %v, want %v", err, ErrResponseTimeout)
	}

	p2 := newFakePort(t)
	p2.setReply(func(protocol.Frame) [][]byte { return [][]byte{doubled} })
	if _, err := New(p2, fastTimeouts(), WithLenientChecksum()).Query(context.Background()); err != nil {
		t.Errorf("lenient Query() error: %v", err)
	}
}

func TestQuery_ShortPayloadIsModelError(t *testing.T) {
	p := newFakePort(t)
	p.setReply(func(protocol.Frame) [][]byte {
		return [][]byte{protocol.MustEncode(protocol.CmdQuery, []byte{0x00, 0x01})}
	})
	s := New(p, fastTimeouts())

	_, err := s.Query(context.Background())
	if !errors.Is(err, protocol.ErrPayloadTooShort) {
		t.Fatalf("Query() error = %v, want %v", err, protocol.ErrPayloadTooShort)
	}
	if s.LastStatus() != nil {
		t.Error("a short payload must not become the baseline")
	}
}

func TestBind(t *testing.T) {
	p := newFakePort(t)
	p.setReply(func(f protocol.Frame) [][]byte {
		if f.Code == protocol.CmdBind {
			return [][]byte{protocol.MustEncode(protocol.CmdBind, []byte{0x01})}
		}
		return nil
	})
	s := New(p, fastTimeouts())

	res, err := s.Bind(context.Background())
	if err != nil {
		t.Fatalf("Bind() error: %v", err)
	}
	if res.Response != 0x01 {
		t.Errorf("Response = 0x%02X, want 0x01", res.Response)
	}
	if got := s.State(); got != StateBound {
		t.Errorf("State() = %s, want bound", got)
	}

	p.mu.Lock()
	sent := p.sent[0]
	p.mu.Unlock()
	want := []byte{0xFE, 0xFE, 0x04, 0x00, 0xFF, 0x02, 0xFF}
	if string(sent) != string(want) {
		t.Errorf("bind frame = % X, want % X", sent, want)
	}
}

func TestBind_TimeoutIsAdvisory(t *testing.T) {
	p := newFakePort(t)
	p.setReply(replyQuery)
	s := New(p, WithTimeouts(Timeouts{Bind: 200 * time.Millisecond, Response: time.Second}))

	bindDone := make(chan error, 1)
	go func() {
		_, err := s.Bind(context.Background())
		bindDone <- err
	}()
	waitSent(t, p)
	if got := s.State(); got != StateBinding {
		t.Errorf("State() = %s, want binding", got)
	}

	if err := <-bindDone; !errors.Is(err, ErrBindTimeout) {
		t.Fatalf("Bind() error = %v, want %v", err, ErrBindTimeout)
	}
	if got := s.State(); got != StateDisconnected {
		t.Errorf("State() = %s, want disconnected", got)
	}

	if _, err := s.Query(context.Background()); err != nil {
		t.Errorf("Query() after bind timeout error: %v", err)
	}
}

func TestSetTarget(t *testing.T) {
	tests := []struct {
		name    string
		zone    Zone
		temp    int8
		echo    []byte
		wantErr error
	}{
		{name: "left echo", zone: ZoneLeft, temp: -18, echo: []byte{0xEE}},
		{name: "right echo", zone: ZoneRight, temp: 4, echo: []byte{0x04}},
		{name: "wrong value", zone: ZoneLeft, temp: -18, echo: []byte{0xEF}, wantErr: ErrAckMismatch},
		{name: "wrong length", zone: ZoneLeft, temp: 5, echo: []byte{0x05, 0x00}, wantErr: ErrAckMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePort(t)
			p.setReply(func(f protocol.Frame) [][]byte {
				return [][]byte{protocol.MustEncode(f.Code, tt.echo)}
			})
			s := New(p, fastTimeouts())

			status, err := s.SetTarget(context.Background(), tt.zone, tt.temp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetTarget() error = %v, want %v", err, tt.wantErr)
			}
			if status != nil {
				t.Errorf("SetTarget() without a baseline returned %v, want nil", status)
			}

			f := waitSent(t, p)
			wantCode := protocol.CmdSetLeft
			if tt.zone == ZoneRight {
				wantCode = protocol.CmdSetRight
			}
			if f.Code != wantCode || len(f.Payload) != 1 || int8(f.Payload[0]) != tt.temp {
				t.Errorf("sent %s, want %s with payload %d", f, wantCode, tt.temp)
			}
		})
	}
}

func TestSetTarget_UpdatesBaseline(t *testing.T) {
	p := newFakePort(t)
	p.setReply(func(f protocol.Frame) [][]byte {
		if f.Code == protocol.CmdQuery {
			return [][]byte{queryResponse}
		}
		return [][]byte{protocol.MustEncode(f.Code, f.Payload)}
	})
	s := New(p, fastTimeouts())

	before, err := s.Query(context.Background())
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	updated, err := s.SetTarget(context.Background(), ZoneLeft, -4)
	if err != nil {
		t.Fatalf("SetTarget() error: %v", err)
	}

	if updated == nil || updated.LeftTarget != -4 {
		t.Fatalf("SetTarget() status = %v, want left target -4", updated)
	}
	if s.LastStatus() != updated {
		t.Error("returned status should be the new baseline")
	}
	if before.LeftTarget != -15 {
		t.Error("previously returned status was mutated")
	}
}

func TestApplySettings_NoBaseline(t *testing.T) {
	p := newFakePort(t)
	s := New(p)

	_, err := s.ApplySettings(context.Background(), protocol.Override{Field: protocol.FieldPoweredOn, Value: 0})
	if !errors.Is(err, ErrNoBaseline) {
		t.Fatalf("ApplySettings() error = %v, want %v", err, ErrNoBaseline)
	}
	if p.sentCount() != 0 {
		t.Errorf("sent %d frames, want none", p.sentCount())
	}
}

func TestApplySettings_InvalidOverride(t *testing.T) {
	p := newFakePort(t)
	p.setReply(replyQuery)
	s := New(p, fastTimeouts())
	if _, err := s.Query(context.Background()); err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	_, err := s.ApplySettings(context.Background(), protocol.Override{Field: protocol.FieldRightTarget, Value: 1})
	if !errors.Is(err, protocol.ErrUnknownField) {
		t.Fatalf("ApplySettings() error = %v, want %v", err, protocol.ErrUnknownField)
	}
	if p.sentCount() != 1 {
		t.Errorf("sent %d frames, want only the query", p.sentCount())
	}
}

func TestApplySettings_StatusAck(t *testing.T) {
	off := statusPayload()
	off[1] = 0x00

	p := newFakePort(t)
	p.setReply(func(f protocol.Frame) [][]byte {
		switch f.Code {
		case protocol.CmdQuery:
			return [][]byte{queryResponse}
		case protocol.CmdSet:
			return [][]byte{protocol.MustEncode(protocol.CmdSet, off)}
		}
		return nil
	})
	s := New(p, fastTimeouts())

	if _, err := s.Query(context.Background()); err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	waitSent(t, p)

	status, err := s.ApplySettings(context.Background(), protocol.Override{Field: protocol.FieldPoweredOn, Value: 0})
	if err != nil {
		t.Fatalf("ApplySettings() error: %v", err)
	}
	if status.PoweredOn {
		t.Error("PoweredOn = true, want false")
	}
	if s.LastStatus() != status {
		t.Error("acknowledged status should become the baseline")
	}

	set := waitSent(t, p)
	want := statusPayload()[:protocol.SettingsSingleZoneSize]
	want[1] = 0x00
	if string(set.Payload) != string(want) {
		t.Errorf("set payload = % X, want % X", set.Payload, want)
	}
	if p.sentCount() != 2 {
		t.Errorf("sent %d frames, want 2", p.sentCount())
	}
}

func TestApplySettings_EchoAckQueries(t *testing.T) {
	p := newFakePort(t)
	p.setReply(func(f protocol.Frame) [][]byte {
		switch f.Code {
		case protocol.CmdQuery:
			return [][]byte{queryResponse}
		case protocol.CmdSet:
			return [][]byte{protocol.MustEncode(protocol.CmdSet, f.Payload)}
		}
		return nil
	})
	s := New(p, fastTimeouts())

	if _, err := s.Query(context.Background()); err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if _, err := s.ApplySettings(context.Background(), protocol.Override{Field: protocol.FieldStartDelay, Value: 2}); err != nil {
		t.Fatalf("ApplySettings() error: %v", err)
	}

	var codes []protocol.Command
	for i := 0; i < 3; i++ {
		codes = append(codes, waitSent(t, p).Code)
	}
	want := []protocol.Command{protocol.CmdQuery, protocol.CmdSet, protocol.CmdQuery}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("frame %d = %s, want %s", i, codes[i], want[i])
		}
	}
}

func TestApplySettings_AckMismatch(t *testing.T) {
	p := newFakePort(t)
	p.setReply(replyQuery)
	s := New(p, fastTimeouts())

	if _, err := s.Query(context.Background()); err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	// Status still shows the old target
	p.setReply(func(protocol.Frame) [][]byte {
		return [][]byte{protocol.MustEncode(protocol.CmdSet, statusPayload())}
	})
	_, err := s.ApplySettings(context.Background(), protocol.Override{Field: protocol.FieldLeftTarget, Value: -10})
	if !errors.Is(err, ErrAckMismatch) {
		t.Fatalf("ApplySettings() error = %v, want %v", err, ErrAckMismatch)
	}
	if got := s.LastStatus().LeftTarget; got != -15 {
		t.Errorf("baseline LeftTarget = %d, want the reported -15", got)
	}
}

func TestApplySettings_AckMismatchReplacesBaseline(t *testing.T) {
	p := newFakePort(t)
	p.setReply(replyQuery)
	s := New(p, fastTimeouts())

	before, err := s.Query(context.Background())
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if !before.PoweredOn {
		t.Fatal("captured status should be powered on")
	}

	// Fridge switched off but ignored the new target
	off := statusPayload()
	off[1] = 0
	p.setReply(func(f protocol.Frame) [][]byte {
		if f.Code == protocol.CmdSet {
			return [][]byte{protocol.MustEncode(protocol.CmdSet, off)}
		}
		return nil
	})
	_, err = s.ApplySettings(context.Background(),
		protocol.Override{Field: protocol.FieldPoweredOn, Value: 0},
		protocol.Override{Field: protocol.FieldLeftTarget, Value: -30},
	)
	if !errors.Is(err, ErrAckMismatch) {
		t.Fatalf("ApplySettings() error = %v, want %v", err, ErrAckMismatch)
	}
	waitSent(t, p) // query
	waitSent(t, p) // first set

	baseline := s.LastStatus()
	if baseline == before || baseline.PoweredOn {
		t.Fatal("baseline should be the status the fridge reported, powered off")
	}

	// The next change builds on the reported state and keeps the fridge off
	p.setReply(func(f protocol.Frame) [][]byte {
		if f.Code == protocol.CmdSet {
			return [][]byte{protocol.MustEncode(protocol.CmdSet, f.Payload)}
		}
		return nil
	})
	_, _ = s.ApplySettings(context.Background(), protocol.Override{Field: protocol.FieldRunMode, Value: 1})
	f := waitSent(t, p)
	if f.Code != protocol.CmdSet || len(f.Payload) < 2 || f.Payload[1] != 0 {
		t.Errorf("sent %s with power byte % X, want the fridge kept off", f, f.Payload)
	}
}

func TestReset(t *testing.T) {
	p := newFakePort(t)
	p.setReply(func(f protocol.Frame) [][]byte {
		if f.Code == protocol.CmdReset {
			return [][]byte{protocol.MustEncode(protocol.CmdReset, statusPayload())}
		}
		return nil
	})
	s := New(p, fastTimeouts())

	status, err := s.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if s.LastStatus() != status {
		t.Error("reset status should become the baseline")
	}
	if f := waitSent(t, p); f.Code != protocol.CmdReset || len(f.Payload) != 0 {
		t.Errorf("sent %s, want empty reset", f)
	}
}

func TestUnsolicitedStatus(t *testing.T) {
	p := newFakePort(t)
	got := make(chan *protocol.Status, 1)
	s := New(p, WithStatusHandler(func(st *protocol.Status) { got <- st }))

	p.notify <- queryResponse

	select {
	case st := <-got:
		if s.LastStatus() != st {
			t.Error("unsolicited status should become the baseline")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("status handler not called")
	}
}

func TestReplyClaimedBeforeWithdrawIsKept(t *testing.T) {
	p := newFakePort(t)
	s := New(p)

	req := &request{code: protocol.CmdQuery, result: make(chan response, 1)}
	s.mu.Lock()
	s.pending = req
	s.mu.Unlock()

	// Reader claims the request just as the waiter gives up
	s.handle(queryResponse)
	if s.withdraw(req) {
		t.Fatal("withdraw() = true after the reply was delivered")
	}
	select {
	case r := <-req.result:
		if r.err != nil || r.frame.Code != protocol.CmdQuery {
			t.Errorf("reply = %v / %v, want a query frame", r.frame, r.err)
		}
	default:
		t.Fatal("delivered reply is not waiting on the request")
	}
}

func TestReplyAfterWithdrawUpdatesBaseline(t *testing.T) {
	p := newFakePort(t)
	s := New(p)

	req := &request{code: protocol.CmdQuery, result: make(chan response, 1)}
	s.mu.Lock()
	s.pending = req
	s.mu.Unlock()

	if !s.withdraw(req) {
		t.Fatal("withdraw() = false with the request still pending")
	}
	s.handle(queryResponse)

	select {
	case r := <-req.result:
		t.Fatalf("withdrawn request received %v / %v", r.frame, r.err)
	default:
	}
	if st := s.LastStatus(); st == nil || st.LeftTarget != -15 {
		t.Errorf("LastStatus() = %v, want the late reply as baseline", st)
	}
}

func TestNotificationsClosed(t *testing.T) {
	p := newFakePort(t)
	s := New(p, WithTimeouts(Timeouts{Response: 2 * time.Second}))

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Query(context.Background())
		errCh <- err
	}()
	waitSent(t, p)
	p.close()

	if err := <-errCh; !errors.Is(err, ErrDisconnected) {
		t.Fatalf("pending Query() error = %v, want %v", err, ErrDisconnected)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() not closed")
	}

	if _, err := s.Query(context.Background()); !errors.Is(err, ErrDisconnected) || !IsFatal(err) {
		t.Errorf("Query() after close error = %v, want fatal %v", err, ErrDisconnected)
	}
	if p.sentCount() != 1 {
		t.Errorf("sent %d frames, want 1", p.sentCount())
	}
}

func TestSendFailureIsFatal(t *testing.T) {
	linkErr := errors.New("characteristic write failed")
	p := newFakePort(t)
	p.sendErr = linkErr
	s := New(p)

	_, err := s.Query(context.Background())
	if !errors.Is(err, ErrTransport) || !errors.Is(err, linkErr) {
		t.Fatalf("Query() error = %v, want transport error wrapping %v", err, linkErr)
	}
	if s.Err() == nil {
		t.Error("session should have ended")
	}
	if _, err := s.Query(context.Background()); !IsFatal(err) {
		t.Errorf("second Query() error = %v, want fatal", err)
	}
	if p.sentCount() != 1 {
		t.Errorf("Send called %d times, want 1", p.sentCount())
	}
}

func TestContextCancelledWhileWaiting(t *testing.T) {
	p := newFakePort(t)
	s := New(p, WithTimeouts(Timeouts{Response: 2 * time.Second}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := s.Query(ctx)
		errCh <- err
	}()
	waitSent(t, p)
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Query() error = %v, want %v", err, context.Canceled)
	}
	if got := s.State(); got != StateDisconnected {
		t.Errorf("State() = %s, want the pending slot cleared", got)
	}
}

func TestParseZone(t *testing.T) {
	for in, want := range map[string]Zone{"left": ZoneLeft, "L": ZoneLeft, "1": ZoneLeft, "right": ZoneRight, " 2 ": ZoneRight} {
		got, err := ParseZone(in)
		if err != nil || got != want {
			t.Errorf("ParseZone(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseZone("middle"); err == nil {
		t.Error("ParseZone(\"middle\") expected error")
	}
}

func TestPollLoop_StopsBetweenIterations(t *testing.T) {
	p := newFakePort(t)
	p.setReply(replyQuery)
	s := New(p, fastTimeouts())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var statuses int
	done := make(chan error, 1)
	go func() {
		done <- s.PollLoop(ctx, 10*time.Millisecond, func(st *protocol.Status, err error) {
			if err != nil {
				t.Errorf("poll error: %v", err)
				return
			}
			mu.Lock()
			statuses++
			if statuses == 3 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PollLoop() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PollLoop did not stop")
	}

	sent := p.sentCount()
	time.Sleep(50 * time.Millisecond)
	if p.sentCount() != sent {
		t.Errorf("frames sent after stop: %d -> %d", sent, p.sentCount())
	}
	mu.Lock()
	defer mu.Unlock()
	if statuses != 3 || sent != 3 {
		t.Errorf("statuses = %d, sent = %d, want 3 and 3", statuses, sent)
	}
}

func TestPollLoop_StopMidWaitKeepsReply(t *testing.T) {
	p := newFakePort(t)
	s := New(p, WithTimeouts(Timeouts{Response: 2 * time.Second}))

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *protocol.Status, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.PollLoop(ctx, time.Hour, func(st *protocol.Status, err error) {
			if err != nil {
				t.Errorf("poll error: %v", err)
			}
			got <- st
		})
	}()

	// Stop while the first query is waiting, then let the reply arrive
	waitSent(t, p)
	cancel()
	p.notify <- queryResponse

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PollLoop() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PollLoop did not stop")
	}

	if len(got) != 1 {
		t.Fatalf("delivered %d results, want 1", len(got))
	}
	if st := <-got; st == nil || st.LeftTarget != -15 {
		t.Errorf("delivered status = %v", st)
	}
	if p.sentCount() != 1 {
		t.Errorf("sent %d frames, want 1", p.sentCount())
	}
}

func TestPollLoop_ErrorsKeepPolling(t *testing.T) {
	p := newFakePort(t)
	s := New(p, fastTimeouts())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var errs []error
	done := make(chan error, 1)
	go func() {
		done <- s.PollLoop(ctx, time.Millisecond, func(_ *protocol.Status, err error) {
			mu.Lock()
			errs = append(errs, err)
			if len(errs) == 2 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	if err := <-done; err != nil {
		t.Fatalf("PollLoop() error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, err := range errs {
		if !errors.Is(err, ErrResponseTimeout) {
			t.Errorf("poll error = %v, want %v", err, ErrResponseTimeout)
		}
	}
}

func TestPollLoop_TransportLossIsReturned(t *testing.T) {
	p := newFakePort(t)
	s := New(p, WithTimeouts(Timeouts{Response: 2 * time.Second}))

	done := make(chan error, 1)
	go func() {
		done <- s.PollLoop(context.Background(), time.Millisecond, func(*protocol.Status, error) {})
	}()

	waitSent(t, p)
	p.close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrDisconnected) {
			t.Fatalf("PollLoop() error = %v, want %v", err, ErrDisconnected)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PollLoop did not return after the stream closed")
	}
}
