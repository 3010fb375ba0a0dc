package session

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/icebox/internal/logging"
	"github.com/muurk/icebox/internal/protocol"
)

const (
	// DefaultBindTimeout leaves time for someone to press the button on the fridge
	DefaultBindTimeout = 30 * time.Second

	// DefaultResponseTimeout is how long to wait for any other response
	DefaultResponseTimeout = 5 * time.Second
)

// bindPayload is sent with every bind request
var bindPayload = []byte{0xFF}

// State is the session's position in the bind/request cycle
type State int

const (
	StateDisconnected State = iota
	StateBinding
	StateBound
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateBinding:
		return "binding"
	case StateBound:
		return "bound"
	case StateAwaitingResponse:
		return "awaiting-response"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Zone selects a compartment for SetTarget
type Zone int

const (
	ZoneLeft Zone = iota
	ZoneRight
)

func (z Zone) String() string {
	switch z {
	case ZoneLeft:
		return "left"
	case ZoneRight:
		return "right"
	default:
		return fmt.Sprintf("Zone(%d)", int(z))
	}
}

// ParseZone accepts "left"/"right" and the fridge's own "1"/"2" numbering
func ParseZone(s string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l", "1":
		return ZoneLeft, nil
	case "right", "r", "2":
		return ZoneRight, nil
	}
	return 0, fmt.Errorf("unknown zone %q (want left or right)", s)
}

func (z Zone) command() (protocol.Command, error) {
	switch z {
	case ZoneLeft:
		return protocol.CmdSetLeft, nil
	case ZoneRight:
		return protocol.CmdSetRight, nil
	}
	return 0, fmt.Errorf("unknown zone %d", int(z))
}

// Timeouts bounds each kind of wait. Zero values fall back to the defaults.
type Timeouts struct {
	Bind     time.Duration
	Response time.Duration
}

// DefaultTimeouts returns the default bind and response timeouts
func DefaultTimeouts() Timeouts {
	return Timeouts{Bind: DefaultBindTimeout, Response: DefaultResponseTimeout}
}

// BindResult is the fridge's answer to a bind request
type BindResult struct {
	// Response is the single byte the fridge returned
	Response byte
}

// Stats counts traffic seen by a session
type Stats struct {
	FramesSent     uint64
	FramesReceived uint64
	FrameErrors    uint64
	Timeouts       uint64
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger. The default is the global logger named "session".
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithTimeouts overrides the bind and response timeouts
func WithTimeouts(t Timeouts) Option {
	return func(s *Session) {
		if t.Bind > 0 {
			s.timeouts.Bind = t.Bind
		}
		if t.Response > 0 {
			s.timeouts.Response = t.Response
		}
	}
}

// WithLenientChecksum accepts inbound frames whose checksum is twice the
// real sum, as sent by some firmware
func WithLenientChecksum() Option {
	return func(s *Session) { s.decode = protocol.DecodeLenient }
}

// WithFrameErrorHandler is called from the reader goroutine for every inbound
// buffer that fails to decode
func WithFrameErrorHandler(fn func(raw []byte, err error)) Option {
	return func(s *Session) { s.onFrameError = fn }
}

// WithStatusHandler is called from the reader goroutine whenever a decoded
// status replaces the baseline, whether or not it was requested
func WithStatusHandler(fn func(*protocol.Status)) Option {
	return func(s *Session) { s.onStatus = fn }
}

type response struct {
	frame protocol.Frame
	err   error
}

type request struct {
	code   protocol.Command
	result chan response
}

// Session drives one connected fridge. At most one request is outstanding at
// a time; a second concurrent request fails with ErrRequestInFlight without
// sending anything.
type Session struct {
	port         Port
	log          *zap.Logger
	timeouts     Timeouts
	decode       func([]byte) (protocol.Frame, error)
	onFrameError func([]byte, error)
	onStatus     func(*protocol.Status)

	mu      sync.Mutex
	pending *request
	bound   bool
	last    *protocol.Status
	err     error

	done chan struct{}

	framesSent     atomic.Uint64
	framesReceived atomic.Uint64
	frameErrors    atomic.Uint64
	timeoutCount   atomic.Uint64
}

// New starts a session on port. The session reads port.Notifications() until
// the channel is closed, after which every call fails with ErrDisconnected.
func New(port Port, opts ...Option) *Session {
	s := &Session{
		port:     port,
		log:      logging.Named("session"),
		timeouts: DefaultTimeouts(),
		decode:   protocol.Decode,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.readLoop(port.Notifications())
	return s
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.err != nil:
		return StateDisconnected
	case s.pending != nil && s.pending.code == protocol.CmdBind:
		return StateBinding
	case s.pending != nil:
		return StateAwaitingResponse
	case s.bound:
		return StateBound
	default:
		return StateDisconnected
	}
}

// Done is closed once the notification stream has ended or a send failed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the session, or nil while it is usable
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LastStatus returns the baseline, or nil before the first status arrives
func (s *Session) LastStatus() *protocol.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stats returns traffic counters
func (s *Session) Stats() Stats {
	return Stats{
		FramesSent:     s.framesSent.Load(),
		FramesReceived: s.framesReceived.Load(),
		FrameErrors:    s.frameErrors.Load(),
		Timeouts:       s.timeoutCount.Load(),
	}
}

// Bind asks the fridge to confirm the connection; the user may have to press
// a button. Binding is advisory: on ErrBindTimeout the session falls back to
// StateDisconnected and every other command still works.
func (s *Session) Bind(ctx context.Context) (BindResult, error) {
	f, err := s.roundTrip(ctx, protocol.CmdBind, bindPayload, s.timeouts.Bind, KindBindTimeout)
	if err == nil && len(f.Payload) != 1 {
		err = newError(KindUnexpectedResponse, "bind response carries %d bytes, want 1", len(f.Payload))
	}

	s.mu.Lock()
	s.bound = err == nil
	s.mu.Unlock()

	if err != nil {
		return BindResult{}, err
	}
	s.log.Info("Bound", zap.Uint8("response", f.Payload[0]))
	return BindResult{Response: f.Payload[0]}, nil
}

// Query requests and returns the current status, which also becomes the
// baseline
func (s *Session) Query(ctx context.Context) (*protocol.Status, error) {
	return s.statusRequest(ctx, protocol.CmdQuery)
}

// Reset restores the fridge's factory settings and returns the resulting
// status
func (s *Session) Reset(ctx context.Context) (*protocol.Status, error) {
	return s.statusRequest(ctx, protocol.CmdReset)
}

func (s *Session) statusRequest(ctx context.Context, code protocol.Command) (*protocol.Status, error) {
	f, err := s.roundTrip(ctx, code, nil, s.timeouts.Response, KindResponseTimeout)
	if err != nil {
		return nil, err
	}
	status, err := protocol.DecodeStatus(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", code, err)
	}
	s.setBaseline(status)
	return status, nil
}

// SetTarget sets one zone's target temperature. It needs no baseline. The
// fridge echoes the temperature back; anything else is ErrAckMismatch. If a
// baseline exists it is updated to the new target and returned; otherwise
// the status is nil and callers wanting one chain a Query.
func (s *Session) SetTarget(ctx context.Context, zone Zone, temperature int8) (*protocol.Status, error) {
	code, err := zone.command()
	if err != nil {
		return nil, err
	}

	f, err := s.roundTrip(ctx, code, []byte{byte(temperature)}, s.timeouts.Response, KindResponseTimeout)
	if err != nil {
		return nil, err
	}
	if len(f.Payload) != 1 || int8(f.Payload[0]) != temperature {
		return nil, newError(KindAckMismatch, "set %s target %d, fridge echoed % X", zone, temperature, f.Payload)
	}

	s.mu.Lock()
	var updated *protocol.Status
	if s.last != nil {
		copied := *s.last
		switch {
		case zone == ZoneLeft:
			copied.LeftTarget = temperature
		case copied.Right != nil:
			right := *copied.Right
			right.Target = temperature
			copied.Right = &right
		}
		updated = &copied
		s.last = updated
	}
	s.mu.Unlock()

	s.log.Info("Target set", zap.Stringer("zone", zone), zap.Int8("temperature", temperature))
	return updated, nil
}

// ApplySettings changes the given fields and leaves all others as they are
// in the baseline. It fails with ErrNoBaseline until a status has been
// received, and returns the fridge's status after the change.
func (s *Session) ApplySettings(ctx context.Context, overrides ...protocol.Override) (*protocol.Status, error) {
	baseline := s.LastStatus()
	if baseline == nil {
		return nil, newError(KindNoBaseline, "query the fridge before changing settings")
	}
	settings, err := protocol.BuildSettingsFromStatus(baseline, overrides...)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, settings)
}

// Apply sends a complete settings block.
//
// Firmware acknowledges in one of two ways: by echoing the settings payload,
// in which case a Query follows to fetch the new status, or by replying with
// a full status. A status that does not reflect the settings is ErrAckMismatch;
// it still replaces the baseline.
func (s *Session) Apply(ctx context.Context, settings *protocol.Settings) (*protocol.Status, error) {
	payload := protocol.EncodeSettings(settings)

	f, err := s.roundTrip(ctx, protocol.CmdSet, payload, s.timeouts.Response, KindResponseTimeout)
	if err != nil {
		return nil, err
	}

	if bytes.Equal(f.Payload, payload) {
		s.log.Debug("Settings echoed, querying status")
		return s.Query(ctx)
	}

	status, err := protocol.DecodeStatus(f.Payload)
	if err != nil {
		return nil, &Error{Kind: KindAckMismatch, Message: "set acknowledgment is neither an echo nor a status", Err: err}
	}
	// Whatever the fridge reports is its current state, matching or not
	s.setBaseline(status)
	if !protocol.SettingsFromStatus(status).Equal(settings) {
		return nil, newError(KindAckMismatch, "fridge reports settings that differ from the ones sent")
	}
	return status, nil
}

// PollLoop queries the fridge, hands each result to fn, and sleeps for
// interval, until ctx is cancelled. A query already sent when ctx is
// cancelled still runs to completion and its result is delivered before
// PollLoop returns; no frame is sent after cancellation. Errors other than
// transport failures are passed to fn and polling continues. PollLoop
// returns nil when stopped through ctx and the fatal error otherwise.
func (s *Session) PollLoop(ctx context.Context, interval time.Duration, fn func(*protocol.Status, error)) error {
	// The in-flight query outlives ctx but stays bounded by its timeout
	queryCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}

		status, err := s.Query(queryCtx)
		fn(status, err)
		if err != nil && IsFatal(err) {
			return err
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.done:
			timer.Stop()
			return s.Err()
		case <-timer.C:
		}
	}
}

func (s *Session) roundTrip(ctx context.Context, code protocol.Command, payload []byte, timeout time.Duration, timeoutKind ErrorKind) (protocol.Frame, error) {
	frame, err := protocol.Encode(code, payload)
	if err != nil {
		return protocol.Frame{}, err
	}

	req := &request{code: code, result: make(chan response, 1)}

	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return protocol.Frame{}, err
	}
	if s.pending != nil {
		inFlight := s.pending.code
		s.mu.Unlock()
		return protocol.Frame{}, newError(KindRequestInFlight, "cannot send %s while %s is awaiting a response", code, inFlight)
	}
	s.pending = req
	s.mu.Unlock()

	logging.LogFrame(s.log, "tx", frame)
	if err := s.port.Send(ctx, frame); err != nil {
		s.withdraw(req)
		if ctx.Err() != nil {
			return protocol.Frame{}, fmt.Errorf("send %s: %w", code, ctx.Err())
		}
		terr := &Error{Kind: KindTransport, Message: "send " + code.String(), Err: err}
		s.fail(terr)
		return protocol.Frame{}, terr
	}
	s.framesSent.Add(1)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-req.result:
		return r.frame, r.err
	case <-timer.C:
		if !s.withdraw(req) {
			// The reader claimed the request first; its reply is already queued
			r := <-req.result
			return r.frame, r.err
		}
		s.timeoutCount.Add(1)
		s.log.Warn("No response", zap.Stringer("command", code), zap.Duration("timeout", timeout))
		return protocol.Frame{}, newError(timeoutKind, "no %s response within %s", code, timeout)
	case <-ctx.Done():
		if !s.withdraw(req) {
			r := <-req.result
			return r.frame, r.err
		}
		return protocol.Frame{}, fmt.Errorf("waiting for %s response: %w", code, ctx.Err())
	}
}

// withdraw removes req if it is still pending and reports whether it did.
// False means a reply or failure was already delivered to req.result: both
// happen under s.mu, in the same critical section that clears s.pending.
func (s *Session) withdraw(req *request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != req {
		return false
	}
	s.pending = nil
	return true
}

// deliverLocked hands r to the pending request, if any, and clears it.
// The caller holds s.mu; req.result is buffered so the send never blocks.
func (s *Session) deliverLocked(r response) bool {
	req := s.pending
	if req == nil {
		return false
	}
	s.pending = nil
	req.result <- r
	return true
}

func (s *Session) setBaseline(status *protocol.Status) {
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()

	if s.onStatus != nil {
		s.onStatus(status)
	}
}

// fail ends the session and wakes any pending request
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	s.err = err
	s.bound = false
	s.deliverLocked(response{err: err})
	s.mu.Unlock()

	close(s.done)
	s.log.Warn("Session ended", zap.Error(err))
}

func (s *Session) readLoop(notifications <-chan []byte) {
	for raw := range notifications {
		s.handle(raw)
	}
	s.fail(newError(KindDisconnected, "notification stream closed"))
}

func (s *Session) handle(raw []byte) {
	logging.LogFrame(s.log, "rx", raw)

	f, err := s.decode(raw)
	if err != nil {
		s.frameErrors.Add(1)
		logging.LogFrameError(s.log, raw, err)
		if s.onFrameError != nil {
			s.onFrameError(raw, err)
		}
		return
	}
	s.framesReceived.Add(1)
	f.Payload = append([]byte(nil), f.Payload...)

	s.mu.Lock()
	var delivered bool
	if req := s.pending; req != nil {
		r := response{frame: f}
		if f.Code != req.code {
			r = response{err: newError(KindUnexpectedResponse, "sent %s, got %s", req.code, f.Code)}
		}
		delivered = s.deliverLocked(r)
	}
	s.mu.Unlock()

	if !delivered {
		s.unsolicited(f)
	}
}

// unsolicited handles a frame that arrived with no request outstanding, such
// as a late reply after a timeout or a status pushed by the fridge
func (s *Session) unsolicited(f protocol.Frame) {
	switch f.Code {
	case protocol.CmdQuery, protocol.CmdSet, protocol.CmdReset:
		status, err := protocol.DecodeStatus(f.Payload)
		if err != nil {
			s.log.Debug("Unsolicited frame without status", zap.Stringer("frame", f), zap.Error(err))
			return
		}
		s.setBaseline(status)
	default:
		s.log.Debug("Unsolicited frame", zap.Stringer("frame", f))
	}
}
