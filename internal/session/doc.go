// Package session drives a connected fridge over an abstract Port.
//
// A Session turns the fridge's notification stream into blocking calls:
// each operation sends one frame and waits for the matching notification.
//
// # States
//
//	Disconnected -> Binding -> Bound -> AwaitingResponse -> Bound
//
// Binding is advisory. A fridge that never answers the bind request still
// accepts every other command, so an unbound session moves between
// Disconnected and AwaitingResponse instead.
//
// # Single Flight
//
// The link carries one request at a time. A call made while another is
// waiting fails immediately with ErrRequestInFlight and sends nothing:
//
//	status, err := s.Query(ctx)
//	if errors.Is(err, session.ErrRequestInFlight) {
//	    // another goroutine is talking to the fridge
//	}
//
// # Baseline
//
// Every decoded status, requested or pushed by the fridge, becomes the
// baseline returned by LastStatus. ApplySettings fills unchanged fields from
// it, so at least one Query must succeed first:
//
//	if _, err := s.Query(ctx); err != nil {
//	    return err
//	}
//	status, err := s.ApplySettings(ctx,
//	    protocol.Override{Field: protocol.FieldPoweredOn, Value: 0},
//	)
//
// # Polling
//
//	err := s.PollLoop(ctx, 10*time.Second, func(st *protocol.Status, err error) {
//	    ...
//	})
//
// Cancelling ctx stops the loop. A query already in flight is allowed to
// finish and its result is delivered first.
//
// # Error Handling
//
// Malformed inbound frames are logged, counted and passed to the handler set
// with WithFrameErrorHandler; the session keeps waiting. Timeouts, unexpected
// responses and ack mismatches are returned to the caller and leave the
// session usable. A failed send or a closed notification channel ends the
// session for good; see IsFatal.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package session
