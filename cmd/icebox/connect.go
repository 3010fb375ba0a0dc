package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/icebox/internal/config"
	"github.com/muurk/icebox/internal/logging"
	"github.com/muurk/icebox/internal/session"
	"github.com/muurk/icebox/internal/transport"
	"github.com/muurk/icebox/internal/ui"
)

// target is the fridge a command talks to: either a saved registry entry or
// the one described by --port / --url
type target struct {
	key      string        // Registry key, empty for ad-hoc endpoints
	label    string        // Display name
	addr     string        // Identity for MQTT topics and metric labels
	fridge   *config.Fridge
	registry *config.Registry
}

// connection is an open link with a session running on it
type connection struct {
	target
	link    transport.Link
	session *session.Session
	log     *zap.Logger
}

func loadRegistry() (*config.Registry, error) {
	reg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return reg, nil
}

// resolveTarget applies the global flags on top of the registry. --port and
// --url override the saved address of --fridge, or stand alone.
func resolveTarget(reg *config.Registry) (target, error) {
	t := target{registry: reg}

	adhoc := serialPort != "" || gatewayURL != ""
	if !adhoc || fridgeName != "" {
		key, f, err := reg.ResolveFridge(fridgeName)
		if err != nil {
			if !adhoc {
				return t, fmt.Errorf("%w\n  (%v)", transport.ErrNoEndpoint, err)
			}
			return t, err
		}
		copied := *f
		t.key, t.fridge = key, &copied
	} else {
		t.fridge = &config.Fridge{}
	}

	switch {
	case serialPort != "":
		t.fridge.Transport, t.fridge.Address = config.TransportSerial, serialPort
	case gatewayURL != "":
		t.fridge.Transport, t.fridge.Address = config.TransportWebSocket, gatewayURL
	}
	if baudRate > 0 {
		t.fridge.Baud = baudRate
	}
	if gatewayUser != "" {
		t.fridge.Username = gatewayUser
	}
	if insecureTLS {
		t.fridge.Insecure = true
	}
	if lenient {
		t.fridge.Lenient = true
	}
	if bindFirst {
		t.fridge.Bind = true
	}

	key := t.key
	if key == "" {
		key = t.fridge.Address
	}
	t.label = t.fridge.Label(key)
	t.addr = t.fridge.BLEAddr
	if t.addr == "" {
		t.addr = key
	}
	return t, nil
}

// endpoint turns a fridge entry into transport settings, prompting for the
// gateway password when a username is set
func endpoint(f *config.Fridge) (transport.Endpoint, error) {
	switch f.Transport {
	case config.TransportSerial:
		return transport.Endpoint{SerialPort: f.Address, BaudRate: f.Baud}, nil
	case config.TransportWebSocket:
		ep := transport.Endpoint{URL: f.Address}
		ep.WebSocket.Username = f.Username
		ep.WebSocket.SkipTLSVerify = f.Insecure
		if f.Username != "" {
			pw, err := transport.GetPassword()
			if err != nil {
				return ep, err
			}
			ep.WebSocket.Password = pw
		}
		return ep, nil
	}
	return transport.Endpoint{}, transport.ErrNoEndpoint
}

// connect opens the link for the selected fridge and starts a session. If the
// fridge is configured to bind, binding is attempted; a bind timeout is only
// a warning since unbound fridges still answer most commands.
func connect(ctx context.Context, opts ...session.Option) (*connection, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	t, err := resolveTarget(reg)
	if err != nil {
		return nil, err
	}
	ep, err := endpoint(t.fridge)
	if err != nil {
		return nil, err
	}

	log := logging.Named("cli").With(zap.String("fridge", t.label))
	log.Debug("Connecting", zap.String("transport", t.fridge.Transport), zap.String("address", t.fridge.Address))

	link, err := transport.Open(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", t.label, err)
	}

	prefs := reg.Preferences
	sessionLog := logging.Named("session").With(zap.String("fridge", t.label))
	base := []session.Option{
		session.WithLogger(sessionLog),
		session.WithTimeouts(session.Timeouts{Bind: prefs.BindTimeout, Response: prefs.ResponseTimeout}),
		session.WithFrameErrorHandler(func(raw []byte, err error) {
			logging.LogFrameError(sessionLog, raw, err)
		}),
	}
	if t.fridge.Lenient {
		base = append(base, session.WithLenientChecksum())
	}

	c := &connection{
		target:  t,
		link:    link,
		session: session.New(link, append(base, opts...)...),
		log:     log,
	}

	if t.fridge.Bind {
		if err := c.bind(ctx); err != nil {
			if !errors.Is(err, session.ErrBindTimeout) {
				c.Close()
				return nil, err
			}
			fmt.Fprintln(errOut, ui.WarnStyle.Render("Bind timed out; continuing unbound"))
		}
	}
	return c, nil
}

func (c *connection) bind(ctx context.Context) error {
	fmt.Fprintf(errOut, "Binding %s: press the bind button on the fridge...\n", c.label)
	res, err := c.session.Bind(ctx)
	if err != nil {
		return err
	}
	c.log.Info("Bound", zap.Uint8("response", res.Response))
	return nil
}

// touch records a successful exchange for saved fridges
func (c *connection) touch() {
	if c.key == "" {
		return
	}
	c.registry.TouchFridge(c.key, time.Now())
	if err := c.registry.Save(); err != nil {
		c.log.Warn("Failed to save config", zap.Error(err))
	}
}

// Close closes the link and waits for the session to stop
func (c *connection) Close() {
	if err := c.link.Close(); err != nil {
		c.log.Debug("Close failed", zap.Error(err))
	}
	select {
	case <-c.session.Done():
	case <-time.After(time.Second):
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
