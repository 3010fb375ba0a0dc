package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/muurk/icebox/internal/session"
)

// PasswordEnvVar supplies the gateway password without prompting
const PasswordEnvVar = "ICEBOX_GATEWAY_PASSWORD"

// Link is a connected Port that can be closed
type Link interface {
	session.Port
	io.Closer
	Describe() string
}

// Endpoint selects and configures a link. Exactly one of SerialPort or URL
// must be set.
type Endpoint struct {
	SerialPort string
	BaudRate   int

	URL       string
	WebSocket WebSocketOptions
}

// ErrNoEndpoint is returned when neither a serial port nor a URL is given
var ErrNoEndpoint = errors.New("either a serial port or a gateway URL must be specified")

// Open connects to the endpoint
func Open(ctx context.Context, ep Endpoint) (Link, error) {
	switch {
	case ep.SerialPort != "" && ep.URL != "":
		return nil, fmt.Errorf("serial port %s and gateway URL %s are mutually exclusive", ep.SerialPort, ep.URL)
	case ep.URL != "":
		ws, err := DialWebSocket(ctx, ep.URL, ep.WebSocket)
		if err != nil {
			return nil, err
		}
		return ws, nil
	case ep.SerialPort != "":
		s, err := OpenSerial(ep.SerialPort, ep.BaudRate)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, ErrNoEndpoint
	}
}

// GetPassword returns the gateway password from ICEBOX_GATEWAY_PASSWORD or
// prompts on the terminal without echo
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnvVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Gateway password: ")
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
