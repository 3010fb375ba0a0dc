package ui

import (
	"errors"

	"github.com/muurk/icebox/internal/protocol"
	"github.com/muurk/icebox/internal/session"
	"github.com/muurk/icebox/internal/transport"
)

// Hints returns troubleshooting tips for err, or nil when there are none
func Hints(err error) []string {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrBindTimeout):
		return []string{
			"Press the bind button on the fridge while the command is waiting",
			"Increase preferences.bind_timeout if the button is hard to reach",
		}
	case errors.Is(err, session.ErrResponseTimeout):
		return []string{
			"Check the fridge is switched on and within range of the bridge",
			"Some models only answer after a bind: try 'icebox bind'",
			"Try --lenient if the bridge log shows checksum errors",
		}
	case errors.Is(err, session.ErrNoBaseline):
		return []string{"Run 'icebox status' first so current settings are known"}
	case errors.Is(err, session.ErrAckMismatch):
		return []string{
			"The fridge may have clamped a value to its own limits",
			"Run 'icebox status' to see what it accepted",
		}
	case errors.Is(err, protocol.ErrValueOutOfRange), errors.Is(err, protocol.ErrUnknownField):
		return []string{"Run 'icebox set --help' for the accepted fields and ranges"}
	case errors.Is(err, transport.ErrNoEndpoint):
		return []string{
			"Pass --port for a serial bridge or --url for a WebSocket gateway",
			"Or add the fridge with 'icebox fridges add'",
		}
	case session.IsFatal(err), errors.Is(err, transport.ErrClosed):
		return []string{
			"The link to the bridge dropped; check cables or gateway power",
			"Re-run the command to reconnect",
		}
	}
	return nil
}
