// Package transport provides session.Port implementations.
//
// # Serial
//
// Stream wraps any io.ReadWriteCloser that carries frames back to back, such
// as a UART wired to the fridge's BLE module or a BLE serial bridge:
//
//	link, err := transport.OpenSerial("/dev/ttyUSB0", 9600)
//	if err != nil {
//	    return err
//	}
//	defer link.Close()
//	s := session.New(link)
//
// # WebSocket
//
// WebSocket talks to a gateway that relays the fridge's GATT characteristics
// (see session.ServiceUUID): one binary message per notification in each
// direction.
//
//	link, err := transport.DialWebSocket(ctx, "ws://gateway.local:8080/fridge/AA:BB", transport.WebSocketOptions{})
//
// # Lifecycle
//
// Every link owns a fresh notification channel that is closed when the
// connection ends. Reconnecting means opening a new link and a new session.
package transport
