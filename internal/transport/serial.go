package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate suits the common HM-10 style BLE serial bridges
const DefaultBaudRate = 9600

// OpenSerial opens a serial port at 8N1 and returns it as a Stream
func OpenSerial(portName string, baudRate int) (*Stream, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	// Drop anything the bridge buffered before we connected
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to reset serial port %s: %w", portName, err)
	}

	return NewStream(port, fmt.Sprintf("serial %s @ %d baud", portName, baudRate)), nil
}
