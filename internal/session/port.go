package session

import "context"

// Port is the link to one connected fridge.
//
// Send writes one complete frame to the command characteristic. Notifications
// yields one buffer per received frame in arrival order; the channel is
// closed when the link is lost. Buffers must not be reused by the Port after
// they are delivered.
type Port interface {
	Send(ctx context.Context, frame []byte) error
	Notifications() <-chan []byte
}

// GATT identifiers of the fridge's BLE service. They are only needed when
// configuring a gateway or adapter; the session never uses them.
const (
	ServiceUUID      = "00001234-0000-1000-8000-00805f9b34fb"
	WriteCharUUID    = "00001235-0000-1000-8000-00805f9b34fb"
	NotifyCharUUID   = "00001236-0000-1000-8000-00805f9b34fb"
	ServiceShortUUID = 0x1234
	WriteShortUUID   = 0x1235
	NotifyShortUUID  = 0x1236
)
