package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	// DefaultConnectTimeout bounds the initial broker connection
	DefaultConnectTimeout = 10 * time.Second

	// PasswordEnvVar holds the broker password; it is never stored in the config file
	PasswordEnvVar = "ICEBOX_MQTT_PASSWORD"
)

// Client is the part of paho.Client the publisher uses
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// BrokerOptions configures the broker connection
type BrokerOptions struct {
	Broker   string // tcp://host:1883, ssl://..., ws://...
	ClientID string
	Username string
	Password string

	// WillTopic, when set, receives a retained "false" if the connection drops
	WillTopic string
	QoS       byte

	ConnectTimeout time.Duration
}

// Dial connects to the broker and waits for the connection to be accepted
func Dial(ctx context.Context, opts BrokerOptions) (paho.Client, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("icebox-%d", time.Now().UnixNano()%100000)
	}

	mopt := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.ConnectTimeout).
		SetOrderMatters(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log().Warn("MQTT connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(paho.Client) {
			log().Info("MQTT connected")
		})
	if opts.Username != "" {
		mopt.SetUsername(opts.Username)
		mopt.SetPassword(opts.Password)
	}
	if opts.WillTopic != "" {
		mopt.SetWill(opts.WillTopic, offlinePayload, opts.QoS, true)
	}

	client := paho.NewClient(mopt)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to %s: %w", opts.Broker, ctx.Err())
	case <-time.After(opts.ConnectTimeout):
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to %s: timed out after %v", opts.Broker, opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.Broker, err)
	}
	return client, nil
}
