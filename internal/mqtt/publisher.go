package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/icebox/internal/logging"
	"github.com/muurk/icebox/internal/protocol"
)

// DefaultPublishTimeout bounds the wait for a broker acknowledgment
const DefaultPublishTimeout = 5 * time.Second

const (
	onlinePayload  = "true"
	offlinePayload = "false"
)

func log() *zap.Logger {
	return logging.Named("mqtt")
}

// Options configures a Publisher
type Options struct {
	TopicPrefix string // default "fridge"
	QoS         byte
	Retain      bool
	Timeout     time.Duration
}

// Publisher mirrors one fridge's state onto two topics:
//
//	<prefix>/<addr>/online   "true" or "false"
//	<prefix>/<addr>/state    JSON status report
//
// online is published when the fridge first answers and again after it
// recovers. state is published only when the report differs from the last
// one sent.
type Publisher struct {
	client Client
	opts   Options
	online string
	state  string
	log    *zap.Logger

	mu        sync.Mutex
	isOnline  bool
	lastState []byte
}

// NewPublisher creates a publisher for the fridge identified by addr
func NewPublisher(client Client, addr string, opts Options) *Publisher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPublishTimeout
	}
	online, state := Topics(opts.TopicPrefix, addr)
	return &Publisher{
		client: client,
		opts:   opts,
		online: online,
		state:  state,
		log:    log().With(zap.String("fridge", addr)),
	}
}

// Topics returns the online and state topics for addr. An empty prefix
// means "fridge".
func Topics(prefix, addr string) (online, state string) {
	if prefix == "" {
		prefix = "fridge"
	}
	base := strings.TrimSuffix(prefix, "/") + "/" + addr
	return base + "/online", base + "/state"
}

// OnlineTopic returns the availability topic, for use as a last will
func (p *Publisher) OnlineTopic() string { return p.online }

// StateTopic returns the state topic
func (p *Publisher) StateTopic() string { return p.state }

// Handle publishes the outcome of one poll. It matches the callback taken by
// session.PollLoop.
func (p *Publisher) Handle(status *protocol.Status, err error) {
	if err != nil {
		p.log.Debug("Poll failed", zap.Error(err))
		if perr := p.PublishOffline(); perr != nil {
			p.log.Warn("Failed to publish offline", zap.Error(perr))
		}
		return
	}
	if perr := p.PublishStatus(status); perr != nil {
		p.log.Warn("Failed to publish state", zap.Error(perr))
	}
}

// PublishStatus publishes online (if the fridge was offline) and the state
// (if it changed)
func (p *Publisher) PublishStatus(status *protocol.Status) error {
	payload, err := json.Marshal(status.Report())
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOnline {
		if err := p.publish(p.online, onlinePayload); err != nil {
			return err
		}
		p.isOnline = true
		p.lastState = nil
		p.log.Info("Fridge online")
	}

	if bytes.Equal(payload, p.lastState) {
		return nil
	}
	if err := p.publish(p.state, payload); err != nil {
		return err
	}
	p.lastState = payload
	p.log.Debug("State published", zap.ByteString("state", payload))
	return nil
}

// PublishOffline publishes online=false once per outage
func (p *Publisher) PublishOffline() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOnline {
		return nil
	}
	if err := p.publish(p.online, offlinePayload); err != nil {
		return err
	}
	p.isOnline = false
	p.lastState = nil
	p.log.Info("Fridge offline")
	return nil
}

// Close marks the fridge offline and disconnects from the broker
func (p *Publisher) Close() error {
	p.mu.Lock()
	p.isOnline = true
	p.mu.Unlock()

	err := p.PublishOffline()
	p.client.Disconnect(250)
	return err
}

func (p *Publisher) publish(topic string, payload interface{}) error {
	token := p.client.Publish(topic, p.opts.QoS, p.opts.Retain, payload)
	if !token.WaitTimeout(p.opts.Timeout) {
		return fmt.Errorf("publish to %s: no acknowledgment after %v", topic, p.opts.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
