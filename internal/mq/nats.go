// Package mq wraps the NATS connection used to hand outbound email off from
// the user service to the mail service.
package mq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/quickchat/internal/logger"
)

// SubjectOTPSend carries OTP emails from the user service to the mail service.
const SubjectOTPSend = "otp.send"

// EmailJob is the payload published on SubjectOTPSend.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Client struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

type Config struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "quickchat",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// New connects to NATS and returns a ready client. Reconnects are handled by
// the library; we only log the transitions.
func New(cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Errorf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("nats reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Infof("nats connected to %s", nc.ConnectedUrl())
	return &Client{conn: nc, subs: make(map[string]*nats.Subscription)}, nil
}

// PublishEmailJob queues an email for the mail service.
func (c *Client) PublishEmailJob(job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("mq marshal email job: %w", err)
	}
	if err := c.conn.Publish(SubjectOTPSend, data); err != nil {
		return fmt.Errorf("mq publish %s: %w", SubjectOTPSend, err)
	}
	return nil
}

// SubscribeEmailJobs delivers queued email jobs to handler. Jobs that fail to
// decode are logged and dropped, not redelivered.
func (c *Client) SubscribeEmailJobs(handler func(job EmailJob)) error {
	sub, err := c.conn.Subscribe(SubjectOTPSend, func(msg *nats.Msg) {
		var job EmailJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			logger.Errorf("mq bad email job: %v", err)
			return
		}
		handler(job)
	})
	if err != nil {
		return fmt.Errorf("mq subscribe %s: %w", SubjectOTPSend, err)
	}
	c.mu.Lock()
	c.subs[SubjectOTPSend] = sub
	c.mu.Unlock()
	return nil
}

// Close drains subscriptions and the connection so in-flight jobs finish.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			logger.Errorf("nats drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)
	if err := c.conn.Drain(); err != nil {
		logger.Errorf("nats connection drain: %v", err)
	}
}
